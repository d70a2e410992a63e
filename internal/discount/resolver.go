package discount

import (
	"time"

	"github.com/google/uuid"

	"github.com/clovershop/backoffice/internal/shop"
)

// Resolve selects the discount applying to a single catalog item out of the
// shop's discounts. Candidates must be active at now, available on the sales
// channel, and their targeting must cover the item. Among candidates the
// highest percentage wins; ties go to the most recently created discount so
// the outcome is deterministic. Returns nil when nothing applies.
func Resolve(productID uuid.UUID, variantID *uuid.UUID, categoryIDs []uuid.UUID, source shop.Source, now time.Time, discounts []Discount) *Discount {
	var best *Discount
	for i := range discounts {
		d := &discounts[i]
		if !d.ActiveAt(now) {
			continue
		}
		if !d.AvailableOn(source) {
			continue
		}
		if !d.Targeting.Matches(productID, variantID, categoryIDs) {
			continue
		}
		if best == nil {
			best = d
			continue
		}
		switch d.Percentage.Cmp(best.Percentage) {
		case 1:
			best = d
		case 0:
			if d.CreatedAt.After(best.CreatedAt) {
				best = d
			}
		}
	}
	return best
}
