package checkout

import (
	"fmt"

	"github.com/google/uuid"
)

// InventoryUnavailableError means a cart line asked for more stock than the
// shop has left. The whole checkout rolls back; the caller may re-price and
// retry with a smaller quantity.
type InventoryUnavailableError struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int32
}

func (e *InventoryUnavailableError) Error() string {
	if e.VariantID != nil {
		return fmt.Sprintf("insufficient inventory for variant %s of product %s (wanted %d)", e.VariantID, e.ProductID, e.Quantity)
	}
	return fmt.Sprintf("insufficient inventory for product %s (wanted %d)", e.ProductID, e.Quantity)
}
