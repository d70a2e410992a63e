package access

import (
	"net/http"

	"github.com/clovershop/backoffice/internal/common"
)

// Grant is the resolved role and plan of the caller for the current shop.
type Grant struct {
	Role Role
	Plan Plan
}

// GrantResolver derives the caller's grant from the request. A typical
// implementation reads the staff role header and the shop's plan.
type GrantResolver func(r *http.Request) (Grant, bool)

// RequireFeature rejects requests whose grant does not cover the feature.
func RequireFeature(feature Feature, resolve GrantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolve == nil {
				common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "access resolver not configured", nil)
				return
			}
			grant, ok := resolve(r)
			if !ok {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "forbidden", nil)
				return
			}
			if !PlanIncludes(grant.Plan, feature) {
				common.JSONError(w, http.StatusForbidden, "PLAN_LIMIT", "feature not included in current plan", nil)
				return
			}
			if !RoleAllows(grant.Role, feature) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
