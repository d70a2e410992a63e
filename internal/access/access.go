// Package access answers "may this role on this plan use this feature"
// as pure lookups over enumerated values. Role and plan always travel as
// explicit arguments; there is no ambient state to mutate.
package access

// Role is the position a back-office user holds within a shop.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleViewer Role = "viewer"
)

// Plan is the subscription tier a shop is on.
type Plan string

const (
	PlanFree   Plan = "free"
	PlanBasic  Plan = "basic"
	PlanGrowth Plan = "growth"
)

// Feature is a gated capability of the back office.
type Feature string

const (
	FeatureProducts      Feature = "products"
	FeatureCategories    Feature = "categories"
	FeatureDiscounts     Feature = "discounts"
	FeatureDiscountCodes Feature = "discount_codes"
	FeatureOrders        Feature = "orders"
	FeatureAnalytics     Feature = "analytics"
	FeatureMultiStaff    Feature = "multi_staff"
)

// PlanIncludes reports whether the plan covers the feature.
func PlanIncludes(plan Plan, feature Feature) bool {
	switch plan {
	case PlanFree:
		switch feature {
		case FeatureProducts, FeatureCategories, FeatureOrders:
			return true
		}
		return false
	case PlanBasic:
		switch feature {
		case FeatureProducts, FeatureCategories, FeatureOrders,
			FeatureDiscounts, FeatureDiscountCodes:
			return true
		}
		return false
	case PlanGrowth:
		return true
	}
	return false
}

// RoleAllows reports whether the role may act on the feature.
// Viewers can read everything but this gate only guards mutating surfaces,
// so they are denied here.
func RoleAllows(role Role, feature Feature) bool {
	switch role {
	case RoleOwner, RoleAdmin:
		return true
	case RoleStaff:
		switch feature {
		case FeatureProducts, FeatureCategories, FeatureOrders:
			return true
		}
		return false
	case RoleViewer:
		return false
	}
	return false
}

// Allowed combines the plan and role gates.
func Allowed(role Role, plan Plan, feature Feature) bool {
	return PlanIncludes(plan, feature) && RoleAllows(role, feature)
}
