package access

import "testing"

func TestPlanIncludes(t *testing.T) {
	if PlanIncludes(PlanFree, FeatureDiscounts) {
		t.Fatal("free plan must not include discounts")
	}
	if !PlanIncludes(PlanBasic, FeatureDiscountCodes) {
		t.Fatal("basic plan should include discount codes")
	}
	if !PlanIncludes(PlanGrowth, FeatureAnalytics) {
		t.Fatal("growth plan should include analytics")
	}
	if PlanIncludes(Plan("unknown"), FeatureProducts) {
		t.Fatal("unknown plan must include nothing")
	}
}

func TestRoleAllows(t *testing.T) {
	if RoleAllows(RoleViewer, FeatureProducts) {
		t.Fatal("viewer must not mutate products")
	}
	if RoleAllows(RoleStaff, FeatureDiscounts) {
		t.Fatal("staff must not manage discounts")
	}
	if !RoleAllows(RoleStaff, FeatureOrders) {
		t.Fatal("staff should manage orders")
	}
	if !RoleAllows(RoleOwner, FeatureMultiStaff) {
		t.Fatal("owner should manage staff")
	}
}

func TestAllowedCombinesBothGates(t *testing.T) {
	if Allowed(RoleOwner, PlanFree, FeatureDiscounts) {
		t.Fatal("plan gate must apply even to owners")
	}
	if !Allowed(RoleAdmin, PlanBasic, FeatureDiscounts) {
		t.Fatal("admin on basic should manage discounts")
	}
}
