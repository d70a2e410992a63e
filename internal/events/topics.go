package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderCreated    = "order.created"
	TopicOrderUpdated    = "order.updated"
	TopicOrderCanceled   = "order.canceled"
	TopicCouponRedeemed  = "coupon.redeemed"
	TopicDiscountCreated = "discount.created"
	TopicDiscountUpdated = "discount.updated"
	TopicDiscountDeleted = "discount.deleted"
	TopicProductLowStock = "product.low_stock"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderUpdated,
		TopicOrderCanceled,
		TopicCouponRedeemed,
		TopicDiscountCreated,
		TopicDiscountUpdated,
		TopicDiscountDeleted,
		TopicProductLowStock,
	}
}
