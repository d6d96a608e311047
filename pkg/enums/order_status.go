package enums

import "fmt"

// OrderStatus tracks the lifecycle of a shop order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered:  {OrderStatusRefunded},
}

// CanTransitionTo reports whether the order may move from o to next.
// Transitions only move forward; cancelled and refunded are terminal.
func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[o] {
		if candidate == next {
			return true
		}
	}
	return false
}

// HoldsStock reports whether stock has been decremented for an order in this state.
func (o OrderStatus) HoldsStock() bool {
	switch o {
	case OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusCancelled || o == OrderStatusRefunded
}
