package enums

import "fmt"

// MovementReason explains why an inventory movement was recorded.
type MovementReason string

const (
	MovementReasonOrder   MovementReason = "order"
	MovementReasonRestock MovementReason = "restock"
	MovementReasonManual  MovementReason = "manual"
	MovementReasonRefund  MovementReason = "refund"
)

var validMovementReasons = []MovementReason{
	MovementReasonOrder,
	MovementReasonRestock,
	MovementReasonManual,
	MovementReasonRefund,
}

// String implements fmt.Stringer.
func (m MovementReason) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementReason.
func (m MovementReason) IsValid() bool {
	for _, candidate := range validMovementReasons {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMovementReason converts raw input into a MovementReason.
func ParseMovementReason(value string) (MovementReason, error) {
	for _, candidate := range validMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement reason %q", value)
}
