package enums

import "fmt"

// BookingStatus tracks a PetBnB booking.
type BookingStatus string

const (
	BookingStatusRequested BookingStatus = "requested"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusDeclined  BookingStatus = "declined"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusRequested,
	BookingStatusAccepted,
	BookingStatusDeclined,
	BookingStatusCancelled,
	BookingStatusCompleted,
}

// String implements fmt.Stringer.
func (b BookingStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BookingStatus.
func (b BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBookingStatus converts raw input into a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusRequested: {BookingStatusAccepted, BookingStatusDeclined, BookingStatusCancelled},
	BookingStatusAccepted:  {BookingStatusCancelled, BookingStatusCompleted},
}

// CanTransitionTo reports whether a booking may move from b to next.
func (b BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, candidate := range bookingTransitions[b] {
		if candidate == next {
			return true
		}
	}
	return false
}
