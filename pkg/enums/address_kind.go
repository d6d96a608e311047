package enums

import "fmt"

// AddressKind distinguishes shipping from billing address records.
type AddressKind string

const (
	AddressKindShipping AddressKind = "shipping"
	AddressKindBilling  AddressKind = "billing"
)

var validAddressKinds = []AddressKind{
	AddressKindShipping,
	AddressKindBilling,
}

// String implements fmt.Stringer.
func (a AddressKind) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AddressKind.
func (a AddressKind) IsValid() bool {
	for _, candidate := range validAddressKinds {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAddressKind converts raw input into a AddressKind.
func ParseAddressKind(value string) (AddressKind, error) {
	for _, candidate := range validAddressKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid address kind %q", value)
}
