package enums

import "fmt"

// PetStatus is the public status shown on a pet profile.
type PetStatus string

const (
	PetStatusHome PetStatus = "home"
	PetStatusLost PetStatus = "lost"
)

var validPetStatuses = []PetStatus{
	PetStatusHome,
	PetStatusLost,
}

// String implements fmt.Stringer.
func (p PetStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PetStatus.
func (p PetStatus) IsValid() bool {
	for _, candidate := range validPetStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePetStatus converts raw input into a PetStatus.
func ParsePetStatus(value string) (PetStatus, error) {
	for _, candidate := range validPetStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pet status %q", value)
}
