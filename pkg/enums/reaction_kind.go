package enums

import "fmt"

// ReactionKind enumerates the reactions a reader can leave on a post.
type ReactionKind string

const (
	ReactionLike  ReactionKind = "like"
	ReactionLove  ReactionKind = "love"
	ReactionLaugh ReactionKind = "laugh"
	ReactionSad   ReactionKind = "sad"
)

var validReactionKinds = []ReactionKind{
	ReactionLike,
	ReactionLove,
	ReactionLaugh,
	ReactionSad,
}

// String implements fmt.Stringer.
func (r ReactionKind) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReactionKind.
func (r ReactionKind) IsValid() bool {
	for _, candidate := range validReactionKinds {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReactionKind converts raw input into a ReactionKind.
func ParseReactionKind(value string) (ReactionKind, error) {
	for _, candidate := range validReactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reaction kind %q", value)
}
