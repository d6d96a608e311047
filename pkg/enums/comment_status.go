package enums

import "fmt"

// CommentStatus is the moderation state of a blog comment.
type CommentStatus string

const (
	CommentStatusPending  CommentStatus = "pending"
	CommentStatusApproved CommentStatus = "approved"
	CommentStatusRejected CommentStatus = "rejected"
)

var validCommentStatuses = []CommentStatus{
	CommentStatusPending,
	CommentStatusApproved,
	CommentStatusRejected,
}

// String implements fmt.Stringer.
func (c CommentStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommentStatus.
func (c CommentStatus) IsValid() bool {
	for _, candidate := range validCommentStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommentStatus converts raw input into a CommentStatus.
func ParseCommentStatus(value string) (CommentStatus, error) {
	for _, candidate := range validCommentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid comment status %q", value)
}
