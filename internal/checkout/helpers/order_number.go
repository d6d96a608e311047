package helpers

import (
	"fmt"
	"time"

	"github.com/petfinder-app/petfinder-backend/pkg/security"
)

const (
	orderNumberPrefix   = "PF"
	orderNumberSuffix   = 6
	orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewOrderNumber returns PF-YYYYMMDD-XXXXXX for the UTC day of now.
func NewOrderNumber(now time.Time) (string, error) {
	suffix, err := security.RandomString(orderNumberSuffix, orderNumberAlphabet)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, now.UTC().Format("20060102"), suffix), nil
}
