package booking

import (
	"strings"

	"github.com/google/uuid"
)

// IDGenerator produces opaque booking identifiers.
type IDGenerator func() string

// NewBookingID returns "BKG-" followed by six upper-case hex characters.
func NewBookingID() string {
	return "BKG-" + strings.ToUpper(uuid.NewString()[:6])
}
