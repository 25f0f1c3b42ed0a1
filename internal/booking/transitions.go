package booking

import (
	"fmt"

	"parkslot/internal/models"
)

var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.StatusActive:    {models.StatusCompleted, models.StatusCancelled},
	models.StatusCompleted: {},
	models.StatusCancelled: {},
}

// CanTransition checks if a status change is allowed.
func CanTransition(from, to models.BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// checkTransition reports ErrAlreadyTerminal when the booking is already in
// the target state and ErrInvalidTransition for any other disallowed move.
func checkTransition(from, to models.BookingStatus) error {
	if from == to {
		return fmt.Errorf("booking is %s: %w", from, models.ErrAlreadyTerminal)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, models.ErrInvalidTransition)
	}
	return nil
}
