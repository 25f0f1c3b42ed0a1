package models

import "errors"

var (
	ErrSlotNotFound      = errors.New("slot not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrSlotUnavailable   = errors.New("slot is already booked")
	ErrAlreadyTerminal   = errors.New("booking already in requested state")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrDuplicateSlot     = errors.New("slot already exists")
	ErrDuplicateBooking  = errors.New("booking id already exists")
	ErrInvalidSlot       = errors.New("invalid slot")
)
