package domain

import "github.com/pkg/errors"

var (
	ErrNoSeatsAvailable  = errors.New("not enough seats available")
	ErrUnknownSeatClass  = errors.New("unknown seat class")
	ErrNoSeatHold        = errors.New("no seat hold for booking")
	ErrSeatHoldReleased  = errors.New("seat hold was released")
	ErrPaymentVoided     = errors.New("payment authorization was voided")
	ErrMilesReversed     = errors.New("miles award was reversed")
	ErrTicketCancelled   = errors.New("ticket was cancelled")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidPassengers = errors.New("passenger count must be positive")
)
