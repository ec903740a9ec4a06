package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/draftea/flight-booking/shared/models"
)

type TicketStatus string

const (
	TicketConfirmed TicketStatus = "CONFIRMED"
	TicketCancelled TicketStatus = "CANCELLED"
)

type Ticket struct {
	CorrelationID    string
	BookingReference string
	Status           TicketStatus
	Timestamps       models.Timestamps
}

// NewBookingReference returns six upper-case hex characters
func NewBookingReference() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return strings.ToUpper(models.GenerateUUID().Short(6))
	}
	return strings.ToUpper(hex.EncodeToString(b))
}

// Ticketing issues booking references
type Ticketing struct {
	mux     sync.Mutex
	tickets map[string]*Ticket
	issued  map[string]struct{}
	newRef  func() string
}

func NewTicketing() *Ticketing {
	return &Ticketing{
		tickets: make(map[string]*Ticket),
		issued:  make(map[string]struct{}),
		newRef:  NewBookingReference,
	}
}

// Issue creates the ticket of a booking, or returns the one already issued
func (t *Ticketing) Issue(correlationID string) (Ticket, error) {
	t.mux.Lock()
	defer t.mux.Unlock()

	if ticket, ok := t.tickets[correlationID]; ok {
		if ticket.Status == TicketCancelled {
			return Ticket{}, ErrTicketCancelled
		}
		return *ticket, nil
	}

	ref := t.newRef()
	for {
		if _, dup := t.issued[ref]; !dup {
			break
		}
		ref = t.newRef()
	}
	t.issued[ref] = struct{}{}

	ticket := &Ticket{
		CorrelationID:    correlationID,
		BookingReference: ref,
		Status:           TicketConfirmed,
		Timestamps:       models.NewTimestamps(),
	}
	t.tickets[correlationID] = ticket
	return *ticket, nil
}

// Cancel voids the ticket. It reports false when none was issued.
func (t *Ticketing) Cancel(correlationID string) (Ticket, bool) {
	t.mux.Lock()
	defer t.mux.Unlock()

	ticket, ok := t.tickets[correlationID]
	if !ok {
		return Ticket{}, false
	}
	if ticket.Status != TicketCancelled {
		ticket.Status = TicketCancelled
		ticket.Timestamps = ticket.Timestamps.Update()
	}
	return *ticket, true
}
