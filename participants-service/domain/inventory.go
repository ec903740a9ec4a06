package domain

import (
	"fmt"
	"sync"

	"github.com/draftea/flight-booking/shared/models"
	"github.com/draftea/flight-booking/shared/saga"
)

// SeatCapacity is the number of seats per class on every flight
var SeatCapacity = map[string]int{
	saga.SeatClassEconomy:  150,
	saga.SeatClassBusiness: 30,
	saga.SeatClassFirst:    8,
}

var seatPrefix = map[string]string{
	saga.SeatClassEconomy:  "E",
	saga.SeatClassBusiness: "B",
	saga.SeatClassFirst:    "F",
}

type SeatHoldStatus string

const (
	SeatHoldReserved  SeatHoldStatus = "RESERVED"
	SeatHoldConfirmed SeatHoldStatus = "CONFIRMED"
	SeatHoldReleased  SeatHoldStatus = "RELEASED"
)

// SeatHold is the set of seats held for one booking
type SeatHold struct {
	CorrelationID string
	FlightID      int64
	SeatClass     string
	SeatNumbers   []string
	Status        SeatHoldStatus
	Timestamps    models.Timestamps
}

type cabinKey struct {
	flightID  int64
	seatClass string
}

// Inventory tracks seat allocation per flight and class
type Inventory struct {
	mux   sync.Mutex
	taken map[cabinKey]map[int]string
	holds map[string]*SeatHold
}

func NewInventory() *Inventory {
	return &Inventory{
		taken: make(map[cabinKey]map[int]string),
		holds: make(map[string]*SeatHold),
	}
}

// Reserve holds the lowest free seats of the class. Calling it again for the same
// correlation id returns the existing hold.
func (i *Inventory) Reserve(correlationID string, flightID int64, passengers int, seatClass string) (SeatHold, error) {
	i.mux.Lock()
	defer i.mux.Unlock()

	if hold, ok := i.holds[correlationID]; ok {
		if hold.Status == SeatHoldReleased {
			return SeatHold{}, ErrSeatHoldReleased
		}
		return hold.copy(), nil
	}

	capacity, ok := SeatCapacity[seatClass]
	if !ok {
		return SeatHold{}, ErrUnknownSeatClass
	}
	if passengers <= 0 {
		return SeatHold{}, ErrInvalidPassengers
	}

	key := cabinKey{flightID: flightID, seatClass: seatClass}
	taken := i.taken[key]
	if taken == nil {
		taken = make(map[int]string)
		i.taken[key] = taken
	}
	if capacity-len(taken) < passengers {
		return SeatHold{}, ErrNoSeatsAvailable
	}

	seats := make([]string, 0, passengers)
	for n := 1; n <= capacity && len(seats) < passengers; n++ {
		if _, used := taken[n]; used {
			continue
		}
		taken[n] = correlationID
		seats = append(seats, fmt.Sprintf("%s%d", seatPrefix[seatClass], n))
	}

	hold := &SeatHold{
		CorrelationID: correlationID,
		FlightID:      flightID,
		SeatClass:     seatClass,
		SeatNumbers:   seats,
		Status:        SeatHoldReserved,
		Timestamps:    models.NewTimestamps(),
	}
	i.holds[correlationID] = hold
	return hold.copy(), nil
}

// Release frees the seats of a hold. It reports false when nothing was held.
func (i *Inventory) Release(correlationID string) (SeatHold, bool) {
	i.mux.Lock()
	defer i.mux.Unlock()

	hold, ok := i.holds[correlationID]
	if !ok {
		return SeatHold{}, false
	}
	if hold.Status != SeatHoldReleased {
		taken := i.taken[cabinKey{flightID: hold.FlightID, seatClass: hold.SeatClass}]
		for n, owner := range taken {
			if owner == correlationID {
				delete(taken, n)
			}
		}
		hold.Status = SeatHoldReleased
		hold.Timestamps = hold.Timestamps.Update()
	}
	return hold.copy(), true
}

// Confirm turns a reservation into a sold seat
func (i *Inventory) Confirm(correlationID string) (SeatHold, error) {
	i.mux.Lock()
	defer i.mux.Unlock()

	hold, ok := i.holds[correlationID]
	if !ok {
		return SeatHold{}, ErrNoSeatHold
	}
	switch hold.Status {
	case SeatHoldReleased:
		return SeatHold{}, ErrSeatHoldReleased
	case SeatHoldReserved:
		hold.Status = SeatHoldConfirmed
		hold.Timestamps = hold.Timestamps.Update()
	}
	return hold.copy(), nil
}

// Unconfirm moves a confirmed hold back to reserved so it can be released
func (i *Inventory) Unconfirm(correlationID string) {
	i.mux.Lock()
	defer i.mux.Unlock()

	if hold, ok := i.holds[correlationID]; ok && hold.Status == SeatHoldConfirmed {
		hold.Status = SeatHoldReserved
		hold.Timestamps = hold.Timestamps.Update()
	}
}

// Available returns the free seats of a flight class
func (i *Inventory) Available(flightID int64, seatClass string) int {
	i.mux.Lock()
	defer i.mux.Unlock()

	return SeatCapacity[seatClass] - len(i.taken[cabinKey{flightID: flightID, seatClass: seatClass}])
}

func (h *SeatHold) copy() SeatHold {
	c := *h
	c.SeatNumbers = append([]string(nil), h.SeatNumbers...)
	return c
}
