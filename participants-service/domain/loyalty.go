package domain

import (
	"sync"

	"github.com/draftea/flight-booking/shared/models"
)

type MilesAwardStatus string

const (
	MilesAwarded  MilesAwardStatus = "AWARDED"
	MilesReversed MilesAwardStatus = "REVERSED"
)

// MilesAward records the miles granted for one booking
type MilesAward struct {
	CorrelationID   string
	UserID          string
	Miles           int64
	OriginalBalance int64
	NewBalance      int64
	Status          MilesAwardStatus
	Timestamps      models.Timestamps
}

// Loyalty keeps mile balances per user. One mile per whole fare unit.
type Loyalty struct {
	mux      sync.Mutex
	balances map[string]int64
	awards   map[string]*MilesAward
}

func NewLoyalty() *Loyalty {
	return &Loyalty{
		balances: make(map[string]int64),
		awards:   make(map[string]*MilesAward),
	}
}

func (l *Loyalty) Award(correlationID, userID string, fare models.Money) (MilesAward, error) {
	l.mux.Lock()
	defer l.mux.Unlock()

	if award, ok := l.awards[correlationID]; ok {
		if award.Status == MilesReversed {
			return MilesAward{}, ErrMilesReversed
		}
		return *award, nil
	}

	miles := fare.WholeUnits()
	if miles < 0 {
		return MilesAward{}, ErrInvalidAmount
	}

	original := l.balances[userID]
	l.balances[userID] = original + miles

	award := &MilesAward{
		CorrelationID:   correlationID,
		UserID:          userID,
		Miles:           miles,
		OriginalBalance: original,
		NewBalance:      original + miles,
		Status:          MilesAwarded,
		Timestamps:      models.NewTimestamps(),
	}
	l.awards[correlationID] = award
	return *award, nil
}

// Reverse takes the awarded miles back. The balance never goes below zero.
func (l *Loyalty) Reverse(correlationID string) (MilesAward, bool) {
	l.mux.Lock()
	defer l.mux.Unlock()

	award, ok := l.awards[correlationID]
	if !ok {
		return MilesAward{}, false
	}
	if award.Status == MilesAwarded {
		balance := l.balances[award.UserID] - award.Miles
		if balance < 0 {
			balance = 0
		}
		l.balances[award.UserID] = balance
		award.Status = MilesReversed
		award.Timestamps = award.Timestamps.Update()
	}
	return *award, true
}

func (l *Loyalty) Balance(userID string) int64 {
	l.mux.Lock()
	defer l.mux.Unlock()

	return l.balances[userID]
}
