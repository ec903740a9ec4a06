// Package models holds the value types shared by the booking services.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID identifies sagas, events and audit entries
type ID string

func GenerateUUID() ID {
	return ID(uuid.New().String())
}

func (id ID) String() string {
	return string(id)
}

// Short returns at most the first n characters, used for human facing references
func (id ID) Short(n int) string {
	if len(id) <= n {
		return string(id)
	}
	return string(id[:n])
}

// Timestamps tracks when a record was created and last changed, always in UTC
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewTimestamps() Timestamps {
	now := time.Now().UTC()
	return Timestamps{CreatedAt: now, UpdatedAt: now}
}

// Update returns a copy touched now
func (t Timestamps) Update() Timestamps {
	t.UpdatedAt = time.Now().UTC()
	return t
}

// DefaultCurrency is used when a booking omits the currency
const DefaultCurrency = "USD"

// Money is an amount in minor units (cents)
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

func (m Money) IsPositive() bool {
	return m.Amount > 0
}

// Plus adds cents in the same currency
func (m Money) Plus(cents int64) Money {
	m.Amount += cents
	return m
}

// WholeUnits drops the cents
func (m Money) WholeUnits() int64 {
	return m.Amount / 100
}

// String renders 250.00 USD
func (m Money) String() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, m.Currency)
}
