package domain

import (
	"sync"

	"github.com/draftea/flight-booking/shared/models"
)

// OtherCharges is added on top of the fare when authorizing, in cents
const OtherCharges int64 = 5000

// AuthorizationStatus represents the status of a payment authorization
type AuthorizationStatus string

const (
	AuthorizationAuthorized AuthorizationStatus = "AUTHORIZED"
	AuthorizationVoided     AuthorizationStatus = "VOIDED"
)

// Authorization is a hold on the customer's funds for one booking
type Authorization struct {
	ID            string
	CorrelationID string
	Amount        models.Money
	Status        AuthorizationStatus
	Timestamps    models.Timestamps
}

// AuthorizationID derives the authorization id from the booking correlation id
func AuthorizationID(correlationID string) string {
	return "AUTH-" + models.ID(correlationID).Short(8)
}

// Void cancels the authorization
func (a *Authorization) Void() bool {
	if a.Status == AuthorizationVoided {
		return false
	}
	a.Status = AuthorizationVoided
	a.Timestamps = a.Timestamps.Update()
	return true
}

// Payments keeps authorizations by correlation id
type Payments struct {
	mux            sync.Mutex
	authorizations map[string]*Authorization
}

func NewPayments() *Payments {
	return &Payments{authorizations: make(map[string]*Authorization)}
}

// Authorize holds fare plus OtherCharges. Repeated calls return the first authorization.
func (p *Payments) Authorize(correlationID string, fare models.Money) (Authorization, error) {
	p.mux.Lock()
	defer p.mux.Unlock()

	if auth, ok := p.authorizations[correlationID]; ok {
		if auth.Status == AuthorizationVoided {
			return Authorization{}, ErrPaymentVoided
		}
		return *auth, nil
	}
	if !fare.IsPositive() {
		return Authorization{}, ErrInvalidAmount
	}

	auth := &Authorization{
		ID:            AuthorizationID(correlationID),
		CorrelationID: correlationID,
		Amount:        fare.Plus(OtherCharges),
		Status:        AuthorizationAuthorized,
		Timestamps:    models.NewTimestamps(),
	}
	p.authorizations[correlationID] = auth
	return *auth, nil
}

// Cancel voids the authorization. It reports false when there was none.
func (p *Payments) Cancel(correlationID string) (Authorization, bool) {
	p.mux.Lock()
	defer p.mux.Unlock()

	auth, ok := p.authorizations[correlationID]
	if !ok {
		return Authorization{}, false
	}
	auth.Void()
	return *auth, true
}
