package saga

import (
	"strings"

	"github.com/draftea/flight-booking/shared/models"
	validatorv10 "github.com/go-playground/validator/v10"
)

// Seat classes accepted by the inventory service
const (
	SeatClassEconomy  = "economy"
	SeatClassBusiness = "business"
	SeatClassFirst    = "first"
)

// Passenger travelling on the booking
type Passenger struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Gender    string `json:"gender,omitempty"`
}

// ContactInfo is where the booking confirmation goes
type ContactInfo struct {
	Email  string `json:"email" validate:"required,email"`
	Mobile string `json:"mobile,omitempty"`
}

// BookingPayload is the immutable snapshot of a booking request. Every step and
// compensation receives it unchanged.
type BookingPayload struct {
	FlightID        int64        `json:"flight_id" validate:"required,gt=0"`
	UserID          string       `json:"user_id" validate:"required"`
	Passengers      []Passenger  `json:"passengers" validate:"required,min=1,dive"`
	ContactInfo     ContactInfo  `json:"contact_info"`
	SeatClass       string       `json:"seat_class" validate:"omitempty,oneof=economy business first"`
	Fare            models.Money `json:"fare"`
	SimulateFailure []string     `json:"simulate_failure,omitempty"`
}

var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterStructValidation(fareStructValidation, BookingPayload{})
	return v
}

// fareStructValidation rejects non-positive fares
func fareStructValidation(sl validatorv10.StructLevel) {
	p := sl.Current().Interface().(BookingPayload)
	if !p.Fare.IsPositive() {
		sl.ReportError(p.Fare.Amount, "fare", "Fare", "fare_positive", "")
	}
}

// Normalize fills defaults that the caller may omit
func (p *BookingPayload) Normalize() {
	p.SeatClass = strings.ToLower(strings.TrimSpace(p.SeatClass))
	if p.SeatClass == "" {
		p.SeatClass = SeatClassEconomy
	}
	if p.Fare.Currency == "" {
		p.Fare.Currency = models.DefaultCurrency
	}
}

// Validate checks the payload once at saga entry
func (p BookingPayload) Validate() error {
	if err := payloadValidator.Struct(p); err != nil {
		return NewError(CodeValidation, "", err)
	}
	return nil
}

// PassengerCount is the number of seats the booking needs
func (p BookingPayload) PassengerCount() int {
	return len(p.Passengers)
}

// ShouldFail reports whether the caller asked step to be rejected
func (p BookingPayload) ShouldFail(step string) bool {
	for _, s := range p.SimulateFailure {
		if strings.EqualFold(s, step) {
			return true
		}
	}
	return false
}

func (p BookingPayload) clone() BookingPayload {
	p.Passengers = append([]Passenger(nil), p.Passengers...)
	p.SimulateFailure = append([]string(nil), p.SimulateFailure...)
	return p
}
