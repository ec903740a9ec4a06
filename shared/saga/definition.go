package saga

import (
	"time"

	"github.com/pkg/errors"
)

// Step names of the booking pipeline
const (
	StepReserveSeat      = "ReserveSeat"
	StepAuthorizePayment = "AuthorizePayment"
	StepAwardMiles       = "AwardMiles"
	StepConfirmBooking   = "ConfirmBooking"
)

// BookingDefinitionName names the default booking pipeline
const BookingDefinitionName = "flight-booking"

const (
	DefaultStepTimeout    = 30 * time.Second
	DefaultConfirmTimeout = 60 * time.Second
)

// Endpoint is a remote action together with its call timeout
type Endpoint struct {
	Action  string
	Timeout time.Duration
}

// StepDescriptor declares one saga step
type StepDescriptor struct {
	Name          string
	Forward       Endpoint
	Compensate    Endpoint
	Compensatable bool
	// MaxAttempts bounds forward attempts on transport errors and timeouts. Zero means one.
	MaxAttempts int
}

func (s StepDescriptor) attempts() int {
	if s.MaxAttempts < 1 {
		return 1
	}
	return s.MaxAttempts
}

// Definition is an ordered pipeline of steps
type Definition struct {
	Name  string
	Steps []StepDescriptor
}

// Validate checks that the pipeline can be executed and compensated
func (d Definition) Validate() error {
	if d.Name == "" {
		return errors.New("saga definition name is required")
	}
	if len(d.Steps) == 0 {
		return errors.New("saga requires at least one step")
	}
	seen := make(map[string]struct{}, len(d.Steps))
	for _, step := range d.Steps {
		if step.Name == "" {
			return errors.New("saga step name is required")
		}
		if _, exists := seen[step.Name]; exists {
			return errors.Errorf("duplicate saga step: %s", step.Name)
		}
		seen[step.Name] = struct{}{}

		if step.Forward.Action == "" {
			return errors.Errorf("saga step %s has no forward action", step.Name)
		}
		if step.Forward.Timeout <= 0 {
			return errors.Errorf("saga step %s has no forward timeout", step.Name)
		}
		if step.Compensatable {
			if step.Compensate.Action == "" {
				return errors.Errorf("saga step %s is compensatable but has no compensation action", step.Name)
			}
			if step.Compensate.Timeout <= 0 {
				return errors.Errorf("saga step %s has no compensation timeout", step.Name)
			}
		}
	}
	return nil
}

// Step looks up a step by name
func (d Definition) Step(name string) (StepDescriptor, bool) {
	for _, s := range d.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepDescriptor{}, false
}

// StepNames lists the pipeline in execution order
func (d Definition) StepNames() []string {
	names := make([]string, len(d.Steps))
	for i, s := range d.Steps {
		names[i] = s.Name
	}
	return names
}

// BookingEndpoints holds the forward and compensation actions of the booking pipeline
type BookingEndpoints struct {
	ReserveSeat      string
	CancelSeat       string
	AuthorizePayment string
	CancelPayment    string
	AwardMiles       string
	ReverseMiles     string
	ConfirmBooking   string
	CancelBooking    string

	StepTimeout    time.Duration
	ConfirmTimeout time.Duration
}

// BookingEndpointsFromBase derives the participant action URLs from per-service base URLs
func BookingEndpointsFromBase(inventoryURL, paymentURL, loyaltyURL string) BookingEndpoints {
	return BookingEndpoints{
		ReserveSeat:      inventoryURL + "/api/saga/reserve-seat",
		CancelSeat:       inventoryURL + "/api/saga/cancel-seat",
		AuthorizePayment: paymentURL + "/api/saga/authorize-payment",
		CancelPayment:    paymentURL + "/api/saga/cancel-payment",
		AwardMiles:       loyaltyURL + "/api/saga/award-miles",
		ReverseMiles:     loyaltyURL + "/api/saga/reverse-miles",
		ConfirmBooking:   inventoryURL + "/api/saga/confirm-booking",
		CancelBooking:    inventoryURL + "/api/saga/cancel-booking",
	}
}

// BookingDefinition builds the default booking pipeline. Seats are held before money moves,
// money is authorized before miles are granted, and ticket confirmation runs last.
func BookingDefinition(e BookingEndpoints) Definition {
	stepTimeout := e.StepTimeout
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}
	confirmTimeout := e.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = DefaultConfirmTimeout
	}

	return Definition{
		Name: BookingDefinitionName,
		Steps: []StepDescriptor{
			{
				Name:          StepReserveSeat,
				Forward:       Endpoint{Action: e.ReserveSeat, Timeout: stepTimeout},
				Compensate:    Endpoint{Action: e.CancelSeat, Timeout: stepTimeout},
				Compensatable: true,
			},
			{
				Name:          StepAuthorizePayment,
				Forward:       Endpoint{Action: e.AuthorizePayment, Timeout: stepTimeout},
				Compensate:    Endpoint{Action: e.CancelPayment, Timeout: stepTimeout},
				Compensatable: true,
			},
			{
				Name:          StepAwardMiles,
				Forward:       Endpoint{Action: e.AwardMiles, Timeout: stepTimeout},
				Compensate:    Endpoint{Action: e.ReverseMiles, Timeout: stepTimeout},
				Compensatable: true,
			},
			{
				Name:          StepConfirmBooking,
				Forward:       Endpoint{Action: e.ConfirmBooking, Timeout: confirmTimeout},
				Compensate:    Endpoint{Action: e.CancelBooking, Timeout: stepTimeout},
				Compensatable: true,
			},
		},
	}
}
