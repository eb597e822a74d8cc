package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rideshare/internal/domain"
)

// ProcessPaymentRequest contains the parameters for paying a passenger's fare.
type ProcessPaymentRequest struct {
	RideID      string
	PassengerID string
	Method      domain.PaymentMethod
}

// ProcessPayment marks a passenger's fare as paid. A fare can be paid once; a second
// attempt fails with ErrAlreadyPaid. Cancelled rides and passengers cannot be paid.
func (s *RideService) ProcessPayment(ctx context.Context, actor domain.Actor, req ProcessPaymentRequest) (*domain.PaymentReceipt, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.PassengerID == "" {
		return nil, ErrInvalidPassengerID
	}
	if err := req.Method.Validate(); err != nil {
		return nil, err
	}

	var receipt domain.PaymentReceipt
	var payer string
	ride, err := s.mutate(ctx, req.RideID, func(ride *domain.Ride, now time.Time) error {
		p, ok := ride.Passenger(req.PassengerID)
		if !ok {
			return domain.ErrPassengerNotFound
		}
		if err := authorizePayer(actor, ride, p); err != nil {
			return err
		}
		if ride.Status == domain.RideStatusCancelled {
			return &domain.TransitionError{Current: string(ride.Status), Attempted: "pay"}
		}
		if p.Status == domain.PassengerStatusCancelled {
			return &domain.TransitionError{Current: string(p.Status), Attempted: "pay"}
		}
		if p.Fare.Paid {
			return ErrAlreadyPaid
		}

		method := req.Method
		paidAt := now
		p.Fare.Paid = true
		p.Fare.PaymentMethod = &method
		p.Fare.PaymentID = newPaymentID()
		p.Fare.PaidAt = &paidAt
		ride.UpdatedAt = now

		receipt = domain.PaymentReceipt{
			PaymentID: p.Fare.PaymentID,
			Amount:    p.Fare.Total,
			Currency:  p.Fare.Currency,
		}
		payer = p.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment processed",
		zap.String("ride_id", ride.ID),
		zap.String("passenger_id", req.PassengerID),
		zap.String("payment_id", receipt.PaymentID),
		zap.String("method", string(req.Method.Type)),
		zap.Int64("amount", receipt.Amount),
	)
	event := s.event(domain.EventPaymentProcessed, ride, actor.ID)
	event.PassengerID = req.PassengerID
	event.Data = map[string]string{"payment_id": receipt.PaymentID}
	s.notifications.NotifyUsers(ctx, ride.ID, event, payer, ride.DriverID)
	return &receipt, nil
}

// newPaymentID returns an opaque payment identifier.
func newPaymentID() string {
	return "pay_" + uuid.New().String()
}

// authorizePayer allows the passenger themself, the ride's driver (cash collection) or an admin.
func authorizePayer(actor domain.Actor, ride *domain.Ride, p *domain.Passenger) error {
	if actor.ID != "" && actor.ID == p.UserID {
		return nil
	}
	if authorizeDriver(actor, ride) == nil {
		return nil
	}
	return ErrNotPermitted
}
