package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"rideshare/internal/domain"
)

// Notifier delivers an event on a channel. Channels are keyed by ride or user identity.
type Notifier interface {
	Publish(ctx context.Context, channel string, event domain.Event) error
}

// NotificationService fans ride events out to every affected party.
// Delivery failures are logged and never returned.
type NotificationService struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(notifier Notifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{notifier: notifier, logger: logger}
}

// NotifyRide publishes event on the ride channel and on the channel of every user on the ride.
func (s *NotificationService) NotifyRide(ctx context.Context, ride *domain.Ride, event domain.Event) {
	s.send(ctx, domain.RideChannel(ride.ID), event)
	for _, userID := range affectedUsers(ride) {
		s.send(ctx, domain.UserChannel(userID), event)
	}
}

// NotifyUsers publishes event on the ride channel and on the given users' channels.
func (s *NotificationService) NotifyUsers(ctx context.Context, rideID string, event domain.Event, userIDs ...string) {
	s.send(ctx, domain.RideChannel(rideID), event)
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		s.send(ctx, domain.UserChannel(id), event)
	}
}

func (s *NotificationService) send(ctx context.Context, channel string, event domain.Event) {
	if s == nil || s.notifier == nil {
		return
	}
	// the mutation has already committed; a cancelled request must not drop the event
	ctx = context.WithoutCancel(ctx)
	if err := s.notifier.Publish(ctx, channel, event); err != nil {
		s.logger.Warn("notification dropped",
			zap.String("channel", channel),
			zap.String("event", string(event.Type)),
			zap.String("ride_id", event.RideID),
			zap.Error(err),
		)
	}
}

// affectedUsers returns the driver and every passenger's user, deduplicated, in ride order.
func affectedUsers(ride *domain.Ride) []string {
	seen := make(map[string]bool)
	var users []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			users = append(users, id)
		}
	}
	add(ride.DriverID)
	for _, p := range ride.Passengers {
		add(p.UserID)
	}
	return users
}

// MultiNotifier publishes to every notifier and joins their errors.
type MultiNotifier []Notifier

// Publish implements Notifier.
func (m MultiNotifier) Publish(ctx context.Context, channel string, event domain.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Publish(ctx, channel, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes events to the log instead of delivering them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Publish implements Notifier.
func (n *LogNotifier) Publish(ctx context.Context, channel string, event domain.Event) error {
	n.logger.Info("notification",
		zap.String("channel", channel),
		zap.String("event", string(event.Type)),
		zap.String("ride_id", event.RideID),
		zap.String("status", string(event.Status)),
	)
	return nil
}
