package services

import (
	"context"
	"errors"
	"time"

	"github.com/ClarenceCat/awf-group-api/logging"
	"github.com/ClarenceCat/awf-group-api/models"
	"github.com/ClarenceCat/awf-group-api/repositories"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier records a message for a user. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, userID primitive.ObjectID, message string)
}

// DeliveryRecorder observes notification delivery outcomes.
type DeliveryRecorder interface {
	RecordNotification(delivered bool)
}

type NotificationService struct {
	repo     repositories.NotificationRepository
	breaker  *gobreaker.CircuitBreaker
	recorder DeliveryRecorder
	now      func() time.Time
}

// NewNotificationBreaker trips after more than three consecutive failures and
// probes again after timeout.
func NewNotificationBreaker(timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notifications-cb",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

func NewNotificationService(repo repositories.NotificationRepository, breaker *gobreaker.CircuitBreaker, recorder DeliveryRecorder) *NotificationService {
	return &NotificationService{repo: repo, breaker: breaker, recorder: recorder, now: time.Now}
}

// Notify never fails the caller; errors and open-breaker rejections are logged.
func (s *NotificationService) Notify(ctx context.Context, userID primitive.ObjectID, message string) {
	n := &models.Notification{
		UserID:    userID.Hex(),
		Message:   message,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.repo.Create(ctx, n)
	})
	if s.recorder != nil {
		s.recorder.RecordNotification(err == nil)
	}
	if err != nil {
		logging.Logger.Errorf("Event ID: NOTIFICATION_FAILED, Description: Could not notify user %s: %v", n.UserID, err)
		return
	}
	logging.Logger.Debugf("Event ID: NOTIFICATION_CREATED, Description: Notification %s for user %s", n.ID, n.UserID)
}

func (s *NotificationService) List(ctx context.Context, caller *models.User) ([]models.Notification, error) {
	list, err := s.repo.ListForUser(ctx, caller.ID.Hex())
	if err != nil {
		return nil, storageError("Failed to retrieve notifications", err)
	}
	return list, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, caller *models.User, notificationID, createdAt string) error {
	if notificationID == "" || createdAt == "" {
		return validationError("notification id and created_at are required")
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return validationError("created_at must be an RFC 3339 timestamp")
	}

	err = s.repo.MarkRead(ctx, caller.ID.Hex(), notificationID, ts)
	if errors.Is(err, repositories.ErrNotFound) {
		return notFoundError("notification not found")
	}
	if err != nil {
		return storageError("Failed to update notification", err)
	}
	return nil
}
