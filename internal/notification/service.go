package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotRecipient         = errors.New("account is not the recipient of this notification")
)

// Service handles notification business logic
type Service struct {
	repo *Repository
}

// NewService creates a new notification service
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Notify records a notification for an account. Failures are logged rather
// than returned so callers never fail their own operation on a notification
// write.
func (s *Service) Notify(ctx context.Context, recipientID int64, message string, entityType string, entityID int64) {
	if _, err := s.repo.Create(ctx, recipientID, message, &entityType, &entityID); err != nil {
		slog.Error("failed to write notification",
			"recipient_id", recipientID,
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err)
	}
}

// List returns notifications for the given account
func (s *Service) List(ctx context.Context, recipientID int64, limit, offset int, unreadOnly bool) ([]*Notification, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	notifications, total, err := s.repo.ListByRecipientID(ctx, recipientID, limit, offset, unreadOnly)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkRead marks a notification as read after checking the caller owns it
func (s *Service) MarkRead(ctx context.Context, id, accountID int64) (*Notification, error) {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	if notification == nil {
		return nil, ErrNotificationNotFound
	}
	if notification.RecipientID != accountID {
		return nil, ErrNotRecipient
	}

	if notification.IsRead {
		return notification, nil
	}

	if err := s.repo.MarkAsRead(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to mark notification as read: %w", err)
	}
	notification.IsRead = true

	return notification, nil
}
