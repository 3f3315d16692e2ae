package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chakula-delivery/internal/notification/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	DB *pgxpool.Pool
}

func NewNotificationRepository(database *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{DB: database}
}

func (r *NotificationRepository) Enqueue(ctx context.Context, n *model.Notification) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO notifications (
			id, recipient_id, recipient_role, category, channel,
			title, message, order_id, is_sent, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,FALSE,$9)
	`, n.ID, n.RecipientID, n.RecipientRole, n.Category, n.Channel, n.Title, n.Message, n.OrderID, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE notifications
		SET is_sent = TRUE, sent_at = $1
		WHERE id = $2
	`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Preferences(ctx context.Context, userID string) (*model.Preferences, error) {
	var p model.Preferences
	err := r.DB.QueryRow(ctx, `
		SELECT user_id, push, email, sms, realtime,
		       order_updates, delivery_updates, payment_updates, system_alerts,
		       updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`, userID).Scan(
		&p.UserID, &p.Push, &p.Email, &p.SMS, &p.Realtime,
		&p.OrderUpdates, &p.DeliveryUpdates, &p.PaymentUpdates, &p.SystemAlerts,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification preferences: %w", err)
	}
	return &p, nil
}

func (r *NotificationRepository) SavePreferences(ctx context.Context, p *model.Preferences) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO notification_preferences (
			user_id, push, email, sms, realtime,
			order_updates, delivery_updates, payment_updates, system_alerts, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (user_id) DO UPDATE SET
			push = EXCLUDED.push, email = EXCLUDED.email,
			sms = EXCLUDED.sms, realtime = EXCLUDED.realtime,
			order_updates = EXCLUDED.order_updates,
			delivery_updates = EXCLUDED.delivery_updates,
			payment_updates = EXCLUDED.payment_updates,
			system_alerts = EXCLUDED.system_alerts,
			updated_at = EXCLUDED.updated_at
	`, p.UserID, p.Push, p.Email, p.SMS, p.Realtime,
		p.OrderUpdates, p.DeliveryUpdates, p.PaymentUpdates, p.SystemAlerts, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save notification preferences: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]model.Notification, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, recipient_id, recipient_role, category, channel,
		       title, message, order_id, is_sent, sent_at, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.RecipientRole, &n.Category, &n.Channel,
			&n.Title, &n.Message, &n.OrderID, &n.IsSent, &n.SentAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
