package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chakula-delivery/internal/tracking/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	DB *pgxpool.Pool
}

func NewSessionRepository(database *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{DB: database}
}

// Insert persists a new active session. The partial unique index on
// (order_id) WHERE active enforces the one-active-session invariant, so
// a racing insert fails here.
func (r *SessionRepository) Insert(ctx context.Context, s *model.Session) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO tracking_sessions (
			id, order_id, dispatch_id, driver_id, active,
			distance_traveled_km, started_at, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,TRUE,0,$5,$6,$6)
	`, s.ID, s.OrderID, s.DispatchID, s.DriverID, s.StartedAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tracking session: %w", err)
	}
	return nil
}

const sessionColumns = `
	id, order_id, dispatch_id, driver_id, active,
	current_lat, current_lng, last_ping_at,
	distance_to_pickup_km, distance_to_delivery_km, distance_traveled_km,
	estimated_pickup_at, estimated_delivery_at,
	started_at, ended_at, created_at, updated_at
`

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM tracking_sessions WHERE id = $1`, sessionColumns)
	return r.scanOne(ctx, query, id)
}

func (r *SessionRepository) GetActiveByOrderID(ctx context.Context, orderID string) (*model.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM tracking_sessions WHERE order_id = $1 AND active`, sessionColumns)
	return r.scanOne(ctx, query, orderID)
}

func (r *SessionRepository) scanOne(ctx context.Context, query, arg string) (*model.Session, error) {
	var s model.Session
	err := r.DB.QueryRow(ctx, query, arg).Scan(
		&s.ID, &s.OrderID, &s.DispatchID, &s.DriverID, &s.Active,
		&s.CurrentLat, &s.CurrentLng, &s.LastPingAt,
		&s.DistanceToPickupKm, &s.DistanceToDeliveryKm, &s.DistanceTraveledKm,
		&s.EstimatedPickupAt, &s.EstimatedDeliveryAt,
		&s.StartedAt, &s.EndedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tracking session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) UpdatePosition(ctx context.Context, sessionID string, lat, lng float64, at time.Time, distanceToPickupKm, distanceToDeliveryKm *float64, distanceDeltaKm float64, estPickupAt, estDeliveryAt *time.Time) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE tracking_sessions
		SET current_lat = $1, current_lng = $2, last_ping_at = $3,
		    distance_to_pickup_km = COALESCE($4, distance_to_pickup_km),
		    distance_to_delivery_km = COALESCE($5, distance_to_delivery_km),
		    distance_traveled_km = distance_traveled_km + $6,
		    estimated_pickup_at = COALESCE($7, estimated_pickup_at),
		    estimated_delivery_at = COALESCE($8, estimated_delivery_at),
		    updated_at = NOW()
		WHERE id = $9
	`, lat, lng, at.UTC(), distanceToPickupKm, distanceToDeliveryKm, distanceDeltaKm, estPickupAt, estDeliveryAt, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session position: %w", err)
	}
	return nil
}

// End deactivates the session. The active guard makes ending idempotent:
// zero rows affected means it was already closed.
func (r *SessionRepository) End(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE tracking_sessions
		SET active = FALSE, ended_at = $1, updated_at = $1
		WHERE id = $2 AND active
	`, at.UTC(), sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to end tracking session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SessionRepository) AppendEvent(ctx context.Context, e model.TrackingEvent) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO tracking_events (id, session_id, type, lat, lng, speed_kmh, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, e.ID, e.SessionID, e.Type, e.Lat, e.Lng, e.SpeedKmh, e.Notes, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tracking event: %w", err)
	}
	return nil
}

func (r *SessionRepository) Events(ctx context.Context, sessionID string) ([]model.TrackingEvent, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, session_id, type, lat, lng, speed_kmh, notes, created_at
		FROM tracking_events
		WHERE session_id = $1
		ORDER BY created_at, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking events: %w", err)
	}
	defer rows.Close()

	var out []model.TrackingEvent
	for rows.Next() {
		var e model.TrackingEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Type, &e.Lat, &e.Lng, &e.SpeedKmh, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tracking event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SessionRepository) GeofencesForOrder(ctx context.Context, orderID string) ([]model.Geofence, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, name, kind, center_lat, center_lng, radius_m, active, created_at
		FROM geofences
		WHERE order_id = $1 AND active
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query geofences: %w", err)
	}
	defer rows.Close()

	var out []model.Geofence
	for rows.Next() {
		var g model.Geofence
		if err := rows.Scan(&g.ID, &g.OrderID, &g.Name, &g.Kind, &g.CenterLat, &g.CenterLng, &g.RadiusM, &g.Active, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan geofence: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
