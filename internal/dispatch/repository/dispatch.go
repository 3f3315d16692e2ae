package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chakula-delivery/internal/dispatch/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DispatchRepository struct {
	DB *pgxpool.Pool
}

func NewDispatchRepository(database *pgxpool.Pool) *DispatchRepository {
	return &DispatchRepository{DB: database}
}

// Insert persists the dispatch and its initial history row in one
// transaction. The partial unique index on order_id rejects a second
// live dispatch for the same order; rejected and cancelled ones do not
// count.
func (r *DispatchRepository) Insert(ctx context.Context, d *model.Dispatch, first model.StatusHistory) (*model.Dispatch, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO dispatches (
			id, order_id, driver_id, dispatcher_id, route_id, status,
			assigned_at, distance_traveled_km, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$8)
	`, d.ID, d.OrderID, d.DriverID, d.DispatcherID, d.RouteID, d.Status, d.AssignedAt, d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert dispatch: %w", err)
	}

	if err := insertHistory(ctx, tx, first); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit dispatch insert: %w", err)
	}
	return d, nil
}

const dispatchColumns = `
	id, order_id, driver_id, dispatcher_id, route_id, status,
	current_lat, current_lng, location_updated_at,
	assigned_at, accepted_at, en_route_pickup_at, arrived_pickup_at,
	picked_up_at, en_route_delivery_at, arrived_delivery_at, delivered_at,
	distance_traveled_km, time_to_pickup_sec, time_to_delivery_sec,
	rating, feedback, created_at, updated_at
`

func (r *DispatchRepository) GetByID(ctx context.Context, id string) (*model.Dispatch, error) {
	query := fmt.Sprintf(`SELECT %s FROM dispatches WHERE id = $1`, dispatchColumns)
	return r.getOne(ctx, query, id)
}

// GetByOrderID returns the order's live dispatch when one exists, or
// the most recently assigned released one otherwise.
func (r *DispatchRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Dispatch, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM dispatches
		WHERE order_id = $1
		ORDER BY (status IN ('REJECTED', 'CANCELLED')), assigned_at DESC
		LIMIT 1
	`, dispatchColumns)
	return r.getOne(ctx, query, orderID)
}

func (r *DispatchRepository) getOne(ctx context.Context, query, arg string) (*model.Dispatch, error) {
	var d model.Dispatch
	err := r.DB.QueryRow(ctx, query, arg).Scan(
		&d.ID, &d.OrderID, &d.DriverID, &d.DispatcherID, &d.RouteID, &d.Status,
		&d.CurrentLat, &d.CurrentLng, &d.LocationUpdatedAt,
		&d.AssignedAt, &d.AcceptedAt, &d.EnRoutePickupAt, &d.ArrivedPickupAt,
		&d.PickedUpAt, &d.EnRouteDeliveryAt, &d.ArrivedDeliveryAt, &d.DeliveredAt,
		&d.DistanceTraveledKm, &d.TimeToPickupSec, &d.TimeToDeliverySec,
		&d.Rating, &d.Feedback, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get dispatch: %w", err)
	}
	return &d, nil
}

// legTimestampColumn maps a target status to the timestamp column it
// stamps, if any.
func legTimestampColumn(status model.DispatchStatus) string {
	switch status {
	case model.DispatchAccepted:
		return "accepted_at"
	case model.DispatchEnRoutePickup:
		return "en_route_pickup_at"
	case model.DispatchArrivedPickup:
		return "arrived_pickup_at"
	case model.DispatchPickedUp:
		return "picked_up_at"
	case model.DispatchEnRouteDelivery:
		return "en_route_delivery_at"
	case model.DispatchArrivedDelivery:
		return "arrived_delivery_at"
	case model.DispatchDelivered:
		return "delivered_at"
	}
	return ""
}

// UpdateStatusCAS moves the dispatch from -> to and appends the history
// row in the same transaction, so a committed status change always has
// its history record. The WHERE clause on the current status is the
// row-level guard: nothing is committed when another transition got
// there first.
func (r *DispatchRepository) UpdateStatusCAS(ctx context.Context, dispatchID string, from, to model.DispatchStatus, at time.Time, h model.StatusHistory) (bool, error) {
	query := `
		UPDATE dispatches
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	if col := legTimestampColumn(to); col != "" {
		query = fmt.Sprintf(`
			UPDATE dispatches
			SET status = $1, updated_at = $2, %s = $2
			WHERE id = $3 AND status = $4
		`, col)
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, query, to, at.UTC(), dispatchID, from)
	if err != nil {
		return false, fmt.Errorf("failed to update dispatch status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if err := insertHistory(ctx, tx, h); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit status transition: %w", err)
	}
	return true, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, h model.StatusHistory) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO dispatch_status_history (id, dispatch_id, status, actor_id, actor_role, lat, lng, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, h.ID, h.DispatchID, h.Status, h.ActorID, h.ActorRole, h.Lat, h.Lng, h.Notes, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert dispatch history: %w", err)
	}
	return nil
}

// UpdateLocation stores the driver's latest position and accumulates
// the travelled distance.
func (r *DispatchRepository) UpdateLocation(ctx context.Context, dispatchID string, lat, lng float64, at time.Time, distanceDeltaKm float64) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE dispatches
		SET current_lat = $1, current_lng = $2, location_updated_at = $3,
		    distance_traveled_km = distance_traveled_km + $4, updated_at = NOW()
		WHERE id = $5
	`, lat, lng, at.UTC(), distanceDeltaKm, dispatchID)
	if err != nil {
		return fmt.Errorf("failed to update dispatch location: %w", err)
	}
	return nil
}

func (r *DispatchRepository) SetMetrics(ctx context.Context, dispatchID string, timeToPickupSec, timeToDeliverySec *int64) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE dispatches
		SET time_to_pickup_sec = COALESCE($1, time_to_pickup_sec),
		    time_to_delivery_sec = COALESCE($2, time_to_delivery_sec),
		    updated_at = NOW()
		WHERE id = $3
	`, timeToPickupSec, timeToDeliverySec, dispatchID)
	if err != nil {
		return fmt.Errorf("failed to update dispatch metrics: %w", err)
	}
	return nil
}

// SetFeedback stores the customer rating. The status guard in the WHERE
// clause keeps feedback off anything but delivered dispatches.
func (r *DispatchRepository) SetFeedback(ctx context.Context, dispatchID string, rating int, feedback string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE dispatches
		SET rating = $1, feedback = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'DELIVERED'
	`, rating, feedback, dispatchID)
	if err != nil {
		return false, fmt.Errorf("failed to store dispatch feedback: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *DispatchRepository) History(ctx context.Context, dispatchID string) ([]model.StatusHistory, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, dispatch_id, status, actor_id, actor_role, lat, lng, notes, created_at
		FROM dispatch_status_history
		WHERE dispatch_id = $1
		ORDER BY created_at, id
	`, dispatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatch history: %w", err)
	}
	defer rows.Close()

	var out []model.StatusHistory
	for rows.Next() {
		var h model.StatusHistory
		if err := rows.Scan(&h.ID, &h.DispatchID, &h.Status, &h.ActorID, &h.ActorRole, &h.Lat, &h.Lng, &h.Notes, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
