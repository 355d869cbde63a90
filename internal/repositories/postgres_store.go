// repositories/postgres_store.go

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/evn/grubana/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (r *PostgresStore) GetLocation(ctx context.Context, ownerID string) (*models.TruckLocationRecord, error) {
	query := `
		SELECT owner_id, visible, is_live, last_active, session_start_time, lat, lng
		FROM truck_locations
		WHERE owner_id = $1
	`
	rec, err := scanLocation(r.db.QueryRowContext(ctx, query, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get truck location %q: %w", ownerID, err)
	}
	return rec, nil
}

// UpsertLocation writes only the columns the update carries; COALESCE keeps the rest.
func (r *PostgresStore) UpsertLocation(ctx context.Context, ownerID string, u models.LocationUpdate) error {
	query := `
		INSERT INTO truck_locations (owner_id, visible, is_live, last_active, session_start_time, lat, lng, updated_at)
		VALUES ($1, COALESCE($2::boolean, TRUE), COALESCE($3::boolean, FALSE), $4::timestamptz, $5::timestamptz, $6::double precision, $7::double precision, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			visible            = COALESCE($2::boolean, truck_locations.visible),
			is_live            = COALESCE($3::boolean, truck_locations.is_live),
			last_active        = COALESCE($4::timestamptz, truck_locations.last_active),
			session_start_time = COALESCE($5::timestamptz, truck_locations.session_start_time),
			lat                = COALESCE($6::double precision, truck_locations.lat),
			lng                = COALESCE($7::double precision, truck_locations.lng),
			updated_at         = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		ownerID,
		u.Visible,
		u.IsLive,
		u.LastActive,
		u.SessionStartTime,
		u.Lat,
		u.Lng,
	)
	if err != nil {
		return fmt.Errorf("upsert truck location %q: %w", ownerID, err)
	}
	return nil
}

func (r *PostgresStore) ExpireSession(ctx context.Context, ownerID string, lastActive, sessionStart time.Time) (bool, error) {
	query := `
		UPDATE truck_locations
		SET is_live = FALSE, updated_at = NOW()
		WHERE owner_id = $1
		  AND is_live
		  AND last_active IS NOT DISTINCT FROM $2::timestamptz
		  AND session_start_time IS NOT DISTINCT FROM $3::timestamptz
	`
	res, err := r.db.ExecContext(ctx, query, ownerID, nullTime(lastActive), nullTime(sessionStart))
	if err != nil {
		return false, fmt.Errorf("expire session %q: %w", ownerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("expire session %q: %w", ownerID, err)
	}
	return n > 0, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (r *PostgresStore) ListLocations(ctx context.Context) ([]models.TruckLocationRecord, error) {
	query := `
		SELECT owner_id, visible, is_live, last_active, session_start_time, lat, lng
		FROM truck_locations
		ORDER BY owner_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list truck locations: %w", err)
	}
	defer rows.Close()

	var result []models.TruckLocationRecord
	for rows.Next() {
		rec, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("list truck locations: scan row: %w", err)
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

func (r *PostgresStore) GetBusinessHours(ctx context.Context, ownerID string) (models.BusinessHours, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT business_hours FROM owner_profiles WHERE owner_id = $1", ownerID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get business hours %q: %w", ownerID, err)
	}
	if raw == nil {
		return nil, nil
	}

	var hours models.BusinessHours
	if err := json.Unmarshal(raw, &hours); err != nil {
		return nil, fmt.Errorf("get business hours %q: %w: %w", ownerID, ErrMalformedHours, err)
	}
	return hours.Normalize(), nil
}

func (r *PostgresStore) SetBusinessHours(ctx context.Context, ownerID string, hours models.BusinessHours) error {
	raw, err := json.Marshal(hours)
	if err != nil {
		return fmt.Errorf("set business hours %q: encode: %w", ownerID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO owner_profiles (owner_id, business_hours, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (owner_id) DO UPDATE
		SET business_hours = EXCLUDED.business_hours,
			updated_at = NOW()
	`, ownerID, string(raw))
	if err != nil {
		return fmt.Errorf("set business hours %q: %w", ownerID, err)
	}
	return nil
}

// ListOwnersWithoutBusinessHours covers owners with a profile row holding no schedule
// and owners that went live before any profile row existed.
func (r *PostgresStore) ListOwnersWithoutBusinessHours(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT owner_id FROM owner_profiles WHERE business_hours IS NULL
		UNION
		SELECT l.owner_id
		FROM truck_locations l
		LEFT JOIN owner_profiles p ON p.owner_id = l.owner_id
		WHERE p.owner_id IS NULL
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("list owners without business hours: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list owners without business hours: scan row: %w", err)
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (*models.TruckLocationRecord, error) {
	var (
		rec          models.TruckLocationRecord
		lastActive   sql.NullTime
		sessionStart sql.NullTime
		lat, lng     sql.NullFloat64
	)
	if err := row.Scan(&rec.OwnerID, &rec.Visible, &rec.IsLive, &lastActive, &sessionStart, &lat, &lng); err != nil {
		return nil, err
	}
	rec.LastActive = timeFromNull(lastActive)
	rec.SessionStartTime = timeFromNull(sessionStart)
	if lat.Valid {
		rec.Lat = &lat.Float64
	}
	if lng.Valid {
		rec.Lng = &lng.Float64
	}
	return &rec, nil
}

func timeFromNull(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}
