package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/ride-notify/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// Migrate applies every *.sql file in dir in lexical order. Scripts must be
// idempotent.
func (p *PostgresStore) Migrate(ctx context.Context, dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	applied := make([]string, 0, len(files))
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return applied, err
		}
		if _, err := p.db.ExecContext(ctx, string(b)); err != nil {
			return applied, fmt.Errorf("migration %s: %w", filepath.Base(f), err)
		}
		applied = append(applied, filepath.Base(f))
	}
	return applied, nil
}

const insertNotification = `INSERT INTO notifications
	(id, recipient_id, role, ride_id, category, title, body, payload, read, viewed, created_at, expires_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (id) DO NOTHING`

func (p *PostgresStore) CommitNotifications(ctx context.Context, batch []models.Notification) (err error) {
	if len(batch) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertNotification)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, n := range batch {
		payload, merr := json.Marshal(n.Payload)
		if merr != nil {
			return fmt.Errorf("encode payload for %s: %w", n.ID, merr)
		}
		if _, err = stmt.ExecContext(ctx, n.ID, n.RecipientID, string(n.Role), n.RideID, string(n.Category),
			n.Title, n.Body, payload, n.Read, n.Viewed, n.CreatedAt, n.ExpiresAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *PostgresStore) MergeLastMessage(ctx context.Context, rideID string, msg models.LastMessage, updatedAt time.Time) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO rides (id, last_message, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET last_message = EXCLUDED.last_message, updated_at = EXCLUDED.updated_at`,
		rideID, b, updatedAt)
	return err
}

func (p *PostgresStore) CreateShareLink(ctx context.Context, l models.ShareLink) error {
	opts, err := json.Marshal(l.Options)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO share_links (token, ride_id, passenger_id, url, options, active, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		l.Token, l.RideID, l.PassengerID, l.URL, opts, l.Active, l.CreatedAt, l.ExpiresAt)
	return err
}

func (p *PostgresStore) GetShareLink(ctx context.Context, token string) (models.ShareLink, error) {
	var (
		l    models.ShareLink
		opts []byte
	)
	err := p.db.QueryRowContext(ctx, `SELECT token, ride_id, passenger_id, url, options, active, created_at, expires_at
		FROM share_links WHERE token = $1`, token).
		Scan(&l.Token, &l.RideID, &l.PassengerID, &l.URL, &opts, &l.Active, &l.CreatedAt, &l.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ShareLink{}, ErrNotFound
	}
	if err != nil {
		return models.ShareLink{}, err
	}
	if err := json.Unmarshal(opts, &l.Options); err != nil {
		return models.ShareLink{}, fmt.Errorf("decode share options: %w", err)
	}
	return l, nil
}

func (p *PostgresStore) Upsert(ctx context.Context, d models.DriverLocation) error {
	updated := d.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO driver_locations (driver_id, status, geohash, updated_at) VALUES ($1,$2,$3,$4)
		ON CONFLICT (driver_id) DO UPDATE SET status = EXCLUDED.status, geohash = EXCLUDED.geohash, updated_at = EXCLUDED.updated_at`,
		d.DriverID, string(d.Status), d.Geohash, updated)
	return err
}

// OnlineDrivers compares geohashes bytewise so the range matches the other
// backends regardless of the database collation.
func (p *PostgresStore) OnlineDrivers(ctx context.Context, lo, hi string, limit int) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT driver_id FROM driver_locations
		WHERE status = $1 AND geohash COLLATE "C" >= $2 AND geohash COLLATE "C" < $3
		ORDER BY geohash COLLATE "C"
		LIMIT $4`, string(models.DriverOnline), lo, hi, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *PostgresStore) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PostgresStore) Close() error { return p.db.Close() }
