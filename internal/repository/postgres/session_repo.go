// Package postgres stores presence and chat rows in PostgreSQL and pushes chat inserts over Redis.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"focusglobe/internal/models"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) ListSeenSince(ctx context.Context, since time.Time) ([]models.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, subject, message, latitude, longitude, last_seen
		FROM active_sessions
		WHERE last_seen > $1
		ORDER BY id
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.Name, &s.Subject, &s.Message, &s.Latitude, &s.Longitude, &s.LastSeen); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepo) Upsert(ctx context.Context, s *models.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO active_sessions (id, name, subject, message, latitude, longitude, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			subject = EXCLUDED.subject,
			message = EXCLUDED.message,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			last_seen = EXCLUDED.last_seen
	`, s.ID, s.Name, string(s.Subject), s.Message, s.Latitude, s.Longitude, s.LastSeen)
	return err
}

func (r *SessionRepo) Touch(ctx context.Context, id string, lastSeen time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE active_sessions
		SET last_seen = $2
		WHERE id = $1
	`, id, lastSeen)
	return err
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM active_sessions WHERE id = $1`, id)
	return err
}
