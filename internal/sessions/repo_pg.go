package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. The whole session is one JSONB
// document; chat_state is denormalised for ad-hoc queries.
type PGRepo struct {
	DB  *sql.DB
	TTL time.Duration
	Now func() time.Time
}

func (r *PGRepo) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// cutoff is the oldest updated_at still considered live.
func (r *PGRepo) cutoff() time.Time {
	if r.TTL <= 0 {
		return time.Time{}
	}
	return r.now().Add(-r.TTL)
}

// Create inserts a new session after purging expired rows.
func (r *PGRepo) Create(ctx context.Context, s Session) error {
	if r.TTL > 0 {
		if _, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < $1`, r.cutoff()); err != nil {
			return fmt.Errorf("purge expired sessions: %w", err)
		}
	}
	const query = `
INSERT INTO sessions (id, state, chat_state, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`
	payload, err := marshalState(s)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, s.ID, payload, string(s.Chat.State), s.CreatedAt, s.UpdatedAt)
	return err
}

// Get returns a live session by ID.
func (r *PGRepo) Get(ctx context.Context, id string) (Session, error) {
	const query = `
SELECT id, state, created_at, updated_at
FROM sessions
WHERE id = $1 AND updated_at >= $2
LIMIT 1`
	var (
		s       Session
		sid     string
		payload []byte
		created time.Time
		updated time.Time
	)
	err := r.DB.QueryRowContext(ctx, query, id, r.cutoff()).Scan(&sid, &payload, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	if err := json.Unmarshal(payload, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", sid, err)
	}
	s.ID = sid
	s.CreatedAt = created
	s.UpdatedAt = updated
	return s, nil
}

// Save overwrites the stored session and bumps updated_at.
func (r *PGRepo) Save(ctx context.Context, s Session) error {
	const query = `
UPDATE sessions
SET state = $2, chat_state = $3, updated_at = $4
WHERE id = $1`
	s.UpdatedAt = r.now()
	payload, err := marshalState(s)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, s.ID, payload, string(s.Chat.State), s.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a session.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func marshalState(s Session) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return b, nil
}
