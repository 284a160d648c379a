package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dashboard/internal/i18n"
)

// Postgres keeps sessions in the dashboard_sessions table.
type Postgres struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgres creates a store on an open pool. The table is created by
// store.NewDB.
func NewPostgres(db *sql.DB, ttl time.Duration) *Postgres {
	return &Postgres{db: db, ttl: ttl}
}

func (p *Postgres) Save(ctx context.Context, s Session) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO dashboard_sessions (id, token, language, teacher_school_id, teacher_name, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token,
			language = EXCLUDED.language,
			teacher_school_id = EXCLUDED.teacher_school_id,
			teacher_name = EXCLUDED.teacher_name,
			expires_at = EXCLUDED.expires_at
	`, s.ID, s.Token, string(s.Language), s.TeacherSchoolID, s.TeacherName, s.CreatedAt, time.Now().UTC().Add(p.ttl))
	return err
}

func (p *Postgres) Get(ctx context.Context, id string) (Session, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, token, language, teacher_school_id, teacher_name, created_at
		FROM dashboard_sessions
		WHERE id = $1 AND expires_at > NOW()
	`, id)
	var (
		s    Session
		lang string
	)
	if err := row.Scan(&s.ID, &s.Token, &lang, &s.TeacherSchoolID, &s.TeacherName, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	s.Language = i18n.Language(lang)
	return s, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM dashboard_sessions WHERE id = $1`, id)
	return err
}

// Purge removes expired rows and reports how many were deleted.
func (p *Postgres) Purge(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM dashboard_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
