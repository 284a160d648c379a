package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dashboard/internal/i18n"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

// Session is the state of one logged-in teacher. It is created on login and
// removed on logout.
type Session struct {
	ID              string        `json:"id"`
	Token           string        `json:"token"`
	Language        i18n.Language `json:"language"`
	TeacherSchoolID string        `json:"teacherSchoolId"`
	TeacherName     string        `json:"teacherName"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// New starts a session for a backend token.
func New(token string, lang i18n.Language) Session {
	if lang == "" {
		lang = i18n.English
	}
	return Session{
		ID:        uuid.NewString(),
		Token:     token,
		Language:  lang,
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists sessions between requests.
type Store interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}
