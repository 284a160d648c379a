package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies backend failures.
type Kind int

const (
	// KindTransport is a network or decoding failure.
	KindTransport Kind = iota + 1
	// KindStatus is a non-2xx response carrying a message.
	KindStatus
	// KindAuth is a missing, expired or rejected token.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindAuth:
		return "auth"
	}
	return "unknown"
}

// ErrUnauthorized matches any error of KindAuth via errors.Is.
var ErrUnauthorized = errors.New("backend: not authenticated")

// Error is returned by every Client call that fails.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0:
		msg := e.Message
		if msg == "" {
			msg = http.StatusText(e.Status)
		}
		return fmt.Sprintf("backend %s error (%d): %s", e.Kind, e.Status, msg)
	case e.Err != nil:
		return fmt.Sprintf("backend %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("backend %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnauthorized) match auth failures.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Kind == KindAuth
}

// UserMessage is the text shown to the teacher.
func UserMessage(err error) string {
	var be *Error
	if !errors.As(err, &be) {
		return err.Error()
	}
	switch be.Kind {
	case KindTransport:
		return "Server error, please try again"
	case KindAuth:
		return "Session expired, please log in again"
	}
	if be.Message != "" {
		return be.Message
	}
	return "Request failed"
}
