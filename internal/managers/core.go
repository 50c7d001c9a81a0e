// Package managers implements page models of CTF client.
//
// Every page model owns its fetched state, exposes page actions and
// re-fetches its state after every mutation.
package managers

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/pkg/logs"
	"github.com/horusctf/horus/internal/session"
)

// Core contains dependencies shared by page models.
type Core struct {
	Client   *api.Client
	Session  *session.Store
	Notifier Notifier
	Logger   *logs.Logger
	// Now returns current time, time.Now is used when nil.
	Now func() time.Time
}

func (c *Core) notify(kind NotificationKind, message string) {
	if c.Notifier != nil {
		c.Notifier.Notify(Notification{Kind: kind, Message: message})
	}
}

func (c *Core) logger() *logs.Logger {
	if c.Logger == nil {
		return logs.Discard()
	}
	return c.Logger
}

func (c *Core) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// ValidationError is returned when form fails static validation.
//
// Mutating request is never issued for invalid form.
type ValidationError struct {
	Errors error
}

func (e *ValidationError) Error() string {
	return e.Errors.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Errors
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		return &ValidationError{Errors: errs}
	}
	return err
}

// ErrorMessage returns message that should be shown for error.
func ErrorMessage(err error, fallback string) string {
	var invalid *ValidationError
	if errors.As(err, &invalid) {
		return invalid.Error()
	}
	var batch *BatchError
	if errors.As(err, &batch) {
		return err.Error()
	}
	var rejected *FlagRejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	return api.Detail(err, fallback)
}
