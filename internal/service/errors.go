package service

import (
	"context"
	"errors"
	"time"

	"zedcmms/internal/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service sentinels. Domain errors raised by a service wrap its sentinel so
// callers can test the origin with errors.Is.
var (
	ErrInventoryService = errors.New("inventory service error")
	ErrUserService      = errors.New("user service error")
	ErrAssetService     = errors.New("asset service error")
	ErrWorksheetService = errors.New("worksheet service error")
	ErrPMService        = errors.New("pm service error")
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (stub repositories in tests).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func utcNow() time.Time { return time.Now().UTC() }

// notFound converts gorm.ErrRecordNotFound into a NotFound domain error.
func notFound(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource, id)
	}
	return err
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Validation(field, field+" must be a valid UUID")
	}
	return id, nil
}

func parseOptionalID(field string, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := parseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// optionalID maps uuid.Nil (the system actor) to a NULL column.
func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
