package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lpr-service/internal/domain/anpr"
	"lpr-service/internal/repository"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTokenInvalid       = errors.New("invalid or expired token")
)

// AccessStore persists detections. repository.Store implements it.
type AccessStore interface {
	CreateAccess(ctx context.Context, access *anpr.Access) error
	GetAccess(ctx context.Context, id int64) (*anpr.Access, error)
	ListAccesses(ctx context.Context, f anpr.AccessFilter) ([]anpr.Access, int64, error)
	UpdateAccess(ctx context.Context, id int64, u anpr.AccessUpdate) error
	DeleteAccess(ctx context.Context, id int64) error
	DeleteAccessesByPlate(ctx context.Context, plate string) (int64, error)
	DeleteAccessesBetween(ctx context.Context, from, to time.Time) (int64, error)
	DeleteAccessesBefore(ctx context.Context, before time.Time) (int64, error)
	CountAccesses(ctx context.Context, from, to time.Time) (int64, error)
	DistinctPlates(ctx context.Context, from, to time.Time) ([]string, error)
	CountAccessesBy(ctx context.Context, column string, from, to time.Time) (map[string]int64, error)
	PlateSightings(ctx context.Context, from, to time.Time) ([]anpr.PlateSighting, error)
}

// RegistryStore persists owners, vehicles and alerts.
type RegistryStore interface {
	CreateOwner(ctx context.Context, owner *anpr.Owner) error
	GetOwner(ctx context.Context, id int64) (*anpr.Owner, error)
	ListOwners(ctx context.Context, limit, offset int) ([]anpr.Owner, error)
	UpdateOwner(ctx context.Context, owner *anpr.Owner) error
	DeleteOwner(ctx context.Context, id int64) error

	CreateVehicle(ctx context.Context, vehicle *anpr.Vehicle) error
	GetVehicle(ctx context.Context, id int64) (*anpr.VehicleRecord, error)
	FindVehicleByPlate(ctx context.Context, plate string) (*anpr.VehicleRecord, error)
	ListVehicles(ctx context.Context, ownerID *int64, limit, offset int) ([]anpr.VehicleRecord, error)
	UpdateVehicle(ctx context.Context, vehicle *anpr.Vehicle) error
	DeleteVehicle(ctx context.Context, id int64) error
	FlagVehicle(ctx context.Context, plate, reason string) (*anpr.Alert, error)

	CreateAlert(ctx context.Context, alert *anpr.Alert) error
	ListAlerts(ctx context.Context, onlyOpen bool, limit int) ([]anpr.Alert, error)
	ResolveAlert(ctx context.Context, id int64) error
}

type OperatorStore interface {
	CreateOperator(ctx context.Context, op *anpr.Operator) error
	FindOperatorByUsername(ctx context.Context, username string) (*anpr.Operator, error)
}

var (
	_ AccessStore   = (*repository.Store)(nil)
	_ RegistryStore = (*repository.Store)(nil)
	_ OperatorStore = (*repository.Store)(nil)
)

// storeError maps repository errors onto the service sentinels.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %s", ErrConflict, op)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
