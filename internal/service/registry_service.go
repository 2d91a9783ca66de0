package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"lpr-service/internal/domain/anpr"
	"lpr-service/internal/recognition"
)

type OwnerInput struct {
	Name       string `json:"name"`
	CPF        string `json:"cpf"`
	Phone      string `json:"phone"`
	Kind       string `json:"kind"`
	Authorized *bool  `json:"authorized"`
	Notes      string `json:"notes"`
}

type VehicleInput struct {
	Plate         string `json:"plate"`
	PlateCategory string `json:"plate_category"`
	OwnerID       *int64 `json:"owner_id"`
	Make          string `json:"make"`
	Model         string `json:"model"`
	Color         string `json:"color"`
	Kind          string `json:"kind"`
}

// RegistryService manages registered owners and vehicles and their alerts.
type RegistryService struct {
	store RegistryStore
	log   zerolog.Logger
}

func NewRegistryService(store RegistryStore, log zerolog.Logger) *RegistryService {
	return &RegistryService{
		store: store,
		log:   log.With().Str("component", "registry_service").Logger(),
	}
}

func (s *RegistryService) buildOwner(in OwnerInput) (*anpr.Owner, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	kind := strings.ToUpper(strings.TrimSpace(in.Kind))
	if kind == "" {
		kind = anpr.OwnerParticular
	}
	if kind != anpr.OwnerParticular && kind != anpr.OwnerOfficial {
		return nil, fmt.Errorf("%w: owner kind must be %s or %s", ErrInvalidInput, anpr.OwnerParticular, anpr.OwnerOfficial)
	}

	authorized := true
	if in.Authorized != nil {
		authorized = *in.Authorized
	}

	return &anpr.Owner{
		Name:       name,
		CPF:        strings.TrimSpace(in.CPF),
		Phone:      strings.TrimSpace(in.Phone),
		Kind:       kind,
		Authorized: authorized,
		Notes:      strings.TrimSpace(in.Notes),
	}, nil
}

func (s *RegistryService) CreateOwner(ctx context.Context, in OwnerInput) (*anpr.Owner, error) {
	owner, err := s.buildOwner(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateOwner(ctx, owner); err != nil {
		return nil, storeError("create owner", err)
	}
	s.log.Info().Int64("owner_id", owner.ID).Str("kind", owner.Kind).Msg("owner registered")
	return owner, nil
}

func (s *RegistryService) GetOwner(ctx context.Context, id int64) (*anpr.Owner, error) {
	owner, err := s.store.GetOwner(ctx, id)
	if err != nil {
		return nil, storeError("get owner", err)
	}
	return owner, nil
}

func (s *RegistryService) ListOwners(ctx context.Context, limit, offset int) ([]anpr.Owner, error) {
	owners, err := s.store.ListOwners(ctx, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	return owners, nil
}

func (s *RegistryService) UpdateOwner(ctx context.Context, id int64, in OwnerInput) (*anpr.Owner, error) {
	owner, err := s.buildOwner(in)
	if err != nil {
		return nil, err
	}
	owner.ID = id
	if err := s.store.UpdateOwner(ctx, owner); err != nil {
		return nil, storeError("update owner", err)
	}
	return s.GetOwner(ctx, id)
}

func (s *RegistryService) DeleteOwner(ctx context.Context, id int64) error {
	if err := s.store.DeleteOwner(ctx, id); err != nil {
		return storeError("delete owner", err)
	}
	return nil
}

// buildVehicle validates the plate against the Brazilian grammars. Without
// an explicit category, motorcycles get the *_MOTO variant.
func (s *RegistryService) buildVehicle(ctx context.Context, in VehicleInput) (*anpr.Vehicle, error) {
	kind := strings.ToUpper(strings.TrimSpace(in.Kind))
	if kind == "" {
		kind = anpr.VehicleCar
	}
	switch kind {
	case anpr.VehicleCar, anpr.VehicleMoto, anpr.VehicleTruck, anpr.VehicleOther:
	default:
		return nil, fmt.Errorf("%w: unknown vehicle kind %q", ErrInvalidInput, in.Kind)
	}

	plate, category, ok := recognition.Validate(in.Plate, kind == anpr.VehicleMoto)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a valid Brazilian plate", ErrInvalidInput, in.Plate)
	}
	if in.PlateCategory != "" {
		category = anpr.Category(strings.ToUpper(in.PlateCategory))
		if !category.Valid() {
			return nil, fmt.Errorf("%w: unknown plate category %q", ErrInvalidInput, in.PlateCategory)
		}
	}

	if in.OwnerID != nil {
		if _, err := s.store.GetOwner(ctx, *in.OwnerID); err != nil {
			err = storeError("get owner", err)
			return nil, fmt.Errorf("%w: owner %d: %v", ErrInvalidInput, *in.OwnerID, err)
		}
	}

	return &anpr.Vehicle{
		Plate:         plate,
		PlateCategory: category,
		OwnerID:       in.OwnerID,
		Make:          strings.TrimSpace(in.Make),
		Model:         strings.TrimSpace(in.Model),
		Color:         strings.TrimSpace(in.Color),
		Kind:          kind,
	}, nil
}

func (s *RegistryService) CreateVehicle(ctx context.Context, in VehicleInput) (*anpr.VehicleRecord, error) {
	vehicle, err := s.buildVehicle(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateVehicle(ctx, vehicle); err != nil {
		return nil, storeError("create vehicle", err)
	}
	s.log.Info().Int64("vehicle_id", vehicle.ID).Str("plate", vehicle.Plate).Msg("vehicle registered")
	return s.GetVehicle(ctx, vehicle.ID)
}

func (s *RegistryService) GetVehicle(ctx context.Context, id int64) (*anpr.VehicleRecord, error) {
	rec, err := s.store.GetVehicle(ctx, id)
	if err != nil {
		return nil, storeError("get vehicle", err)
	}
	return rec, nil
}

func (s *RegistryService) GetVehicleByPlate(ctx context.Context, plate string) (*anpr.VehicleRecord, error) {
	normalized, _, ok := recognition.Validate(plate, false)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a valid Brazilian plate", ErrInvalidInput, plate)
	}
	rec, err := s.store.FindVehicleByPlate(ctx, normalized)
	if err != nil {
		return nil, storeError("get vehicle", err)
	}
	return rec, nil
}

func (s *RegistryService) ListVehicles(ctx context.Context, ownerID *int64, limit, offset int) ([]anpr.VehicleRecord, error) {
	vehicles, err := s.store.ListVehicles(ctx, ownerID, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, nil
}

// UpdateVehicle replaces the registration data, keeping the flag state.
func (s *RegistryService) UpdateVehicle(ctx context.Context, id int64, in VehicleInput) (*anpr.VehicleRecord, error) {
	current, err := s.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.buildVehicle(ctx, in)
	if err != nil {
		return nil, err
	}
	vehicle.ID = id
	vehicle.Flagged = current.Flagged
	vehicle.FlagReason = current.FlagReason

	if err := s.store.UpdateVehicle(ctx, vehicle); err != nil {
		return nil, storeError("update vehicle", err)
	}
	return s.GetVehicle(ctx, id)
}

func (s *RegistryService) DeleteVehicle(ctx context.Context, id int64) error {
	if err := s.store.DeleteVehicle(ctx, id); err != nil {
		return storeError("delete vehicle", err)
	}
	return nil
}

// FlagVehicle marks a registered vehicle for attention; its next detections
// raise alerts.
func (s *RegistryService) FlagVehicle(ctx context.Context, plate, reason string) (*anpr.Alert, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	normalized, _, ok := recognition.Validate(plate, false)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a valid Brazilian plate", ErrInvalidInput, plate)
	}

	alert, err := s.store.FlagVehicle(ctx, normalized, reason)
	if err != nil {
		return nil, storeError("flag vehicle", err)
	}
	s.log.Warn().Str("plate", normalized).Str("reason", reason).Msg("vehicle flagged")
	return alert, nil
}

func (s *RegistryService) ListAlerts(ctx context.Context, onlyOpen bool, limit int) ([]anpr.Alert, error) {
	alerts, err := s.store.ListAlerts(ctx, onlyOpen, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

func (s *RegistryService) ResolveAlert(ctx context.Context, id int64) error {
	if err := s.store.ResolveAlert(ctx, id); err != nil {
		return storeError("resolve alert", err)
	}
	return nil
}
