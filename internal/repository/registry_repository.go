package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lpr-service/internal/domain/anpr"
)

func (s *Store) CreateOwner(ctx context.Context, owner *anpr.Owner) error {
	row := ownerFromDomain(owner)
	row.CreatedAt = time.Now()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	owner.ID = row.ID
	owner.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) GetOwner(ctx context.Context, id int64) (*anpr.Owner, error) {
	var row Owner
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, translate(err)
	}
	out := row.toDomain()
	return &out, nil
}

func (s *Store) ListOwners(ctx context.Context, limit, offset int) ([]anpr.Owner, error) {
	var rows []Owner
	err := s.db.WithContext(ctx).
		Order("name").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]anpr.Owner, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) UpdateOwner(ctx context.Context, owner *anpr.Owner) error {
	row := ownerFromDomain(owner)
	res := s.db.WithContext(ctx).Model(&Owner{}).Where("id = ?", owner.ID).Updates(map[string]interface{}{
		"name":       row.Name,
		"cpf":        row.CPF,
		"phone":      row.Phone,
		"kind":       row.Kind,
		"authorized": row.Authorized,
		"notes":      row.Notes,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteOwner(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&Owner{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateVehicle(ctx context.Context, vehicle *anpr.Vehicle) error {
	row := vehicleFromDomain(vehicle)
	row.CreatedAt = time.Now()
	if err := s.db.WithContext(ctx).Omit("Owner").Create(&row).Error; err != nil {
		return translate(err)
	}
	vehicle.ID = row.ID
	vehicle.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) GetVehicle(ctx context.Context, id int64) (*anpr.VehicleRecord, error) {
	var row Vehicle
	if err := s.db.WithContext(ctx).Preload("Owner").First(&row, id).Error; err != nil {
		return nil, translate(err)
	}
	out := row.toRecord()
	return &out, nil
}

func (s *Store) FindVehicleByPlate(ctx context.Context, plate string) (*anpr.VehicleRecord, error) {
	var row Vehicle
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Where("plate = ?", plate).
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	out := row.toRecord()
	return &out, nil
}

func (s *Store) ListVehicles(ctx context.Context, ownerID *int64, limit, offset int) ([]anpr.VehicleRecord, error) {
	query := s.db.WithContext(ctx).Preload("Owner")
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}

	var rows []Vehicle
	err := query.
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]anpr.VehicleRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

func (s *Store) UpdateVehicle(ctx context.Context, vehicle *anpr.Vehicle) error {
	row := vehicleFromDomain(vehicle)
	res := s.db.WithContext(ctx).Model(&Vehicle{}).Where("id = ?", vehicle.ID).Updates(map[string]interface{}{
		"plate":          row.Plate,
		"plate_category": row.PlateCategory,
		"owner_id":       row.OwnerID,
		"make":           row.Make,
		"model":          row.Model,
		"color":          row.Color,
		"kind":           row.Kind,
		"flagged":        row.Flagged,
		"flag_reason":    row.FlagReason,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteVehicle(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&Vehicle{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FlagVehicle marks the vehicle and raises the matching alert in one
// transaction.
func (s *Store) FlagVehicle(ctx context.Context, plate, reason string) (*anpr.Alert, error) {
	var alert Alert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vehicle Vehicle
		if err := tx.Where("plate = ?", plate).First(&vehicle).Error; err != nil {
			return err
		}

		err := tx.Model(&vehicle).Updates(map[string]interface{}{
			"flagged":     true,
			"flag_reason": reason,
		}).Error
		if err != nil {
			return err
		}

		alert = Alert{
			VehicleID: &vehicle.ID,
			Plate:     vehicle.Plate,
			Kind:      anpr.AlertFlaggedVehicle,
			Message:   reason,
			CreatedAt: time.Now(),
		}
		return tx.Create(&alert).Error
	})
	if err != nil {
		return nil, translate(err)
	}

	out := alert.toDomain()
	return &out, nil
}

func (s *Store) CreateAlert(ctx context.Context, alert *anpr.Alert) error {
	row := Alert{
		VehicleID: alert.VehicleID,
		Plate:     alert.Plate,
		Kind:      alert.Kind,
		Message:   alert.Message,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	alert.ID = row.ID
	alert.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) ListAlerts(ctx context.Context, onlyOpen bool, limit int) ([]anpr.Alert, error) {
	query := s.db.WithContext(ctx).Model(&Alert{})
	if onlyOpen {
		query = query.Where("resolved = ?", false)
	}

	var rows []Alert
	if err := query.Order("created_at DESC").Limit(clampLimit(limit)).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]anpr.Alert, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) ResolveAlert(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&Alert{}).Where("id = ?", id).Update("resolved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
