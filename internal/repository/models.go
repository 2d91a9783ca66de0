package repository

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"lpr-service/internal/domain/anpr"
)

type Owner struct {
	ID         int64   `gorm:"primaryKey"`
	Name       string  `gorm:"not null"`
	CPF        *string `gorm:"column:cpf;uniqueIndex"`
	Phone      *string
	Kind       string `gorm:"not null"`
	Authorized bool   `gorm:"not null"`
	Notes      *string
	CreatedAt  time.Time
}

type Vehicle struct {
	ID            int64  `gorm:"primaryKey"`
	Plate         string `gorm:"not null;uniqueIndex"`
	PlateCategory string `gorm:"not null"`
	OwnerID       *int64
	Owner         *Owner `gorm:"foreignKey:OwnerID"`
	Make          *string
	Model         *string
	Color         *string
	Kind          string `gorm:"not null"`
	Flagged       bool   `gorm:"not null"`
	FlagReason    *string
	CreatedAt     time.Time
}

type Access struct {
	ID          int64 `gorm:"primaryKey"`
	VehicleID   *int64
	Plate       string  `gorm:"not null"`
	Category    string  `gorm:"not null"`
	EventKind   string  `gorm:"not null"`
	Confidence  float64 `gorm:"not null"`
	FrameNumber *int64
	Source      *string
	SessionID   *string
	ImagePath   *string
	Fragments   datatypes.JSON
	DetectedAt  time.Time `gorm:"not null"`
}

func (Access) TableName() string {
	return "accesses"
}

type Alert struct {
	ID        int64 `gorm:"primaryKey"`
	VehicleID *int64
	Plate     string `gorm:"not null"`
	Kind      string `gorm:"not null"`
	Message   string `gorm:"not null"`
	Resolved  bool   `gorm:"not null"`
	CreatedAt time.Time
}

type Operator struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null"`
	Active       bool   `gorm:"not null"`
	CreatedAt    time.Time
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ownerFromDomain(o *anpr.Owner) Owner {
	return Owner{
		ID:         o.ID,
		Name:       o.Name,
		CPF:        optional(o.CPF),
		Phone:      optional(o.Phone),
		Kind:       o.Kind,
		Authorized: o.Authorized,
		Notes:      optional(o.Notes),
		CreatedAt:  o.CreatedAt,
	}
}

func (o Owner) toDomain() anpr.Owner {
	return anpr.Owner{
		ID:         o.ID,
		Name:       o.Name,
		CPF:        deref(o.CPF),
		Phone:      deref(o.Phone),
		Kind:       o.Kind,
		Authorized: o.Authorized,
		Notes:      deref(o.Notes),
		CreatedAt:  o.CreatedAt,
	}
}

func vehicleFromDomain(v *anpr.Vehicle) Vehicle {
	return Vehicle{
		ID:            v.ID,
		Plate:         v.Plate,
		PlateCategory: string(v.PlateCategory),
		OwnerID:       v.OwnerID,
		Make:          optional(v.Make),
		Model:         optional(v.Model),
		Color:         optional(v.Color),
		Kind:          v.Kind,
		Flagged:       v.Flagged,
		FlagReason:    optional(v.FlagReason),
		CreatedAt:     v.CreatedAt,
	}
}

func (v Vehicle) toDomain() anpr.Vehicle {
	return anpr.Vehicle{
		ID:            v.ID,
		Plate:         v.Plate,
		PlateCategory: anpr.Category(v.PlateCategory),
		OwnerID:       v.OwnerID,
		Make:          deref(v.Make),
		Model:         deref(v.Model),
		Color:         deref(v.Color),
		Kind:          v.Kind,
		Flagged:       v.Flagged,
		FlagReason:    deref(v.FlagReason),
		CreatedAt:     v.CreatedAt,
	}
}

func (v Vehicle) toRecord() anpr.VehicleRecord {
	rec := anpr.VehicleRecord{Vehicle: v.toDomain()}
	if v.Owner != nil {
		owner := v.Owner.toDomain()
		rec.Owner = &owner
	}
	return rec
}

func accessFromDomain(a *anpr.Access) (Access, error) {
	row := Access{
		ID:         a.ID,
		VehicleID:  a.VehicleID,
		Plate:      a.Plate,
		Category:   string(a.Category),
		EventKind:  a.EventKind,
		Confidence: a.Confidence,
		Source:     optional(a.Source),
		SessionID:  optional(a.SessionID),
		ImagePath:  optional(a.ImagePath),
		DetectedAt: a.DetectedAt,
	}
	if a.FrameNumber != 0 {
		row.FrameNumber = &a.FrameNumber
	}
	if len(a.Fragments) > 0 {
		raw, err := json.Marshal(a.Fragments)
		if err != nil {
			return Access{}, err
		}
		row.Fragments = datatypes.JSON(raw)
	}
	return row, nil
}

func (a Access) toDomain() anpr.Access {
	out := anpr.Access{
		ID:         a.ID,
		VehicleID:  a.VehicleID,
		Plate:      a.Plate,
		Category:   anpr.Category(a.Category),
		EventKind:  a.EventKind,
		Confidence: a.Confidence,
		Source:     deref(a.Source),
		SessionID:  deref(a.SessionID),
		ImagePath:  deref(a.ImagePath),
		DetectedAt: a.DetectedAt,
	}
	if a.FrameNumber != nil {
		out.FrameNumber = *a.FrameNumber
	}
	if len(a.Fragments) > 0 {
		// Rows written by other tools may hold arbitrary JSON here.
		_ = json.Unmarshal(a.Fragments, &out.Fragments)
	}
	return out
}

func (a Alert) toDomain() anpr.Alert {
	return anpr.Alert{
		ID:        a.ID,
		VehicleID: a.VehicleID,
		Plate:     a.Plate,
		Kind:      a.Kind,
		Message:   a.Message,
		Resolved:  a.Resolved,
		CreatedAt: a.CreatedAt,
	}
}

func (o Operator) toDomain() anpr.Operator {
	return anpr.Operator{
		ID:           o.ID,
		Username:     o.Username,
		PasswordHash: o.PasswordHash,
		Role:         o.Role,
		Active:       o.Active,
		CreatedAt:    o.CreatedAt,
	}
}
