package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lpr-service/internal/domain/anpr"
	"lpr-service/internal/repository"
	"lpr-service/internal/utils"
)

const dayLayout = "2006-01-02"

// DetectionService records accepted plate detections and serves the
// detection history.
type DetectionService struct {
	accesses AccessStore
	registry RegistryStore
	log      zerolog.Logger
	now      func() time.Time
	location *time.Location
}

func NewDetectionService(accesses AccessStore, registry RegistryStore, log zerolog.Logger) *DetectionService {
	return &DetectionService{
		accesses: accesses,
		registry: registry,
		log:      log.With().Str("component", "detection_service").Logger(),
		now:      time.Now,
		location: time.Local,
	}
}

// PlateIsKnown returns the registered vehicle for plate, or nil when the
// plate is not registered.
func (s *DetectionService) PlateIsKnown(ctx context.Context, plate string) (*anpr.VehicleRecord, error) {
	rec, err := s.registry.FindVehicleByPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up plate: %w", err)
	}
	return rec, nil
}

// RecordDetection stores an accepted detection and raises alerts for flagged
// vehicles and unauthorized owners. Alert failures are logged only.
func (s *DetectionService) RecordDetection(ctx context.Context, rec anpr.DetectionRecord) (*anpr.ProcessResult, error) {
	plate := utils.NormalizePlate(rec.Plate)
	if plate == "" {
		return nil, fmt.Errorf("%w: plate is required", ErrInvalidInput)
	}
	if !rec.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown plate category %q", ErrInvalidInput, rec.Category)
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence must be within [0,1]", ErrInvalidInput)
	}

	vehicle, err := s.PlateIsKnown(ctx, plate)
	if err != nil {
		return nil, err
	}

	detectedAt := rec.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = s.now()
	}

	access := &anpr.Access{
		Plate:       plate,
		Category:    rec.Category,
		EventKind:   anpr.EventDetected,
		Confidence:  rec.Confidence,
		FrameNumber: rec.FrameNumber,
		Source:      rec.Source,
		SessionID:   rec.SessionID,
		ImagePath:   rec.ImagePath,
		Fragments:   rec.Fragments,
		DetectedAt:  detectedAt,
	}
	if vehicle != nil {
		access.VehicleID = &vehicle.ID
	}

	if err := s.accesses.CreateAccess(ctx, access); err != nil {
		s.log.Error().
			Err(err).
			Str("plate", plate).
			Int64("frame", rec.FrameNumber).
			Msg("failed to save detection")
		return nil, fmt.Errorf("failed to save detection: %w", err)
	}

	result := &anpr.ProcessResult{Access: *access, Vehicle: vehicle}

	if vehicle == nil {
		s.log.Info().
			Int64("access_id", access.ID).
			Str("plate", plate).
			Str("category", string(rec.Category)).
			Float64("confidence", rec.Confidence).
			Int64("frame", rec.FrameNumber).
			Msg("new plate detected")
		return result, nil
	}

	if vehicle.Flagged {
		result.Alerts = s.raise(ctx, result.Alerts, vehicle, anpr.AlertFlaggedVehicle,
			fmt.Sprintf("flagged vehicle detected: %s", vehicle.FlagReason))
	}
	if !vehicle.OwnerAuthorized() {
		result.Alerts = s.raise(ctx, result.Alerts, vehicle, anpr.AlertUnauthorized,
			fmt.Sprintf("vehicle of unauthorized owner: %s", vehicle.Owner.Name))
	}

	ev := s.log.Info().
		Int64("access_id", access.ID).
		Int64("vehicle_id", vehicle.ID).
		Str("plate", plate).
		Str("category", string(rec.Category)).
		Int("alerts", len(result.Alerts))
	if vehicle.Owner != nil {
		ev = ev.Str("owner", vehicle.Owner.Name).Str("owner_kind", vehicle.Owner.Kind)
	}
	ev.Msg("known vehicle detected")

	return result, nil
}

func (s *DetectionService) raise(ctx context.Context, alerts []anpr.Alert, vehicle *anpr.VehicleRecord, kind, message string) []anpr.Alert {
	alert := anpr.Alert{
		VehicleID: &vehicle.ID,
		Plate:     vehicle.Plate,
		Kind:      kind,
		Message:   message,
	}
	if err := s.registry.CreateAlert(ctx, &alert); err != nil {
		s.log.Error().Err(err).Str("plate", vehicle.Plate).Str("kind", kind).Msg("failed to raise alert")
		return alerts
	}
	s.log.Warn().Str("plate", vehicle.Plate).Str("kind", kind).Msg(message)
	return append(alerts, alert)
}

type DetectionQuery struct {
	Plate    string
	Category string
	From     string
	To       string
	Limit    int
	Offset   int
}

func (s *DetectionService) ListDetections(ctx context.Context, q DetectionQuery) ([]anpr.Access, int64, error) {
	f := anpr.AccessFilter{
		Plate:  utils.NormalizePlate(q.Plate),
		Limit:  q.Limit,
		Offset: q.Offset,
	}

	if q.Category != "" {
		f.Category = anpr.Category(q.Category)
		if !f.Category.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown plate category %q", ErrInvalidInput, q.Category)
		}
	}
	if q.From != "" {
		t, err := time.Parse(time.RFC3339, q.From)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid from time format", ErrInvalidInput)
		}
		f.From = &t
	}
	if q.To != "" {
		t, err := time.Parse(time.RFC3339, q.To)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid to time format", ErrInvalidInput)
		}
		f.To = &t
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	accesses, total, err := s.accesses.ListAccesses(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list detections: %w", err)
	}
	return accesses, total, nil
}

func (s *DetectionService) GetDetection(ctx context.Context, id int64) (*anpr.Access, error) {
	access, err := s.accesses.GetAccess(ctx, id)
	if err != nil {
		return nil, storeError("get detection", err)
	}
	return access, nil
}

func (s *DetectionService) UpdateDetection(ctx context.Context, id int64, u anpr.AccessUpdate) (*anpr.Access, error) {
	if u.Plate == nil && u.Category == nil && u.Confidence == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if u.Plate != nil {
		plate := utils.NormalizePlate(*u.Plate)
		if plate == "" {
			return nil, fmt.Errorf("%w: plate cannot be empty after normalization", ErrInvalidInput)
		}
		u.Plate = &plate
	}
	if u.Category != nil && !anpr.Category(*u.Category).Valid() {
		return nil, fmt.Errorf("%w: unknown plate category %q", ErrInvalidInput, *u.Category)
	}
	if u.Confidence != nil && (*u.Confidence < 0 || *u.Confidence > 1) {
		return nil, fmt.Errorf("%w: confidence must be within [0,1]", ErrInvalidInput)
	}

	if err := s.accesses.UpdateAccess(ctx, id, u); err != nil {
		return nil, storeError("update detection", err)
	}
	return s.GetDetection(ctx, id)
}

func (s *DetectionService) DeleteDetection(ctx context.Context, id int64) error {
	if err := s.accesses.DeleteAccess(ctx, id); err != nil {
		return storeError("delete detection", err)
	}
	return nil
}

func (s *DetectionService) DeleteDetectionsByPlate(ctx context.Context, plate string) (int64, error) {
	normalized := utils.NormalizePlate(plate)
	if normalized == "" {
		return 0, fmt.Errorf("%w: plate is required", ErrInvalidInput)
	}
	n, err := s.accesses.DeleteAccessesByPlate(ctx, normalized)
	if err != nil {
		return 0, fmt.Errorf("failed to delete detections: %w", err)
	}
	s.log.Info().Str("plate", normalized).Int64("deleted_count", n).Msg("deleted detections by plate")
	return n, nil
}

// DeleteDetectionsByDate removes every detection of day (YYYY-MM-DD).
func (s *DetectionService) DeleteDetectionsByDate(ctx context.Context, day string) (int64, error) {
	from, to, err := s.dayBounds(day)
	if err != nil {
		return 0, err
	}
	n, err := s.accesses.DeleteAccessesBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to delete detections: %w", err)
	}
	s.log.Info().Str("day", day).Int64("deleted_count", n).Msg("deleted detections by date")
	return n, nil
}

func (s *DetectionService) TodayStats(ctx context.Context) (*anpr.TodayStats, error) {
	from, to, _ := s.dayBounds("")

	total, err := s.accesses.CountAccesses(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count detections: %w", err)
	}
	plates, err := s.accesses.DistinctPlates(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list plates: %w", err)
	}
	if plates == nil {
		plates = []string{}
	}
	return &anpr.TodayStats{Total: total, UniquePlates: plates}, nil
}

// Report summarises day (YYYY-MM-DD, empty for today).
func (s *DetectionService) Report(ctx context.Context, day string) (*anpr.DailyReport, error) {
	from, to, err := s.dayBounds(day)
	if err != nil {
		return nil, err
	}

	report := &anpr.DailyReport{Day: from.Format(dayLayout)}

	if report.Total, err = s.accesses.CountAccesses(ctx, from, to); err != nil {
		return nil, fmt.Errorf("failed to count detections: %w", err)
	}
	if report.ByCategory, err = s.accesses.CountAccessesBy(ctx, "category", from, to); err != nil {
		return nil, fmt.Errorf("failed to group detections: %w", err)
	}
	if report.BySource, err = s.accesses.CountAccessesBy(ctx, "source", from, to); err != nil {
		return nil, fmt.Errorf("failed to group detections: %w", err)
	}
	if report.Plates, err = s.accesses.PlateSightings(ctx, from, to); err != nil {
		return nil, fmt.Errorf("failed to list sightings: %w", err)
	}
	return report, nil
}

// CleanupOldDetections deletes detections older than days.
func (s *DetectionService) CleanupOldDetections(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("%w: days must be positive", ErrInvalidInput)
	}
	deleted, err := s.accesses.DeleteAccessesBefore(ctx, s.now().AddDate(0, 0, -days))
	if err != nil {
		s.log.Error().Err(err).Int("days", days).Msg("failed to cleanup old detections")
		return 0, err
	}
	if deleted > 0 {
		s.log.Info().Int64("deleted_count", deleted).Int("days", days).Msg("cleaned up old detections")
	}
	return deleted, nil
}

func (s *DetectionService) dayBounds(day string) (time.Time, time.Time, error) {
	var start time.Time
	if day == "" {
		now := s.now().In(s.location)
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	} else {
		t, err := time.ParseInLocation(dayLayout, day, s.location)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: day must be YYYY-MM-DD", ErrInvalidInput)
		}
		start = t
	}
	return start, start.AddDate(0, 0, 1), nil
}
