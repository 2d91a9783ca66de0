package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lpr-service/internal/domain/anpr"
)

var fixedNow = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

func newDetectionService(store *memStore) *DetectionService {
	s := NewDetectionService(store, store, zerolog.Nop())
	s.now = func() time.Time { return fixedNow }
	s.location = time.UTC
	return s
}

func TestRecordDetectionUnknownPlate(t *testing.T) {
	store := newMemStore()
	s := newDetectionService(store)

	res, err := s.RecordDetection(context.Background(), anpr.DetectionRecord{
		Plate:       "abc-1d23",
		Category:    anpr.CategoryMercosulCar,
		Confidence:  0.97,
		FrameNumber: 42,
		Source:      "WEBCAM",
	})
	if err != nil {
		t.Fatalf("RecordDetection() error = %v", err)
	}
	if res.Access.Plate != "ABC1D23" {
		t.Errorf("plate = %q, want ABC1D23", res.Access.Plate)
	}
	if res.Access.EventKind != anpr.EventDetected {
		t.Errorf("event kind = %q", res.Access.EventKind)
	}
	if !res.Access.DetectedAt.Equal(fixedNow) {
		t.Errorf("detected at = %v, want %v", res.Access.DetectedAt, fixedNow)
	}
	if res.Vehicle != nil || len(res.Alerts) != 0 {
		t.Errorf("unexpected vehicle or alerts: %+v", res)
	}
	if len(store.accesses) != 1 {
		t.Errorf("stored %d accesses, want 1", len(store.accesses))
	}
}

func TestRecordDetectionRejectsInvalidInput(t *testing.T) {
	s := newDetectionService(newMemStore())

	tests := []struct {
		name string
		rec  anpr.DetectionRecord
	}{
		{"empty plate", anpr.DetectionRecord{Plate: "--", Category: anpr.CategoryLegacyCar, Confidence: 0.9}},
		{"unknown category", anpr.DetectionRecord{Plate: "ABC1234", Category: "TRUCK", Confidence: 0.9}},
		{"confidence above one", anpr.DetectionRecord{Plate: "ABC1234", Category: anpr.CategoryLegacyCar, Confidence: 1.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.RecordDetection(context.Background(), tt.rec)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRecordDetectionRaisesAlerts(t *testing.T) {
	store := newMemStore()
	owner := &anpr.Owner{Name: "Maria", Kind: anpr.OwnerParticular, Authorized: false}
	_ = store.CreateOwner(context.Background(), owner)
	_ = store.CreateVehicle(context.Background(), &anpr.Vehicle{
		Plate:         "ABC1234",
		PlateCategory: anpr.CategoryLegacyCar,
		OwnerID:       &owner.ID,
		Kind:          anpr.VehicleCar,
		Flagged:       true,
		FlagReason:    "stolen",
	})
	s := newDetectionService(store)

	res, err := s.RecordDetection(context.Background(), anpr.DetectionRecord{
		Plate: "ABC1234", Category: anpr.CategoryLegacyCar, Confidence: 0.99,
	})
	if err != nil {
		t.Fatalf("RecordDetection() error = %v", err)
	}
	if res.Vehicle == nil || res.Access.VehicleID == nil || *res.Access.VehicleID != res.Vehicle.ID {
		t.Fatalf("access not linked to vehicle: %+v", res)
	}
	if len(res.Alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(res.Alerts))
	}
	if res.Alerts[0].Kind != anpr.AlertFlaggedVehicle || res.Alerts[1].Kind != anpr.AlertUnauthorized {
		t.Errorf("alert kinds = %s, %s", res.Alerts[0].Kind, res.Alerts[1].Kind)
	}
}

func TestRecordDetectionKeepsAccessWhenAlertFails(t *testing.T) {
	store := newMemStore()
	_ = store.CreateVehicle(context.Background(), &anpr.Vehicle{
		Plate: "ABC1234", PlateCategory: anpr.CategoryLegacyCar, Flagged: true, FlagReason: "x",
	})
	store.failAlerts = true
	s := newDetectionService(store)

	res, err := s.RecordDetection(context.Background(), anpr.DetectionRecord{
		Plate: "ABC1234", Category: anpr.CategoryLegacyCar, Confidence: 0.99,
	})
	if err != nil {
		t.Fatalf("RecordDetection() error = %v", err)
	}
	if len(res.Alerts) != 0 {
		t.Errorf("alerts = %v, want none", res.Alerts)
	}
	if len(store.accesses) != 1 {
		t.Errorf("stored %d accesses, want 1", len(store.accesses))
	}
}

func TestPlateIsKnown(t *testing.T) {
	store := newMemStore()
	_ = store.CreateVehicle(context.Background(), &anpr.Vehicle{Plate: "ABC1D23", PlateCategory: anpr.CategoryMercosulCar})
	s := newDetectionService(store)

	rec, err := s.PlateIsKnown(context.Background(), "ABC1D23")
	if err != nil || rec == nil {
		t.Fatalf("PlateIsKnown(known) = %v, %v", rec, err)
	}
	rec, err = s.PlateIsKnown(context.Background(), "XYZ9999")
	if err != nil || rec != nil {
		t.Errorf("PlateIsKnown(unknown) = %v, %v; want nil, nil", rec, err)
	}
}

func seedAccesses(t *testing.T, store *memStore) {
	t.Helper()
	rows := []anpr.Access{
		{Plate: "ABC1234", Category: anpr.CategoryLegacyCar, Source: "WEBCAM", Confidence: 0.95, DetectedAt: fixedNow.Add(-2 * time.Hour)},
		{Plate: "ABC1234", Category: anpr.CategoryLegacyCar, Source: "WEBCAM", Confidence: 0.98, DetectedAt: fixedNow.Add(-1 * time.Hour)},
		{Plate: "XYZ1D23", Category: anpr.CategoryMercosulMoto, Source: "VIDEO", Confidence: 0.99, DetectedAt: fixedNow.Add(-30 * time.Minute)},
		{Plate: "OLD1234", Category: anpr.CategoryLegacyCar, Source: "VIDEO", Confidence: 0.97, DetectedAt: fixedNow.AddDate(0, 0, -40)},
	}
	for i := range rows {
		if err := store.CreateAccess(context.Background(), &rows[i]); err != nil {
			t.Fatal(err)
		}
	}
}

func TestTodayStats(t *testing.T) {
	store := newMemStore()
	seedAccesses(t, store)
	s := newDetectionService(store)

	stats, err := s.TodayStats(context.Background())
	if err != nil {
		t.Fatalf("TodayStats() error = %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if len(stats.UniquePlates) != 2 {
		t.Errorf("unique plates = %v, want 2 plates", stats.UniquePlates)
	}
}

func TestReport(t *testing.T) {
	store := newMemStore()
	seedAccesses(t, store)
	s := newDetectionService(store)

	report, err := s.Report(context.Background(), "2025-03-10")
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if report.Day != "2025-03-10" || report.Total != 3 {
		t.Errorf("report = %+v", report)
	}
	if report.ByCategory[string(anpr.CategoryLegacyCar)] != 2 || report.BySource["VIDEO"] != 1 {
		t.Errorf("groups = %v / %v", report.ByCategory, report.BySource)
	}
	if len(report.Plates) != 2 || report.Plates[0].Count != 2 || report.Plates[0].Confidence != 0.98 {
		t.Errorf("plates = %+v", report.Plates)
	}

	if _, err := s.Report(context.Background(), "10/03/2025"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad day error = %v, want ErrInvalidInput", err)
	}
}

func TestListDetections(t *testing.T) {
	store := newMemStore()
	seedAccesses(t, store)
	s := newDetectionService(store)

	got, total, err := s.ListDetections(context.Background(), DetectionQuery{Plate: "abc-1234"})
	if err != nil {
		t.Fatalf("ListDetections() error = %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("got %d of %d, want 2 of 2", len(got), total)
	}
	if !got[0].DetectedAt.After(got[1].DetectedAt) {
		t.Error("detections should be newest first")
	}

	for _, q := range []DetectionQuery{{Category: "BUS"}, {From: "yesterday"}, {To: "2025-03-10"}} {
		if _, _, err := s.ListDetections(context.Background(), q); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ListDetections(%+v) error = %v, want ErrInvalidInput", q, err)
		}
	}
}

func TestUpdateDetection(t *testing.T) {
	store := newMemStore()
	seedAccesses(t, store)
	s := newDetectionService(store)

	plate := "abc 1d99"
	got, err := s.UpdateDetection(context.Background(), 1, anpr.AccessUpdate{Plate: &plate})
	if err != nil {
		t.Fatalf("UpdateDetection() error = %v", err)
	}
	if got.Plate != "ABC1D99" {
		t.Errorf("plate = %q, want ABC1D99", got.Plate)
	}

	if _, err := s.UpdateDetection(context.Background(), 1, anpr.AccessUpdate{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty update error = %v", err)
	}
	if _, err := s.UpdateDetection(context.Background(), 999, anpr.AccessUpdate{Plate: &plate}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id error = %v, want ErrNotFound", err)
	}
}

func TestDeleteDetections(t *testing.T) {
	store := newMemStore()
	seedAccesses(t, store)
	s := newDetectionService(store)

	if err := s.DeleteDetection(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteDetection(missing) error = %v", err)
	}
	n, err := s.DeleteDetectionsByPlate(context.Background(), "abc1234")
	if err != nil || n != 2 {
		t.Errorf("DeleteDetectionsByPlate() = %d, %v; want 2", n, err)
	}
	n, err = s.DeleteDetectionsByDate(context.Background(), "2025-03-10")
	if err != nil || n != 1 {
		t.Errorf("DeleteDetectionsByDate() = %d, %v; want 1", n, err)
	}
	if len(store.accesses) != 1 {
		t.Errorf("remaining = %d, want 1", len(store.accesses))
	}
}

func TestCleanupOldDetections(t *testing.T) {
	store := newMemStore()
	seedAccesses(t, store)
	s := newDetectionService(store)

	n, err := s.CleanupOldDetections(context.Background(), 30)
	if err != nil || n != 1 {
		t.Errorf("CleanupOldDetections(30) = %d, %v; want 1", n, err)
	}
	if _, err := s.CleanupOldDetections(context.Background(), 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("CleanupOldDetections(0) error = %v", err)
	}
}
