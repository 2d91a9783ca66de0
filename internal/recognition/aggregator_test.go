package recognition

import (
	"math"
	"testing"
	"time"

	"lpr-service/internal/domain/anpr"
)

func box(x float64) anpr.Polygon {
	return anpr.RectPolygon(x, 10, x+50, 30)
}

func defaultThresholds() Thresholds {
	return Thresholds{CarFloor: 0.94, MotoFloor: 0.97, Cooldown: 120 * time.Second}
}

func TestAggregateTwoLineMotoPlate(t *testing.T) {
	a := NewAggregator(defaultThresholds())
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	got := a.Aggregate([]anpr.Fragment{
		{Text: "ABC", Polygon: box(0), Confidence: 0.99},
		{Text: "1D23", Polygon: box(100), Confidence: 0.98},
	}, now)

	if len(got) != 1 {
		t.Fatalf("got %d detections, want 1: %+v", len(got), got)
	}
	d := got[0]
	if d.Plate != "ABC1D23" || d.Category != anpr.CategoryMercosulMoto {
		t.Errorf("got %s %s, want ABC1D23 MERCOSUL_MOTO", d.Plate, d.Category)
	}
	if math.Abs(d.Confidence-0.985) > 1e-9 {
		t.Errorf("confidence = %v, want 0.985", d.Confidence)
	}
	if d.Anchor != box(0) {
		t.Errorf("anchor = %v, want first fragment polygon", d.Anchor)
	}
	if !d.NewlyAccepted {
		t.Error("first sighting should be newly accepted")
	}
	if len(d.Fragments) != 2 || d.Fragments[0] != 0 || d.Fragments[1] != 1 {
		t.Errorf("fragments = %v, want [0 1]", d.Fragments)
	}
}

func TestAggregateCombinationConfidenceIsMean(t *testing.T) {
	a := NewAggregator(defaultThresholds())
	c1, c2 := 0.973, 0.991

	got := a.Aggregate([]anpr.Fragment{
		{Text: "ABC", Confidence: c1},
		{Text: "1234", Confidence: c2},
	}, time.Now())

	if len(got) != 1 {
		t.Fatalf("got %d detections, want 1", len(got))
	}
	if want := (c1 + c2) / 2; got[0].Confidence != want {
		t.Errorf("confidence = %v, want %v", got[0].Confidence, want)
	}
	if got[0].Category != anpr.CategoryLegacyMoto {
		t.Errorf("category = %s, want LEGACY_MOTO", got[0].Category)
	}
}

func TestAggregateSingleLinePlate(t *testing.T) {
	a := NewAggregator(defaultThresholds())

	got := a.Aggregate([]anpr.Fragment{
		{Text: "BRASIL", Polygon: box(0), Confidence: 0.99},
		{Text: "abc-1d23", Polygon: box(60), Confidence: 0.95},
	}, time.Now())

	if len(got) != 1 {
		t.Fatalf("got %d detections, want 1: %+v", len(got), got)
	}
	if got[0].Plate != "ABC1D23" || got[0].Category != anpr.CategoryMercosulCar {
		t.Errorf("got %s %s", got[0].Plate, got[0].Category)
	}
	if got[0].Confidence != 0.95 {
		t.Errorf("single fragment confidence changed to %v", got[0].Confidence)
	}
	if got[0].Anchor != box(60) {
		t.Errorf("anchor = %v", got[0].Anchor)
	}
}

func TestAggregateCarFloorExcludesFromBothPasses(t *testing.T) {
	a := NewAggregator(defaultThresholds())

	got := a.Aggregate([]anpr.Fragment{
		{Text: "ABC1234", Confidence: 0.93},
		{Text: "ABC", Confidence: 0.99},
		{Text: "1D23", Confidence: 0.90},
	}, time.Now())

	if len(got) != 0 {
		t.Fatalf("got %+v, want no detections", got)
	}
}

func TestAggregateMotoFloor(t *testing.T) {
	a := NewAggregator(defaultThresholds())

	got := a.Aggregate([]anpr.Fragment{
		{Text: "ABC", Confidence: 0.95},
		{Text: "1D23", Confidence: 0.96},
	}, time.Now())

	if len(got) != 0 {
		t.Fatalf("got %+v, want combination below the moto floor dropped", got)
	}
	if a.Cooldown().Len() != 0 {
		t.Error("dropped combination must not touch the cooldown cache")
	}
}

func TestAggregateCombinationTieBreak(t *testing.T) {
	a := NewAggregator(defaultThresholds())

	got := a.Aggregate([]anpr.Fragment{
		{Text: "ABC", Polygon: box(0), Confidence: 0.99},
		{Text: "1D23", Polygon: box(100), Confidence: 0.99},
		{Text: "1D24", Polygon: box(200), Confidence: 0.99},
	}, time.Now())

	if len(got) != 1 {
		t.Fatalf("got %d detections, want 1: %+v", len(got), got)
	}
	if got[0].Plate != "ABC1D23" {
		t.Errorf("plate = %s, want first successful pair ABC1D23", got[0].Plate)
	}
}

func TestAggregateSkipsLowPairAndKeepsScanning(t *testing.T) {
	a := NewAggregator(defaultThresholds())

	got := a.Aggregate([]anpr.Fragment{
		{Text: "ABC", Confidence: 0.99},
		{Text: "1D23", Confidence: 0.94},
		{Text: "1D24", Confidence: 1.0},
	}, time.Now())

	if len(got) != 1 {
		t.Fatalf("got %d detections, want 1: %+v", len(got), got)
	}
	if got[0].Plate != "ABC1D24" {
		t.Errorf("plate = %s, want ABC1D24", got[0].Plate)
	}
}

func TestAggregateNoReversedOrder(t *testing.T) {
	a := NewAggregator(defaultThresholds())

	got := a.Aggregate([]anpr.Fragment{
		{Text: "1D23", Confidence: 0.99},
		{Text: "ABC", Confidence: 0.99},
	}, time.Now())

	if len(got) != 0 {
		t.Fatalf("got %+v, want no detections for reversed fragments", got)
	}
}

func TestAggregateCooldown(t *testing.T) {
	a := NewAggregator(defaultThresholds())
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	frame := []anpr.Fragment{{Text: "ABC1D23", Confidence: 0.99}}

	first := a.Aggregate(frame, t0)
	if len(first) != 1 || !first[0].NewlyAccepted {
		t.Fatalf("first frame: %+v", first)
	}

	again := a.Aggregate(frame, t0.Add(10*time.Second))
	if len(again) != 1 {
		t.Fatalf("suppressed plate must still be reported, got %+v", again)
	}
	if again[0].NewlyAccepted {
		t.Error("plate inside cooldown window reported as newly accepted")
	}

	later := a.Aggregate(frame, t0.Add(130*time.Second))
	if len(later) != 1 || !later[0].NewlyAccepted {
		t.Fatalf("plate after cooldown window: %+v", later)
	}
	if last, _ := a.Cooldown().Last("ABC1D23"); !last.Equal(t0.Add(130 * time.Second)) {
		t.Errorf("cache timestamp = %v, want updated to t0+130s", last)
	}
}

func TestAggregateSamePlateTwiceInFrame(t *testing.T) {
	a := NewAggregator(defaultThresholds())

	got := a.Aggregate([]anpr.Fragment{
		{Text: "ABC1234", Confidence: 0.99},
		{Text: "ABC", Confidence: 0.99},
		{Text: "1234", Confidence: 0.99},
	}, time.Now())

	if len(got) != 2 {
		t.Fatalf("got %d detections, want 2: %+v", len(got), got)
	}
	if !got[0].NewlyAccepted || got[0].Category != anpr.CategoryLegacyCar {
		t.Errorf("single detection: %+v", got[0])
	}
	if got[1].NewlyAccepted || got[1].Category != anpr.CategoryLegacyMoto {
		t.Errorf("combination of an already accepted plate: %+v", got[1])
	}
}
