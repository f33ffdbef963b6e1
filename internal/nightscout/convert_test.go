package nightscout

import (
	"testing"
	"time"

	"github.com/adamjohnlea/reverseit-diabetes-app/internal/model"
)

var entryAt = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// Entries (glucose)
// ---------------------------------------------------------------------------

func TestEntryToQuantity(t *testing.T) {
	e := nsEntry{
		Type:       entryTypeSGV,
		SGV:        112,
		Date:       entryAt.UnixMilli(),
		DateString: entryAt.Format(time.RFC3339),
		Notes:      "after breakfast",
	}
	s := entryToQuantity(e)

	if s.Type != model.CapGlucose {
		t.Errorf("Type = %q, want glucose", s.Type)
	}
	if s.Value != 112 {
		t.Errorf("Value = %v, want 112", s.Value)
	}
	if s.Unit != model.UnitMgdl {
		t.Errorf("Unit = %q, want mg/dL for absent unit field", s.Unit)
	}
	if !s.StartAt.Equal(entryAt) || !s.EndAt.Equal(entryAt) {
		t.Errorf("interval = [%v, %v], want instant at %v", s.StartAt, s.EndAt, entryAt)
	}
	if s.Note != "after breakfast" {
		t.Errorf("Note = %q", s.Note)
	}
}

func TestEntryToQuantity_MmolUnitPreserved(t *testing.T) {
	e := nsEntry{SGV: 6.2, Units: "mmol/l", Date: entryAt.UnixMilli()}
	s := entryToQuantity(e)
	if s.Unit != model.UnitMmol {
		t.Errorf("Unit = %q, want mmol/L", s.Unit)
	}
	// The raw value passes through; normalisation happens at import time.
	if s.Value != 6.2 {
		t.Errorf("Value = %v, want the raw 6.2", s.Value)
	}
}

func TestEntryTime_FallsBackToEpochMillis(t *testing.T) {
	e := nsEntry{Date: entryAt.UnixMilli()}
	if got := entryTime(e); !got.Equal(entryAt) {
		t.Errorf("entryTime = %v, want %v", got, entryAt)
	}

	e.DateString = "not-a-timestamp"
	if got := entryTime(e); !got.Equal(entryAt) {
		t.Errorf("entryTime with bad dateString = %v, want epoch fallback %v", got, entryAt)
	}
}

func TestQuantityToEntry(t *testing.T) {
	s := model.QuantitySample{
		Type:    model.CapGlucose,
		Value:   140,
		Unit:    model.UnitMgdl,
		StartAt: entryAt,
		EndAt:   entryAt,
		Note:    "fasting",
	}
	e := quantityToEntry(s)
	if e.Type != entryTypeSGV {
		t.Errorf("Type = %q, want sgv", e.Type)
	}
	if e.SGV != 140 || e.Date != entryAt.UnixMilli() {
		t.Errorf("entry = %+v", e)
	}
	if e.DateString != entryAt.Format(time.RFC3339) {
		t.Errorf("DateString = %q", e.DateString)
	}
}

// ---------------------------------------------------------------------------
// Treatments (nutrition)
// ---------------------------------------------------------------------------

func TestQuantityToTreatment_MacroRouting(t *testing.T) {
	tests := []struct {
		cap   model.Capability
		check func(nsTreatment) float64
	}{
		{model.CapDietaryCarbs, func(tr nsTreatment) float64 { return tr.Carbs }},
		{model.CapDietaryProtein, func(tr nsTreatment) float64 { return tr.Protein }},
		{model.CapDietaryFat, func(tr nsTreatment) float64 { return tr.Fat }},
	}
	for _, tt := range tests {
		tr := quantityToTreatment(model.QuantitySample{
			Type: tt.cap, Value: 25, Unit: model.UnitGram, StartAt: entryAt,
		})
		if tr.EventType != eventTypeNutrition {
			t.Errorf("%s: EventType = %q, want Nutrition", tt.cap, tr.EventType)
		}
		if got := tt.check(tr); got != 25 {
			t.Errorf("%s routed to wrong field, got %v", tt.cap, got)
		}
	}
}

// ---------------------------------------------------------------------------
// Treatments (exercise)
// ---------------------------------------------------------------------------

func TestWorkoutTreatment_RoundTrip(t *testing.T) {
	kcal := 320.0
	w := model.WorkoutSample{
		ActivityCode:    "cycling",
		StartAt:         entryAt,
		DurationSec:     2700, // 45 min
		TotalEnergyKcal: &kcal,
		Metadata:        map[string]string{metaIntensity: "vigorous"},
	}

	tr := workoutToTreatment(w)
	if tr.EventType != eventTypeExercise {
		t.Errorf("EventType = %q, want Exercise", tr.EventType)
	}
	if tr.Duration != 45 {
		t.Errorf("Duration = %v minutes, want 45", tr.Duration)
	}
	if tr.Notes != "vigorous" {
		t.Errorf("Notes = %q, want intensity tag", tr.Notes)
	}

	back := treatmentToWorkout(tr)
	if back.ActivityCode != "cycling" || back.DurationSec != 2700 {
		t.Errorf("round trip = %+v", back)
	}
	if back.TotalEnergyKcal == nil || *back.TotalEnergyKcal != 320 {
		t.Errorf("TotalEnergyKcal = %v, want 320", back.TotalEnergyKcal)
	}
	if back.Metadata[metaIntensity] != "vigorous" {
		t.Errorf("intensity metadata lost: %v", back.Metadata)
	}
	if !back.StartAt.Equal(entryAt) {
		t.Errorf("StartAt = %v, want %v", back.StartAt, entryAt)
	}
}

func TestNormaliseUnit(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", model.UnitMgdl},
		{"mg/dl", model.UnitMgdl},
		{"mgdl", model.UnitMgdl},
		{"mmol/l", model.UnitMmol},
		{"mmol/L", model.UnitMmol},
		{"MMOL", model.UnitMmol},
	}
	for _, tt := range tests {
		if got := normaliseUnit(tt.raw); got != tt.want {
			t.Errorf("normaliseUnit(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
