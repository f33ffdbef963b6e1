package nightscout

import (
	"strings"
	"time"

	"github.com/adamjohnlea/reverseit-diabetes-app/internal/model"
)

// Nightscout API constants.
const (
	entryTypeSGV = "sgv"

	eventTypeExercise  = "Exercise"
	eventTypeNutrition = "Nutrition"

	metaIntensity = "intensity"
)

// nsEntry is the JSON structure for a single CGM entry in the entries API.
type nsEntry struct {
	Type       string  `json:"type"`
	SGV        float64 `json:"sgv"`
	Date       int64   `json:"date"` // Unix milliseconds
	DateString string  `json:"dateString,omitempty"`
	Units      string  `json:"units,omitempty"` // "mg/dl" (default) or "mmol/l"
	Notes      string  `json:"notes,omitempty"`
}

// nsTreatment is the JSON structure for a treatment record. Exercise and
// nutrition pushes both land here; the eventType field distinguishes them.
type nsTreatment struct {
	EventType string   `json:"eventType"`
	CreatedAt string   `json:"created_at"`
	Carbs     float64  `json:"carbs,omitempty"`
	Protein   float64  `json:"protein,omitempty"`
	Fat       float64  `json:"fat,omitempty"`
	Duration  float64  `json:"duration,omitempty"` // minutes
	Activity  string   `json:"activity,omitempty"`
	Energy    *float64 `json:"energy,omitempty"` // kcal
	Notes     string   `json:"notes,omitempty"`
}

// entryToQuantity converts a CGM entry to a glucose [model.QuantitySample].
// The value is passed through in the entry's own unit; the sync coordinator
// normalises to mg/dL when mapping to a local record.
func entryToQuantity(e nsEntry) model.QuantitySample {
	t := entryTime(e)
	return model.QuantitySample{
		Type:    model.CapGlucose,
		Value:   e.SGV,
		Unit:    normaliseUnit(e.Units),
		StartAt: t,
		EndAt:   t,
		Note:    e.Notes,
	}
}

// quantityToEntry converts a glucose sample (already in mg/dL, the service's
// canonical concentration unit) to an entries-API record.
func quantityToEntry(s model.QuantitySample) nsEntry {
	return nsEntry{
		Type:       entryTypeSGV,
		SGV:        s.Value,
		Date:       s.StartAt.UnixMilli(),
		DateString: s.StartAt.UTC().Format(time.RFC3339),
		Notes:      s.Note,
	}
}

// quantityToTreatment converts a dietary macro sample to a treatment record.
func quantityToTreatment(s model.QuantitySample) nsTreatment {
	t := nsTreatment{
		EventType: eventTypeNutrition,
		CreatedAt: s.StartAt.UTC().Format(time.RFC3339),
		Notes:     s.Note,
	}
	switch s.Type {
	case model.CapDietaryCarbs:
		t.Carbs = s.Value
	case model.CapDietaryProtein:
		t.Protein = s.Value
	case model.CapDietaryFat:
		t.Fat = s.Value
	}
	return t
}

// treatmentToWorkout converts an Exercise treatment to a
// [model.WorkoutSample].
func treatmentToWorkout(t nsTreatment) model.WorkoutSample {
	startAt, _ := time.Parse(time.RFC3339, t.CreatedAt)
	w := model.WorkoutSample{
		ActivityCode:    t.Activity,
		StartAt:         startAt,
		DurationSec:     int64(t.Duration * 60),
		TotalEnergyKcal: t.Energy,
	}
	if t.Notes != "" {
		w.Metadata = map[string]string{metaIntensity: t.Notes}
	}
	return w
}

// workoutToTreatment converts a [model.WorkoutSample] to an Exercise
// treatment. Intensity metadata travels in the notes field, which is the
// only free-form slot the treatments API offers.
func workoutToTreatment(w model.WorkoutSample) nsTreatment {
	return nsTreatment{
		EventType: eventTypeExercise,
		CreatedAt: w.StartAt.UTC().Format(time.RFC3339),
		Duration:  float64(w.DurationSec) / 60,
		Activity:  w.ActivityCode,
		Energy:    w.TotalEnergyKcal,
		Notes:     w.Metadata[metaIntensity],
	}
}

// entryTime resolves an entry's timestamp, preferring dateString and falling
// back to the millisecond epoch field.
func entryTime(e nsEntry) time.Time {
	if e.DateString != "" {
		if t, err := time.Parse(time.RFC3339, e.DateString); err == nil {
			return t
		}
	}
	return time.UnixMilli(e.Date).UTC()
}

// normaliseUnit maps the service's unit spellings onto the shared constants.
// An absent unit means mg/dL, the service default.
func normaliseUnit(u string) string {
	if strings.HasPrefix(strings.ToLower(u), "mmol") {
		return model.UnitMmol
	}
	return model.UnitMgdl
}
