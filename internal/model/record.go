// Package model defines the record types and closed vocabularies shared
// between the record store, the sync coordinator, and the provider adapter.
package model

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// MgdlPerMmol is the conversion factor between the two blood-glucose
// concentration units (molar mass of glucose / 10).
const MgdlPerMmol = 18.0182

// MmolToMgdl converts a glucose value from mmol/L to mg/dL.
func MmolToMgdl(v float64) float64 { return v * MgdlPerMmol }

// MgdlToMmol converts a glucose value from mg/dL to mmol/L.
func MgdlToMmol(v float64) float64 { return v / MgdlPerMmol }

// NewID returns a fresh record identifier.
func NewID() string { return uuid.NewString() }

// Units is the user's preferred glucose display unit.
type Units string

const (
	// UnitsMgdl displays glucose in mg/dL (US convention).
	UnitsMgdl Units = "mgdl"
	// UnitsMmol displays glucose in mmol/L (international convention).
	UnitsMmol Units = "mmol"
)

// GlucoseContext tags a reading with its meal-timing context.
type GlucoseContext string

const (
	ContextFasting    GlucoseContext = "fasting"
	ContextBeforeMeal GlucoseContext = "before-meal"
	ContextAfterMeal  GlucoseContext = "after-meal"
	ContextBedtime    GlucoseContext = "bedtime"
	ContextRandom     GlucoseContext = "random"
)

// ParseGlucoseContext maps a user-supplied string to a [GlucoseContext].
// Unknown strings fall back to [ContextRandom].
func ParseGlucoseContext(s string) GlucoseContext {
	switch GlucoseContext(s) {
	case ContextFasting, ContextBeforeMeal, ContextAfterMeal, ContextBedtime:
		return GlucoseContext(s)
	default:
		return ContextRandom
	}
}

// MealType tags a logged meal.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// ParseMealType maps a user-supplied string to a [MealType], defaulting to
// snack for anything unrecognised.
func ParseMealType(s string) MealType {
	switch MealType(s) {
	case MealBreakfast, MealLunch, MealDinner:
		return MealType(s)
	default:
		return MealSnack
	}
}

// Intensity is the perceived effort level of an exercise session.
type Intensity string

const (
	IntensityLight    Intensity = "light"
	IntensityModerate Intensity = "moderate"
	IntensityVigorous Intensity = "vigorous"
)

// MET returns the metabolic-equivalent multiplier for the intensity level.
// Unknown intensities are treated as moderate.
func (i Intensity) MET() float64 {
	switch i {
	case IntensityLight:
		return 3.0
	case IntensityVigorous:
		return 8.0
	default:
		return 5.0
	}
}

// ParseIntensity maps a user-supplied string to an [Intensity], defaulting
// to moderate.
func ParseIntensity(s string) Intensity {
	switch Intensity(s) {
	case IntensityLight, IntensityVigorous:
		return Intensity(s)
	default:
		return IntensityModerate
	}
}

// Profile is the singleton installation profile. At most one exists in the
// store; [store.Store.SaveProfile] enforces that.
type Profile struct {
	Name              string
	Age               int
	BodyMassKg        float64
	HeightCm          float64
	DiagnosedAt       time.Time
	TargetGlucoseMin  float64 // mg/dL
	TargetGlucoseMax  float64 // mg/dL
	TargetCarbsG      float64 // per day
	TargetExerciseMin int     // minutes per day
	Units             Units
	OnboardingDone    bool
	UpdatedAt         time.Time
}

// Profile target bounds. Values outside these ranges are clamped, not
// rejected, so a settings form can never wedge the profile.
const (
	minTargetGlucose  = 40.0
	maxTargetGlucose  = 400.0
	minTargetCarbs    = 30.0
	maxTargetCarbs    = 600.0
	maxTargetExercise = 600
	minBodyMassKg     = 20.0
	maxBodyMassKg     = 300.0
	minHeightCm       = 80.0
	maxHeightCm       = 250.0
)

// Clamp forces all targets into their sane bounds and repairs an inverted
// glucose range by restoring the defaults (70–180 mg/dL).
func (p *Profile) Clamp() {
	p.TargetGlucoseMin = clampF(p.TargetGlucoseMin, minTargetGlucose, maxTargetGlucose)
	p.TargetGlucoseMax = clampF(p.TargetGlucoseMax, minTargetGlucose, maxTargetGlucose)
	if p.TargetGlucoseMax <= p.TargetGlucoseMin {
		p.TargetGlucoseMin = 70
		p.TargetGlucoseMax = 180
	}
	p.TargetCarbsG = clampF(p.TargetCarbsG, minTargetCarbs, maxTargetCarbs)
	if p.TargetExerciseMin < 0 {
		p.TargetExerciseMin = 0
	}
	if p.TargetExerciseMin > maxTargetExercise {
		p.TargetExerciseMin = maxTargetExercise
	}
	if p.BodyMassKg != 0 {
		p.BodyMassKg = clampF(p.BodyMassKg, minBodyMassKg, maxBodyMassKg)
	}
	if p.HeightCm != 0 {
		p.HeightCm = clampF(p.HeightCm, minHeightCm, maxHeightCm)
	}
	if p.Units != UnitsMmol {
		p.Units = UnitsMgdl
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GlucoseSample is a single point-in-time blood-glucose reading. Values are
// stored in mg/dL regardless of the display unit preference.
type GlucoseSample struct {
	ID        string
	TakenAt   time.Time
	ValueMgdl float64
	Context   GlucoseContext
	Note      string

	// MealIDs are soft links to FoodSample records eaten within the trailing
	// association window. Deleting a meal nullifies the link; it never
	// cascades to the reading.
	MealIDs []string
}

// Validate checks the non-negative-finite invariant on the reading value.
func (g *GlucoseSample) Validate() error {
	if g.ValueMgdl < 0 || math.IsNaN(g.ValueMgdl) || math.IsInf(g.ValueMgdl, 0) {
		return fmt.Errorf("glucose value %v is not a non-negative finite number", g.ValueMgdl)
	}
	return nil
}

// FoodSample is a logged meal with its macro breakdown.
type FoodSample struct {
	ID        string
	Name      string
	EatenAt   time.Time
	CarbsG    float64
	ProteinG  float64
	FatG      float64
	Calories  float64 // user-supplied, or derived as 4·carbs + 4·protein + 9·fat
	MealType  MealType
	PhotoPath string
	Note      string
}

// Validate checks that macro grams are non-negative.
func (f *FoodSample) Validate() error {
	if f.CarbsG < 0 || f.ProteinG < 0 || f.FatG < 0 {
		return fmt.Errorf("meal %q has negative macro grams", f.Name)
	}
	return nil
}

// ExerciseSample is a logged activity session.
type ExerciseSample struct {
	ID       string
	Activity ActivityKind
	// Label is the original free-text activity description; Activity is
	// resolved from it once, at creation time.
	Label          string
	StartedAt      time.Time
	DurationSec    int64
	Intensity      Intensity
	CaloriesBurned *float64 // nil means "estimate from duration and intensity"
	Note           string
}

// Validate checks the positive-duration invariant.
func (e *ExerciseSample) Validate() error {
	if e.DurationSec <= 0 {
		return fmt.Errorf("exercise duration %ds must be positive", e.DurationSec)
	}
	return nil
}
