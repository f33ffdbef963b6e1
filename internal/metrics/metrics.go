// Package metrics holds the derived-metric functions: glucose classification,
// macro percentages, calorie estimation, BMI, and progress calculations.
// Everything here is a pure function over records; nothing touches the store
// or the provider.
package metrics

import (
	"fmt"
	"time"

	"github.com/adamjohnlea/reverseit-diabetes-app/internal/model"
)

// GlucoseStatus classifies a reading against the fixed clinical thresholds.
type GlucoseStatus string

const (
	StatusLow    GlucoseStatus = "low"
	StatusNormal GlucoseStatus = "normal"
	StatusHigh   GlucoseStatus = "high"
)

// Classification thresholds in mg/dL. A reading of exactly 70 or 180 is
// normal; the bands are [0,70), [70,180], (180,∞).
const (
	lowThresholdMgdl  = 70.0
	highThresholdMgdl = 180.0
)

// Kcal per gram of each macronutrient.
const (
	KcalPerGramCarbs   = 4.0
	KcalPerGramProtein = 4.0
	KcalPerGramFat     = 9.0
)

// ClassifyGlucose returns the status band for a mg/dL reading.
func ClassifyGlucose(valueMgdl float64) GlucoseStatus {
	switch {
	case valueMgdl < lowThresholdMgdl:
		return StatusLow
	case valueMgdl > highThresholdMgdl:
		return StatusHigh
	default:
		return StatusNormal
	}
}

// InRange reports whether a reading falls inside the profile's personal
// target band (inclusive on both ends).
func InRange(valueMgdl float64, p *model.Profile) bool {
	return valueMgdl >= p.TargetGlucoseMin && valueMgdl <= p.TargetGlucoseMax
}

// TimeInRangePercent returns the share of readings inside the profile target
// band, as a 0–100 percentage. Zero readings yield zero.
func TimeInRangePercent(samples []model.GlucoseSample, p *model.Profile) float64 {
	if len(samples) == 0 {
		return 0
	}
	in := 0
	for i := range samples {
		if InRange(samples[i].ValueMgdl, p) {
			in++
		}
	}
	return float64(in) / float64(len(samples)) * 100
}

// AverageGlucose returns the mean reading value in mg/dL, or zero for an
// empty slice.
func AverageGlucose(samples []model.GlucoseSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for i := range samples {
		sum += samples[i].ValueMgdl
	}
	return sum / float64(len(samples))
}

// DerivedCalories computes a meal's calorie total from its macros using the
// 4/4/9 kcal-per-gram factors.
func DerivedCalories(carbsG, proteinG, fatG float64) float64 {
	return carbsG*KcalPerGramCarbs + proteinG*KcalPerGramProtein + fatG*KcalPerGramFat
}

// MacroPercent returns the share of totalCalories contributed by grams of a
// macro with the given kcal-per-gram factor. A zero or negative calorie
// total yields zero rather than dividing by it.
func MacroPercent(grams, kcalPerGram, totalCalories float64) float64 {
	if totalCalories <= 0 {
		return 0
	}
	return grams * kcalPerGram / totalCalories * 100
}

// EstimateCaloriesBurned estimates the energy burned by a session with no
// recorded calorie total: duration-minutes · intensity MET · 3.5 / 200.
func EstimateCaloriesBurned(duration time.Duration, intensity model.Intensity) float64 {
	return duration.Minutes() * intensity.MET() * 3.5 / 200
}

// SessionCalories returns the recorded calorie total for a session when one
// exists, and the MET-based estimate otherwise.
func SessionCalories(e *model.ExerciseSample) float64 {
	if e.CaloriesBurned != nil {
		return *e.CaloriesBurned
	}
	return EstimateCaloriesBurned(time.Duration(e.DurationSec)*time.Second, e.Intensity)
}

// BMI returns body mass index from mass in kg and height in cm. Zero height
// yields zero.
func BMI(massKg, heightCm float64) float64 {
	if heightCm <= 0 {
		return 0
	}
	m := heightCm / 100
	return massKg / (m * m)
}

// BMICategory returns the WHO band label for a BMI value.
func BMICategory(bmi float64) string {
	switch {
	case bmi <= 0:
		return "unknown"
	case bmi < 18.5:
		return "underweight"
	case bmi < 25:
		return "normal"
	case bmi < 30:
		return "overweight"
	default:
		return "obese"
	}
}

// DiabetesDuration renders the elapsed time since diagnosis in the largest
// whole unit: years when at least one full year has passed, months otherwise.
func DiabetesDuration(diagnosedAt, now time.Time) string {
	if diagnosedAt.IsZero() || diagnosedAt.After(now) {
		return "unknown"
	}
	months := monthsBetween(diagnosedAt, now)
	if months >= 12 {
		years := months / 12
		return fmt.Sprintf("%d year%s", years, plural(years))
	}
	return fmt.Sprintf("%d month%s", months, plural(months))
}

// monthsBetween counts whole calendar months from a to b.
func monthsBetween(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// ProgressPercent returns consumed/target as a 0–100+ percentage. Zero or
// negative targets yield zero.
func ProgressPercent(consumed, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return consumed / target * 100
}
