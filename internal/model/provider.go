package model

import "time"

// Capability identifies one class of health data the provider can grant
// read or write access to.
type Capability string

const (
	CapGlucose        Capability = "blood_glucose"
	CapActiveEnergy   Capability = "active_energy"
	CapWorkouts       Capability = "workouts"
	CapDietaryCarbs   Capability = "dietary_carbohydrates"
	CapDietaryProtein Capability = "dietary_protein"
	CapDietaryFat     Capability = "dietary_fat"
	CapBodyMass       Capability = "body_mass"
	CapHeight         Capability = "height"
)

// ReadCapabilities is the fixed set requested for read access.
func ReadCapabilities() []Capability {
	return []Capability{
		CapGlucose, CapActiveEnergy, CapWorkouts,
		CapDietaryCarbs, CapDietaryFat, CapDietaryProtein,
		CapBodyMass, CapHeight,
	}
}

// WriteCapabilities is the fixed set requested for write access.
func WriteCapabilities() []Capability {
	return []Capability{
		CapGlucose, CapActiveEnergy, CapWorkouts,
		CapDietaryCarbs, CapDietaryFat, CapDietaryProtein,
	}
}

// AuthStatus is the provider's grant state for a capability.
type AuthStatus int

const (
	AuthNotDetermined AuthStatus = iota
	AuthGranted
	AuthDenied
)

// String returns the human-readable label for the status.
func (s AuthStatus) String() string {
	switch s {
	case AuthGranted:
		return "granted"
	case AuthDenied:
		return "denied"
	default:
		return "not determined"
	}
}

// Quantity sample units as the provider reports them.
const (
	UnitMgdl = "mg/dL"
	UnitMmol = "mmol/L"
	UnitGram = "g"
	UnitKcal = "kcal"
)

// QuantitySample is a single raw measurement returned by (or pushed to) the
// external health provider.
type QuantitySample struct {
	Type    Capability
	Value   float64
	Unit    string
	StartAt time.Time
	EndAt   time.Time
	Note    string
}

// WorkoutSample is a raw workout session returned by (or pushed to) the
// external health provider.
type WorkoutSample struct {
	ActivityCode    string
	StartAt         time.Time
	DurationSec     int64
	TotalEnergyKcal *float64 // nil when the provider recorded no energy
	Metadata        map[string]string
}
