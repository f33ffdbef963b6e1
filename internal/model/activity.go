package model

import "strings"

// ActivityKind is the closed set of exercise categories the app understands.
// Free-text input and provider taxonomy codes are both resolved into this
// set exactly once, at record-creation or import time.
type ActivityKind string

const (
	ActivityRunning  ActivityKind = "running"
	ActivityWalking  ActivityKind = "walking"
	ActivityCycling  ActivityKind = "cycling"
	ActivitySwimming ActivityKind = "swimming"
	ActivityStrength ActivityKind = "strength"
	ActivityYoga     ActivityKind = "yoga"
	ActivityOther    ActivityKind = "other"
)

// Label returns the display name for the activity kind.
func (a ActivityKind) Label() string {
	switch a {
	case ActivityRunning:
		return "Running"
	case ActivityWalking:
		return "Walking"
	case ActivityCycling:
		return "Cycling"
	case ActivitySwimming:
		return "Swimming"
	case ActivityStrength:
		return "Strength Training"
	case ActivityYoga:
		return "Yoga"
	default:
		return "Other Exercise"
	}
}

// activityKeywords resolves free-text activity descriptions. Order matters:
// the first kind whose keyword appears as a substring wins.
var activityKeywords = []struct {
	kind     ActivityKind
	keywords []string
}{
	{ActivityRunning, []string{"run", "jog", "sprint"}},
	{ActivityCycling, []string{"cycl", "bike", "biking", "spin"}},
	{ActivitySwimming, []string{"swim"}},
	{ActivityWalking, []string{"walk", "hike", "stroll"}},
	{ActivityStrength, []string{"strength", "weight", "lift", "gym", "resistance"}},
	{ActivityYoga, []string{"yoga", "pilates", "stretch"}},
}

// ResolveActivity maps a free-text activity description to an [ActivityKind]
// via case-insensitive substring matching, falling back to [ActivityOther].
func ResolveActivity(freeText string) ActivityKind {
	s := strings.ToLower(freeText)
	for _, entry := range activityKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(s, kw) {
				return entry.kind
			}
		}
	}
	return ActivityOther
}

// providerActivity maps the provider's workout taxonomy onto the app's
// activity kinds. Codes missing from the table fall back to ActivityOther.
var providerActivity = map[string]ActivityKind{
	"running":                          ActivityRunning,
	"walking":                          ActivityWalking,
	"hiking":                           ActivityWalking,
	"cycling":                          ActivityCycling,
	"swimming":                         ActivitySwimming,
	"traditional_strength_training":    ActivityStrength,
	"functional_strength_training":     ActivityStrength,
	"high_intensity_interval_training": ActivityStrength,
	"yoga":                             ActivityYoga,
	"pilates":                          ActivityYoga,
}

// ActivityFromProvider maps a provider workout taxonomy code to an
// [ActivityKind], falling back to [ActivityOther] for unknown codes.
func ActivityFromProvider(code string) ActivityKind {
	if kind, ok := providerActivity[strings.ToLower(code)]; ok {
		return kind
	}
	return ActivityOther
}

// ProviderCode returns the provider taxonomy code used when pushing an
// exercise record outward.
func (a ActivityKind) ProviderCode() string {
	switch a {
	case ActivityRunning, ActivityWalking, ActivityCycling, ActivitySwimming, ActivityYoga:
		return string(a)
	case ActivityStrength:
		return "traditional_strength_training"
	default:
		return "other"
	}
}
