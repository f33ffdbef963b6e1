package model

import "testing"

// ---------------------------------------------------------------------------
// ResolveActivity
// ---------------------------------------------------------------------------

func TestResolveActivity(t *testing.T) {
	tests := []struct {
		freeText string
		want     ActivityKind
	}{
		{"Morning Jog", ActivityRunning},
		{"5k run", ActivityRunning},
		{"sprints", ActivityRunning},
		{"evening bike ride", ActivityCycling},
		{"Spin class", ActivityCycling},
		{"swim practice", ActivitySwimming},
		{"dog walk", ActivityWalking},
		{"hiked the ridge", ActivityWalking},
		{"weight training", ActivityStrength},
		{"gym", ActivityStrength},
		{"hot yoga", ActivityYoga},
		{"pilates", ActivityYoga},
		{"stretching", ActivityYoga},
		{"Juggling", ActivityOther},
		{"", ActivityOther},
	}
	for _, tt := range tests {
		if got := ResolveActivity(tt.freeText); got != tt.want {
			t.Errorf("ResolveActivity(%q) = %q, want %q", tt.freeText, got, tt.want)
		}
	}
}

// "treadmill walking run" contains keywords for two kinds; the table order
// decides, and running comes first.
func TestResolveActivity_FirstMatchWins(t *testing.T) {
	if got := ResolveActivity("run then walk"); got != ActivityRunning {
		t.Errorf("ResolveActivity = %q, want running (table order)", got)
	}
}

// ---------------------------------------------------------------------------
// Provider taxonomy mapping
// ---------------------------------------------------------------------------

func TestActivityFromProvider(t *testing.T) {
	tests := []struct {
		code string
		want ActivityKind
	}{
		{"running", ActivityRunning},
		{"walking", ActivityWalking},
		{"hiking", ActivityWalking},
		{"cycling", ActivityCycling},
		{"swimming", ActivitySwimming},
		{"traditional_strength_training", ActivityStrength},
		{"functional_strength_training", ActivityStrength},
		{"high_intensity_interval_training", ActivityStrength},
		{"yoga", ActivityYoga},
		{"pilates", ActivityYoga},
		{"RUNNING", ActivityRunning}, // case-insensitive
		{"cricket", ActivityOther},
		{"", ActivityOther},
	}
	for _, tt := range tests {
		if got := ActivityFromProvider(tt.code); got != tt.want {
			t.Errorf("ActivityFromProvider(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestProviderCode_RoundTrip(t *testing.T) {
	kinds := []ActivityKind{
		ActivityRunning, ActivityWalking, ActivityCycling,
		ActivitySwimming, ActivityStrength, ActivityYoga,
	}
	for _, kind := range kinds {
		if got := ActivityFromProvider(kind.ProviderCode()); got != kind {
			t.Errorf("round trip of %q via %q = %q", kind, kind.ProviderCode(), got)
		}
	}
	if ActivityOther.ProviderCode() != "other" {
		t.Errorf("ActivityOther.ProviderCode() = %q, want other", ActivityOther.ProviderCode())
	}
}

func TestActivityKind_Label(t *testing.T) {
	tests := []struct {
		kind ActivityKind
		want string
	}{
		{ActivityRunning, "Running"},
		{ActivityStrength, "Strength Training"},
		{ActivityOther, "Other Exercise"},
		{ActivityKind("parkour"), "Other Exercise"},
	}
	for _, tt := range tests {
		if got := tt.kind.Label(); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
