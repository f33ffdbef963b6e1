package sync

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/adamjohnlea/reverseit-diabetes-app/internal/model"
)

var testLogger = slog.Default()

// testNow is the fixed wall clock used by coordinator tests.
var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestCoordinator(p *mockProvider, s *mockStore, minPullInterval time.Duration) *Coordinator {
	c := NewCoordinator(p, s, minPullInterval, testLogger)
	c.now = func() time.Time { return testNow }
	return c
}

func glucoseSamples(n int) []model.QuantitySample {
	samples := make([]model.QuantitySample, n)
	for i := range samples {
		at := testNow.Add(-time.Duration(n-i) * time.Hour)
		samples[i] = model.QuantitySample{
			Type:    model.CapGlucose,
			Value:   100 + float64(i),
			Unit:    model.UnitMgdl,
			StartAt: at,
			EndAt:   at,
		}
	}
	return samples
}

func workoutSamples(n int) []model.WorkoutSample {
	workouts := make([]model.WorkoutSample, n)
	for i := range workouts {
		workouts[i] = model.WorkoutSample{
			ActivityCode: "running",
			StartAt:      testNow.Add(-time.Duration(n-i) * time.Hour),
			DurationSec:  1800,
		}
	}
	return workouts
}

// ---------------------------------------------------------------------------
// Scenario 1: Authorization state tracking
// ---------------------------------------------------------------------------

func TestCheckAuthorizationStatus_Granted(t *testing.T) {
	p := newMockProvider()
	c := newTestCoordinator(p, newMockStore(), 0)

	c.CheckAuthorizationStatus(context.Background())
	if !c.Authorized() {
		t.Error("Authorized() = false, want true after granted status")
	}
}

func TestCheckAuthorizationStatus_ProviderUnavailable(t *testing.T) {
	p := newMockProvider()
	p.available = false
	c := newTestCoordinator(p, newMockStore(), 0)

	c.CheckAuthorizationStatus(context.Background())
	if c.Authorized() {
		t.Error("Authorized() = true, want false when provider unavailable")
	}
}

func TestCheckAuthorizationStatus_StatusError_NeverFails(t *testing.T) {
	p := newMockProvider()
	p.authErr = errors.New("boom")
	c := newTestCoordinator(p, newMockStore(), 0)

	// Must not panic or surface the error; the flag just stays false.
	c.CheckAuthorizationStatus(context.Background())
	if c.Authorized() {
		t.Error("Authorized() = true, want false when status query errors")
	}
}

func TestCheckAuthorizationStatus_Denied(t *testing.T) {
	p := newMockProvider()
	p.authStatus = model.AuthDenied
	c := newTestCoordinator(p, newMockStore(), 0)

	c.CheckAuthorizationStatus(context.Background())
	if c.Authorized() {
		t.Error("Authorized() = true, want false for denied status")
	}
}

func TestRequestAuthorization_SetsFlagAndCapabilitySets(t *testing.T) {
	p := newMockProvider()
	p.authStatus = model.AuthNotDetermined
	c := newTestCoordinator(p, newMockStore(), 0)

	if err := c.RequestAuthorization(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Authorized() {
		t.Error("Authorized() = false, want true after successful request")
	}
	if len(p.requestedRead) != len(model.ReadCapabilities()) {
		t.Errorf("requested read capabilities = %d, want %d",
			len(p.requestedRead), len(model.ReadCapabilities()))
	}
	if len(p.requestedWrite) != len(model.WriteCapabilities()) {
		t.Errorf("requested write capabilities = %d, want %d",
			len(p.requestedWrite), len(model.WriteCapabilities()))
	}
}

func TestRequestAuthorization_DeniedSurfacesError(t *testing.T) {
	p := newMockProvider()
	p.requestErr = errors.New("user denied access")
	c := newTestCoordinator(p, newMockStore(), 0)

	if err := c.RequestAuthorization(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
	if c.Authorized() {
		t.Error("Authorized() = true, want false after denied request")
	}
}

// ---------------------------------------------------------------------------
// Scenario 2: Unauthorized import is a silent no-op
// ---------------------------------------------------------------------------

func TestImportRecent_Unauthorized_SilentNoop(t *testing.T) {
	p := newMockProvider()
	p.glucose = glucoseSamples(5)
	s := newMockStore()
	c := newTestCoordinator(p, s, 0)
	// Authorization never checked or requested.

	res := c.ImportRecent(context.Background(), 7)

	if res.GlucoseCount != 0 || res.ExerciseCount != 0 {
		t.Errorf("counts = %d/%d, want 0/0", res.GlucoseCount, res.ExerciseCount)
	}
	if len(p.glucoseQueries) != 0 || len(p.workoutQueries) != 0 {
		t.Error("provider was queried despite missing authorization")
	}
	if len(s.glucoseBatches) != 0 {
		t.Error("store was written despite missing authorization")
	}
}

// ---------------------------------------------------------------------------
// Scenario 3: Window bounds and ordering
// ---------------------------------------------------------------------------

func TestImportRecent_QueriesBoundedAscendingWindow(t *testing.T) {
	p := newMockProvider()
	c := newTestCoordinator(p, newMockStore(), 0)
	c.CheckAuthorizationStatus(context.Background())

	c.ImportRecent(context.Background(), 7)

	if len(p.glucoseQueries) != 1 {
		t.Fatalf("glucose queries = %d, want 1", len(p.glucoseQueries))
	}
	q := p.glucoseQueries[0]
	if !q.ascending {
		t.Error("glucose query not ascending; imports must run earliest-to-latest")
	}
	if !q.to.Equal(testNow) {
		t.Errorf("query to = %v, want %v", q.to, testNow)
	}
	if want := testNow.Add(-7 * 24 * time.Hour); !q.from.Equal(want) {
		t.Errorf("query from = %v, want %v", q.from, want)
	}
}

func TestImportRecent_ZeroWindowFallsBackToDefault(t *testing.T) {
	p := newMockProvider()
	c := newTestCoordinator(p, newMockStore(), 0)
	c.CheckAuthorizationStatus(context.Background())

	c.ImportRecent(context.Background(), 0)

	q := p.glucoseQueries[0]
	if want := testNow.Add(-DefaultWindowDays * 24 * time.Hour); !q.from.Equal(want) {
		t.Errorf("query from = %v, want %v (default window)", q.from, want)
	}
}

// ---------------------------------------------------------------------------
// Scenario 4: Batch sizes and commit counts
// ---------------------------------------------------------------------------

func TestImportRecent_CommitsPerBatch(t *testing.T) {
	tests := []struct {
		name        string
		glucose     int
		workouts    int
		wantGCommit int
		wantWCommit int
	}{
		{"empty window", 0, 0, 0, 0},
		{"single partial batch", 5, 3, 1, 1},
		{"exact batch boundary", 40, 20, 2, 2},
		{"one over boundary", 41, 21, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newMockProvider()
			p.glucose = glucoseSamples(tt.glucose)
			p.workouts = workoutSamples(tt.workouts)
			s := newMockStore()
			c := newTestCoordinator(p, s, 0)
			c.CheckAuthorizationStatus(context.Background())

			res := c.ImportRecent(context.Background(), 7)
			if !res.Success() {
				t.Fatalf("import failed: %v", res.Err)
			}

			if len(s.glucoseBatches) != tt.wantGCommit {
				t.Errorf("glucose commits = %d, want %d", len(s.glucoseBatches), tt.wantGCommit)
			}
			if len(s.exerciseBatches) != tt.wantWCommit {
				t.Errorf("exercise commits = %d, want %d", len(s.exerciseBatches), tt.wantWCommit)
			}
			if res.GlucoseCount != tt.glucose {
				t.Errorf("GlucoseCount = %d, want %d", res.GlucoseCount, tt.glucose)
			}
			if res.ExerciseCount != tt.workouts {
				t.Errorf("ExerciseCount = %d, want %d", res.ExerciseCount, tt.workouts)
			}
		})
	}
}

func TestImportRecent_BatchesNeverExceedSize(t *testing.T) {
	p := newMockProvider()
	p.glucose = glucoseSamples(45)
	s := newMockStore()
	c := newTestCoordinator(p, s, 0)
	c.CheckAuthorizationStatus(context.Background())

	c.ImportRecent(context.Background(), 7)

	for i, b := range s.glucoseBatches {
		if len(b) > glucoseBatchSize {
			t.Errorf("batch %d has %d samples, exceeds %d", i, len(b), glucoseBatchSize)
		}
	}
	// 45 = 20 + 20 + 5
	if len(s.glucoseBatches) != 3 || len(s.glucoseBatches[2]) != 5 {
		t.Errorf("batch layout = %d batches, want 3 with trailing 5", len(s.glucoseBatches))
	}
}

// ---------------------------------------------------------------------------
// Scenario 5: Commit failure halts the sub-pipeline; prior batches persist
// ---------------------------------------------------------------------------

func TestImportRecent_CommitFailureKeepsPriorBatches(t *testing.T) {
	p := newMockProvider()
	p.glucose = glucoseSamples(45)
	s := newMockStore()
	s.failGlucoseOnCommit = 3 // first two commits land, third fails
	c := newTestCoordinator(p, s, 0)
	c.CheckAuthorizationStatus(context.Background())

	res := c.ImportRecent(context.Background(), 7)

	if res.Glucose {
		t.Error("Glucose = true, want false after commit failure")
	}
	if res.Err == nil {
		t.Error("Err = nil, want the commit failure")
	}
	if res.GlucoseCount != 40 {
		t.Errorf("GlucoseCount = %d, want 40 (two committed batches)", res.GlucoseCount)
	}
	if got := s.glucoseTotal(); got != 40 {
		t.Errorf("persisted = %d, want 40 — committed batches must stay durable", got)
	}
}

func TestImportRecent_SubPipelinesFailIndependently(t *testing.T) {
	p := newMockProvider()
	p.glucose = glucoseSamples(5)
	p.workouts = workoutSamples(4)
	p.glucoseQueryErr = errors.New("entries endpoint down")
	s := newMockStore()
	c := newTestCoordinator(p, s, 0)
	c.CheckAuthorizationStatus(context.Background())

	res := c.ImportRecent(context.Background(), 7)

	if res.Glucose {
		t.Error("Glucose = true, want false after query failure")
	}
	if !res.Exercise {
		t.Error("Exercise = false, want true — the workout pipeline is independent")
	}
	if res.ExerciseCount != 4 {
		t.Errorf("ExerciseCount = %d, want 4", res.ExerciseCount)
	}
	if res.Success() {
		t.Error("Success() = true, want false with one failed sub-pipeline")
	}
}

// ---------------------------------------------------------------------------
// Scenario 6: No deduplication across imports
// ---------------------------------------------------------------------------

func TestImportRecent_OverlappingImportsDuplicate(t *testing.T) {
	p := newMockProvider()
	p.glucose = glucoseSamples(5)
	s := newMockStore()
	c := newTestCoordinator(p, s, 0)
	c.CheckAuthorizationStatus(context.Background())

	c.ImportRecent(context.Background(), 7)
	c.ImportRecent(context.Background(), 7)

	if got := s.glucoseTotal(); got != 10 {
		t.Errorf("persisted = %d, want 10 — imports do not deduplicate", got)
	}
}

// ---------------------------------------------------------------------------
// Scenario 7: Pull throttling
// ---------------------------------------------------------------------------

func TestImportRecent_ThrottledWithinMinInterval(t *testing.T) {
	p := newMockProvider()
	p.glucose = glucoseSamples(2)
	s := newMockStore()
	c := newTestCoordinator(p, s, 15*time.Minute)
	c.CheckAuthorizationStatus(context.Background())

	first := c.ImportRecent(context.Background(), 7)
	if !first.Success() {
		t.Fatalf("first import failed: %v", first.Err)
	}

	second := c.ImportRecent(context.Background(), 7)
	if !second.Throttled {
		t.Error("Throttled = false, want true within min pull interval")
	}
	if got := s.glucoseTotal(); got != 2 {
		t.Errorf("persisted = %d, want 2 — throttled pull must not query", got)
	}

	// Advance past the interval and the pull runs again.
	c.now = func() time.Time { return testNow.Add(16 * time.Minute) }
	third := c.ImportRecent(context.Background(), 7)
	if third.Throttled {
		t.Error("Throttled = true after interval elapsed, want false")
	}
	if got := s.glucoseTotal(); got != 4 {
		t.Errorf("persisted = %d, want 4", got)
	}
}

func TestImportRecent_LastPullOnlySetOnFullSuccess(t *testing.T) {
	p := newMockProvider()
	p.glucoseQueryErr = errors.New("boom")
	c := newTestCoordinator(p, newMockStore(), 0)
	c.CheckAuthorizationStatus(context.Background())

	c.ImportRecent(context.Background(), 7)
	if !c.LastPullAt().IsZero() {
		t.Error("LastPullAt set after a failed import, want zero")
	}

	p.glucoseQueryErr = nil
	c.ImportRecent(context.Background(), 7)
	if !c.LastPullAt().Equal(testNow) {
		t.Errorf("LastPullAt = %v, want %v", c.LastPullAt(), testNow)
	}
}

// ---------------------------------------------------------------------------
// Scenario 8: Sample mapping
// ---------------------------------------------------------------------------

func TestMapGlucose_NormalisesMmolAndDefaultsContext(t *testing.T) {
	at := testNow.Add(-time.Hour)
	g := mapGlucose(model.QuantitySample{
		Type:    model.CapGlucose,
		Value:   5.5,
		Unit:    model.UnitMmol,
		StartAt: at,
		Note:    "after lunch",
	})

	if want := model.MmolToMgdl(5.5); math.Abs(g.ValueMgdl-want) > 1e-9 {
		t.Errorf("ValueMgdl = %v, want %v", g.ValueMgdl, want)
	}
	if g.Context != model.ContextRandom {
		t.Errorf("Context = %q, want %q — provider conveys no context", g.Context, model.ContextRandom)
	}
	if g.ID == "" {
		t.Error("ID is empty, want a fresh identifier")
	}
	if !g.TakenAt.Equal(at) {
		t.Errorf("TakenAt = %v, want %v", g.TakenAt, at)
	}
}

func TestMapWorkout_ResolvesKindAndDropsMalformed(t *testing.T) {
	e, ok := mapWorkout(model.WorkoutSample{
		ActivityCode: "traditional_strength_training",
		StartAt:      testNow,
		DurationSec:  2400,
		Metadata:     map[string]string{"intensity": "vigorous"},
	})
	if !ok {
		t.Fatal("mapWorkout dropped a well-formed workout")
	}
	if e.Activity != model.ActivityStrength {
		t.Errorf("Activity = %q, want %q", e.Activity, model.ActivityStrength)
	}
	if e.Intensity != model.IntensityVigorous {
		t.Errorf("Intensity = %q, want vigorous from metadata", e.Intensity)
	}

	if _, ok := mapWorkout(model.WorkoutSample{ActivityCode: "running", DurationSec: 0}); ok {
		t.Error("mapWorkout kept a zero-duration workout, want dropped")
	}
}

func TestImportRecent_SkipsMalformedWorkoutsInsideBatch(t *testing.T) {
	p := newMockProvider()
	workouts := workoutSamples(5)
	workouts[2].DurationSec = 0 // malformed, skipped without halting
	p.workouts = workouts
	s := newMockStore()
	c := newTestCoordinator(p, s, 0)
	c.CheckAuthorizationStatus(context.Background())

	res := c.ImportRecent(context.Background(), 7)
	if !res.Exercise {
		t.Fatalf("workout pipeline failed: %v", res.Err)
	}
	if res.ExerciseCount != 4 {
		t.Errorf("ExerciseCount = %d, want 4 (one skipped)", res.ExerciseCount)
	}
	if got := s.exerciseTotal(); got != 4 {
		t.Errorf("persisted = %d, want 4", got)
	}
}
