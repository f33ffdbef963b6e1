package sync

import (
	"context"
	"log/slog"
	stdsync "sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamjohnlea/reverseit-diabetes-app/internal/model"
)

const (
	otelScope      = "reverseit/sync"
	spanImport     = "sync.import"
	metricGlucose  = "reverseit.sync.glucose.imported"
	metricExercise = "reverseit.sync.exercise.imported"
	metricCommits  = "reverseit.sync.batches.committed"
	metricPushes   = "reverseit.sync.records.pushed"
	metricErrors   = "reverseit.sync.errors"
)

const (
	// DefaultWindowDays is the lookback window for an import when the
	// caller does not specify one.
	DefaultWindowDays = 7

	// glucoseBatchSize bounds how many readings are inserted per commit.
	glucoseBatchSize = 20

	// workoutBatchSize bounds how many sessions are inserted per commit.
	workoutBatchSize = 10
)

// ImportResult reports the outcome of one [Coordinator.ImportRecent] call,
// per sub-pipeline. Partial data committed before a failure stays committed.
type ImportResult struct {
	Glucose       bool
	Exercise      bool
	GlucoseCount  int
	ExerciseCount int

	// Throttled is set when the pull was skipped because the previous
	// successful pull is more recent than the configured minimum interval.
	Throttled bool

	// Err is the first underlying failure, kept for user-visible display.
	// Both sub-pipeline flags already encode success; Err never adds
	// failure state beyond them.
	Err error
}

// Success reports whether both sub-pipelines completed fully.
func (r ImportResult) Success() bool { return r.Glucose && r.Exercise }

// Coordinator orchestrates bidirectional synchronization between the local
// record store and the external health provider. Construct one with
// [NewCoordinator] and inject it into call sites; there is no shared global.
//
// All mutation of the authorization state happens on the caller's goroutine;
// the two import sub-pipelines only touch disjoint record kinds.
type Coordinator struct {
	provider HealthProvider
	store    RecordStore
	log      *slog.Logger

	// minPullInterval throttles redundant pulls. Zero disables throttling.
	minPullInterval time.Duration

	authorized bool
	lastPullAt time.Time

	now func() time.Time

	// OTel instruments — always non-nil (no-op when telemetry is disabled).
	tracer      trace.Tracer
	cntGlucose  metric.Int64Counter
	cntExercise metric.Int64Counter
	cntCommits  metric.Int64Counter
	cntPushes   metric.Int64Counter
	cntErrors   metric.Int64Counter
}

// NewCoordinator creates a Coordinator wired to the given provider and
// store. minPullInterval of zero disables pull throttling.
func NewCoordinator(provider HealthProvider, store RecordStore, minPullInterval time.Duration, logger *slog.Logger) *Coordinator {
	tracer := otel.Tracer(otelScope)
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Coordinator{
		provider:        provider,
		store:           store,
		log:             logger,
		minPullInterval: minPullInterval,
		now:             time.Now,

		tracer:      tracer,
		cntGlucose:  mustCounter(metricGlucose, "Number of glucose readings imported"),
		cntExercise: mustCounter(metricExercise, "Number of exercise sessions imported"),
		cntCommits:  mustCounter(metricCommits, "Number of import batches committed"),
		cntPushes:   mustCounter(metricPushes, "Number of local records pushed to the provider"),
		cntErrors:   mustCounter(metricErrors, "Number of sync errors encountered"),
	}
}

// Authorized reports the coordinator's current view of the provider grant.
// Views read this to gate sync toggles; only the coordinator mutates it.
func (c *Coordinator) Authorized() bool { return c.authorized }

// LastPullAt returns the time of the last fully successful import, or the
// zero time if none has completed yet.
func (c *Coordinator) LastPullAt() time.Time { return c.lastPullAt }

// CheckAuthorizationStatus refreshes the authorized flag from the provider's
// grant status for the canonical glucose-read capability. It never fails:
// an unavailable or erroring provider simply leaves the flag false.
func (c *Coordinator) CheckAuthorizationStatus(ctx context.Context) {
	if !c.provider.IsAvailable(ctx) {
		c.authorized = false
		return
	}
	status, err := c.provider.AuthorizationStatus(ctx, model.CapGlucose)
	if err != nil {
		c.log.Debug("authorization status query failed", "error", err)
		c.authorized = false
		return
	}
	c.authorized = status == model.AuthGranted
}

// RequestAuthorization asks the provider to grant the fixed read and write
// capability sets. Failures are surfaced to the caller without retry — a
// denied grant needs fresh user consent, not another attempt.
func (c *Coordinator) RequestAuthorization(ctx context.Context) error {
	err := c.provider.RequestAuthorization(ctx, model.ReadCapabilities(), model.WriteCapabilities())
	if err != nil {
		c.authorized = false
		return err
	}
	c.authorized = true
	return nil
}

// ImportRecent pulls provider samples from the last windowDays days and
// inserts them into the record store in batches, committing after each
// batch. The glucose and workout sub-pipelines run concurrently and fail
// independently; a commit failure halts the remaining batches of that
// sub-pipeline only, and batches already committed stay durable.
//
// When not authorized the import is a silent no-op — it is opportunistic,
// not mandatory.
//
// Imports do not deduplicate against records from earlier calls: pulling
// the same window twice stores every sample twice. Callers bound this with
// the pull throttle or by choosing non-overlapping windows.
func (c *Coordinator) ImportRecent(ctx context.Context, windowDays int) ImportResult {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	if !c.authorized {
		c.log.Debug("import skipped: not authorized")
		return ImportResult{}
	}

	now := c.now().UTC()
	if c.minPullInterval > 0 && !c.lastPullAt.IsZero() && now.Sub(c.lastPullAt) < c.minPullInterval {
		c.log.Debug("import skipped: throttled",
			"last_pull", c.lastPullAt, "min_interval", c.minPullInterval)
		return ImportResult{Throttled: true}
	}

	ctx, span := c.tracer.Start(ctx, spanImport)
	defer span.End()

	from := now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	var (
		wg                      stdsync.WaitGroup
		glucoseN, exerciseN     int
		glucoseErr, exerciseErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		glucoseN, glucoseErr = c.importGlucose(ctx, from, now)
	}()
	go func() {
		defer wg.Done()
		exerciseN, exerciseErr = c.importWorkouts(ctx, from, now)
	}()
	wg.Wait()

	result := ImportResult{
		Glucose:       glucoseErr == nil,
		Exercise:      exerciseErr == nil,
		GlucoseCount:  glucoseN,
		ExerciseCount: exerciseN,
	}
	if glucoseErr != nil {
		result.Err = glucoseErr
		c.cntErrors.Add(ctx, 1)
	}
	if exerciseErr != nil {
		if result.Err == nil {
			result.Err = exerciseErr
		}
		c.cntErrors.Add(ctx, 1)
	}
	if result.Success() {
		c.lastPullAt = now
	}

	if glucoseN > 0 {
		c.cntGlucose.Add(ctx, int64(glucoseN))
	}
	if exerciseN > 0 {
		c.cntExercise.Add(ctx, int64(exerciseN))
	}
	span.SetAttributes(
		attribute.Int("sync.glucose_imported", glucoseN),
		attribute.Int("sync.exercise_imported", exerciseN),
		attribute.Bool("sync.glucose_ok", result.Glucose),
		attribute.Bool("sync.exercise_ok", result.Exercise),
	)
	if result.Err != nil {
		span.RecordError(result.Err)
	}

	c.log.Info("import complete",
		"window_days", windowDays,
		"glucose_imported", glucoseN,
		"exercise_imported", exerciseN,
		"glucose_ok", result.Glucose,
		"exercise_ok", result.Exercise,
	)
	return result
}

// importGlucose runs the glucose sub-pipeline: query, map, insert in
// batches of glucoseBatchSize with one durable commit per batch. Returns
// the number of readings committed.
func (c *Coordinator) importGlucose(ctx context.Context, from, to time.Time) (int, error) {
	samples, err := c.provider.QueryGlucose(ctx, from, to, true)
	if err != nil {
		c.log.Error("glucose query failed", "error", err)
		return 0, err
	}

	committed := 0
	for start := 0; start < len(samples); start += glucoseBatchSize {
		end := min(start+glucoseBatchSize, len(samples))

		batch := make([]model.GlucoseSample, 0, end-start)
		for _, s := range samples[start:end] {
			batch = append(batch, mapGlucose(s))
		}

		// Strict sequencing: the next batch only starts once this commit
		// has completed, so a crash leaves a contiguous earliest-to-latest
		// prefix committed.
		if err := c.store.InsertGlucoseBatch(ctx, batch); err != nil {
			c.log.Error("glucose batch commit failed, halting sub-pipeline",
				"committed", committed, "error", err)
			return committed, err
		}
		committed += len(batch)
		c.cntCommits.Add(ctx, 1)
	}
	return committed, nil
}

// importWorkouts runs the workout sub-pipeline with the same batching
// discipline as glucose, at workoutBatchSize.
func (c *Coordinator) importWorkouts(ctx context.Context, from, to time.Time) (int, error) {
	workouts, err := c.provider.QueryWorkouts(ctx, from, to, true)
	if err != nil {
		c.log.Error("workout query failed", "error", err)
		return 0, err
	}

	committed := 0
	for start := 0; start < len(workouts); start += workoutBatchSize {
		end := min(start+workoutBatchSize, len(workouts))

		batch := make([]model.ExerciseSample, 0, end-start)
		for _, w := range workouts[start:end] {
			rec, ok := mapWorkout(w)
			if !ok {
				c.log.Debug("skipping malformed workout sample",
					"activity", w.ActivityCode, "duration_sec", w.DurationSec)
				continue
			}
			batch = append(batch, rec)
		}
		if len(batch) == 0 {
			continue
		}

		if err := c.store.InsertExerciseBatch(ctx, batch); err != nil {
			c.log.Error("workout batch commit failed, halting sub-pipeline",
				"committed", committed, "error", err)
			return committed, err
		}
		committed += len(batch)
		c.cntCommits.Add(ctx, 1)
	}
	return committed, nil
}

// mapGlucose converts a provider glucose sample to a local record. The
// provider conveys no meal-timing context, so the context tag defaults to
// random; values arriving in mmol/L are normalised to mg/dL.
func mapGlucose(s model.QuantitySample) model.GlucoseSample {
	value := s.Value
	if s.Unit == model.UnitMmol {
		value = model.MmolToMgdl(value)
	}
	return model.GlucoseSample{
		ID:        model.NewID(),
		TakenAt:   s.StartAt,
		ValueMgdl: value,
		Context:   model.ContextRandom,
		Note:      s.Note,
	}
}

// mapWorkout converts a provider workout to a local exercise record. The
// activity kind comes from the fixed provider-taxonomy table with an "other"
// fallback; intensity defaults to moderate since the provider conveys no
// intensity signal. Workouts with a non-positive duration are dropped.
func mapWorkout(w model.WorkoutSample) (model.ExerciseSample, bool) {
	if w.DurationSec <= 0 {
		return model.ExerciseSample{}, false
	}

	kind := model.ActivityFromProvider(w.ActivityCode)
	label := w.ActivityCode
	if label == "" || kind == model.ActivityOther {
		label = kind.Label()
	}

	var calories *float64
	if w.TotalEnergyKcal != nil {
		v := *w.TotalEnergyKcal
		calories = &v
	}

	return model.ExerciseSample{
		ID:             model.NewID(),
		Activity:       kind,
		Label:          label,
		StartedAt:      w.StartAt,
		DurationSec:    w.DurationSec,
		Intensity:      model.ParseIntensity(w.Metadata[intensityKey]),
		CaloriesBurned: calories,
	}, true
}

// intensityKey is the metadata slot the provider adapter uses to carry the
// intensity tag alongside a workout.
const intensityKey = "intensity"
