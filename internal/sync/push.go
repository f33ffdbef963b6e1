package sync

import (
	"context"
	"errors"

	"github.com/adamjohnlea/reverseit-diabetes-app/internal/model"
)

// ErrNotAuthorized is returned by push operations when the provider grant is
// absent. Callers normally gate pushes on [Coordinator.Authorized] and never
// see it.
var ErrNotAuthorized = errors.New("provider authorization not granted")

// PushGlucose pushes one local reading outward as a single provider sample
// at a fixed instant (start = end = reading time). The local record is the
// source of truth: a push failure is surfaced for display and changes
// nothing locally.
func (c *Coordinator) PushGlucose(ctx context.Context, g *model.GlucoseSample) error {
	if !c.authorized {
		return ErrNotAuthorized
	}

	note := string(g.Context)
	if g.Note != "" {
		note += ": " + g.Note
	}
	sample := model.QuantitySample{
		Type:    model.CapGlucose,
		Value:   g.ValueMgdl, // mg/dL is the provider's canonical concentration unit
		Unit:    model.UnitMgdl,
		StartAt: g.TakenAt,
		EndAt:   g.TakenAt,
		Note:    note,
	}

	if err := c.provider.SaveQuantities(ctx, []model.QuantitySample{sample}); err != nil {
		c.cntErrors.Add(ctx, 1)
		c.log.Error("glucose push failed", "id", g.ID, "error", err)
		return err
	}
	c.cntPushes.Add(ctx, 1)
	c.log.Debug("glucose pushed", "id", g.ID)
	return nil
}

// PushFood pushes a meal outward as up to three independent macro samples,
// one per macro with a positive gram value. A meal with all macros at zero
// produces zero provider writes and reports success — a no-op, not a
// failure.
func (c *Coordinator) PushFood(ctx context.Context, f *model.FoodSample) error {
	if !c.authorized {
		return ErrNotAuthorized
	}

	macros := []struct {
		cap   model.Capability
		grams float64
	}{
		{model.CapDietaryCarbs, f.CarbsG},
		{model.CapDietaryProtein, f.ProteinG},
		{model.CapDietaryFat, f.FatG},
	}

	var samples []model.QuantitySample
	for _, m := range macros {
		if m.grams <= 0 {
			continue
		}
		samples = append(samples, model.QuantitySample{
			Type:    m.cap,
			Value:   m.grams,
			Unit:    model.UnitGram,
			StartAt: f.EatenAt,
			EndAt:   f.EatenAt,
			Note:    f.Name,
		})
	}
	if len(samples) == 0 {
		c.log.Debug("meal push skipped: no macros to write", "id", f.ID)
		return nil
	}

	if err := c.provider.SaveQuantities(ctx, samples); err != nil {
		c.cntErrors.Add(ctx, 1)
		c.log.Error("meal push failed", "id", f.ID, "error", err)
		return err
	}
	c.cntPushes.Add(ctx, 1)
	c.log.Debug("meal pushed", "id", f.ID, "samples", len(samples))
	return nil
}

// PushExercise pushes a session outward as a single workout spanning
// [start, start + duration], carrying the recorded energy (when known) and
// the intensity tag as side metadata. The activity code comes from the
// record's resolved kind; records created before kind resolution existed
// are resolved from their free-text label here.
func (c *Coordinator) PushExercise(ctx context.Context, e *model.ExerciseSample) error {
	if !c.authorized {
		return ErrNotAuthorized
	}

	kind := e.Activity
	if kind == "" {
		kind = model.ResolveActivity(e.Label)
	}

	var energy *float64
	if e.CaloriesBurned != nil {
		v := *e.CaloriesBurned
		energy = &v
	}

	w := model.WorkoutSample{
		ActivityCode:    kind.ProviderCode(),
		StartAt:         e.StartedAt,
		DurationSec:     e.DurationSec,
		TotalEnergyKcal: energy,
		Metadata:        map[string]string{intensityKey: string(e.Intensity)},
	}

	if err := c.provider.SaveWorkout(ctx, w); err != nil {
		c.cntErrors.Add(ctx, 1)
		c.log.Error("exercise push failed", "id", e.ID, "error", err)
		return err
	}
	c.cntPushes.Add(ctx, 1)
	c.log.Debug("exercise pushed", "id", e.ID, "activity", kind)
	return nil
}
