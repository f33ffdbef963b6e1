// Package sync implements the coordinator that reconciles the local record
// store with the external health-data provider. It pulls a bounded time
// window of provider samples, maps them to local record shape, inserts them
// in small batches with per-batch durable commits, and pushes newly-created
// local records outward opportunistically.
//
// The package contains one main component:
//
//   - [Coordinator] holds the authorization state and runs the import
//     pipeline and the outbound pushes.
package sync

import (
	"context"
	"time"

	"github.com/adamjohnlea/reverseit-diabetes-app/internal/model"
)

// HealthProvider is the external health-data service the coordinator syncs
// against. Implemented by [nightscout.Adapter].
type HealthProvider interface {
	IsAvailable(ctx context.Context) bool
	AuthorizationStatus(ctx context.Context, cap model.Capability) (model.AuthStatus, error)
	RequestAuthorization(ctx context.Context, read, write []model.Capability) error
	QueryGlucose(ctx context.Context, from, to time.Time, ascending bool) ([]model.QuantitySample, error)
	QueryWorkouts(ctx context.Context, from, to time.Time, ascending bool) ([]model.WorkoutSample, error)
	SaveQuantities(ctx context.Context, samples []model.QuantitySample) error
	SaveWorkout(ctx context.Context, w model.WorkoutSample) error
}

// RecordStore is the slice of the local store the coordinator needs. One
// batch-insert call is exactly one durable commit. Implemented by
// [store.Store].
type RecordStore interface {
	InsertGlucoseBatch(ctx context.Context, batch []model.GlucoseSample) error
	InsertExerciseBatch(ctx context.Context, batch []model.ExerciseSample) error
}
