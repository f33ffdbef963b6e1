package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/adamjohnlea/reverseit-diabetes-app/internal/model"
)

// --- Mock Health Provider ----------------------------------------------------

type mockProvider struct {
	mu stdsync.Mutex

	available  bool
	authStatus model.AuthStatus
	authErr    error
	requestErr error

	glucose  []model.QuantitySample
	workouts []model.WorkoutSample

	glucoseQueryErr error
	workoutQueryErr error
	saveErr         error

	// Recorded calls, for assertions.
	glucoseQueries  []queryWindow
	workoutQueries  []queryWindow
	savedQuantities [][]model.QuantitySample
	savedWorkouts   []model.WorkoutSample
	requestedRead   []model.Capability
	requestedWrite  []model.Capability
}

type queryWindow struct {
	from, to  time.Time
	ascending bool
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		available:  true,
		authStatus: model.AuthGranted,
	}
}

func (m *mockProvider) IsAvailable(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *mockProvider) AuthorizationStatus(_ context.Context, _ model.Capability) (model.AuthStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.authErr != nil {
		return model.AuthNotDetermined, m.authErr
	}
	return m.authStatus, nil
}

func (m *mockProvider) RequestAuthorization(_ context.Context, read, write []model.Capability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestedRead = read
	m.requestedWrite = write
	if m.requestErr != nil {
		return m.requestErr
	}
	m.authStatus = model.AuthGranted
	return nil
}

func (m *mockProvider) QueryGlucose(_ context.Context, from, to time.Time, ascending bool) ([]model.QuantitySample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.glucoseQueries = append(m.glucoseQueries, queryWindow{from, to, ascending})
	if m.glucoseQueryErr != nil {
		return nil, m.glucoseQueryErr
	}
	return m.glucose, nil
}

func (m *mockProvider) QueryWorkouts(_ context.Context, from, to time.Time, ascending bool) ([]model.WorkoutSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workoutQueries = append(m.workoutQueries, queryWindow{from, to, ascending})
	if m.workoutQueryErr != nil {
		return nil, m.workoutQueryErr
	}
	return m.workouts, nil
}

func (m *mockProvider) SaveQuantities(_ context.Context, samples []model.QuantitySample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.savedQuantities = append(m.savedQuantities, samples)
	return nil
}

func (m *mockProvider) SaveWorkout(_ context.Context, w model.WorkoutSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.savedWorkouts = append(m.savedWorkouts, w)
	return nil
}

// --- Mock Record Store -------------------------------------------------------

// mockStore records every batch-insert call. Each call stands for one
// durable commit, so tests count commits by counting calls.
type mockStore struct {
	mu stdsync.Mutex

	glucoseBatches  [][]model.GlucoseSample
	exerciseBatches [][]model.ExerciseSample

	// failGlucoseOnCommit makes the Nth glucose commit fail (1-based).
	// Zero disables failure injection.
	failGlucoseOnCommit  int
	failExerciseOnCommit int
}

func newMockStore() *mockStore {
	return &mockStore{}
}

func (m *mockStore) InsertGlucoseBatch(_ context.Context, batch []model.GlucoseSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGlucoseOnCommit > 0 && len(m.glucoseBatches)+1 == m.failGlucoseOnCommit {
		return fmt.Errorf("injected commit failure on glucose batch %d", m.failGlucoseOnCommit)
	}
	cp := make([]model.GlucoseSample, len(batch))
	copy(cp, batch)
	m.glucoseBatches = append(m.glucoseBatches, cp)
	return nil
}

func (m *mockStore) InsertExerciseBatch(_ context.Context, batch []model.ExerciseSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failExerciseOnCommit > 0 && len(m.exerciseBatches)+1 == m.failExerciseOnCommit {
		return fmt.Errorf("injected commit failure on exercise batch %d", m.failExerciseOnCommit)
	}
	cp := make([]model.ExerciseSample, len(batch))
	copy(cp, batch)
	m.exerciseBatches = append(m.exerciseBatches, cp)
	return nil
}

func (m *mockStore) glucoseTotal() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.glucoseBatches {
		n += len(b)
	}
	return n
}

func (m *mockStore) exerciseTotal() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.exerciseBatches {
		n += len(b)
	}
	return n
}
