// Package store manages the SQLite database holding the four record kinds:
// the singleton Profile plus GlucoseSample, FoodSample, and ExerciseSample.
//
// Only this package may open or query the database. All other packages
// receive a [*Store] and call its methods. The store is not safe for
// concurrent writers; callers serialise mutation on one logical owner
// (the coordinator's batch loops already do).
//
// Batch inserts run inside a single SQL transaction, so one batch call is
// exactly one durable commit. The sync coordinator relies on that to bound
// transaction size and to keep a contiguous prefix of an import durable
// across a mid-import crash.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/adamjohnlea/reverseit-diabetes-app/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS profile (
    id                  INTEGER PRIMARY KEY CHECK (id = 1),
    name                TEXT    NOT NULL DEFAULT '',
    age                 INTEGER NOT NULL DEFAULT 0,
    body_mass_kg        REAL    NOT NULL DEFAULT 0,
    height_cm           REAL    NOT NULL DEFAULT 0,
    diagnosed_at        TEXT    NOT NULL DEFAULT '',
    target_glucose_min  REAL    NOT NULL DEFAULT 70,
    target_glucose_max  REAL    NOT NULL DEFAULT 180,
    target_carbs_g      REAL    NOT NULL DEFAULT 200,
    target_exercise_min INTEGER NOT NULL DEFAULT 30,
    units               TEXT    NOT NULL DEFAULT 'mgdl',
    onboarding_done     INTEGER NOT NULL DEFAULT 0,
    updated_at          TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS glucose_samples (
    id         TEXT PRIMARY KEY,
    taken_at   TEXT NOT NULL,
    value_mgdl REAL NOT NULL,
    context    TEXT NOT NULL DEFAULT 'random',
    note       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_glucose_taken_at ON glucose_samples (taken_at);

CREATE TABLE IF NOT EXISTS food_samples (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    eaten_at   TEXT NOT NULL,
    carbs_g    REAL NOT NULL DEFAULT 0,
    protein_g  REAL NOT NULL DEFAULT 0,
    fat_g      REAL NOT NULL DEFAULT 0,
    calories   REAL NOT NULL DEFAULT 0,
    meal_type  TEXT NOT NULL DEFAULT 'snack',
    photo_path TEXT NOT NULL DEFAULT '',
    note       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_food_eaten_at ON food_samples (eaten_at);

CREATE TABLE IF NOT EXISTS exercise_samples (
    id              TEXT PRIMARY KEY,
    activity        TEXT    NOT NULL DEFAULT 'other',
    label           TEXT    NOT NULL DEFAULT '',
    started_at      TEXT    NOT NULL,
    duration_sec    INTEGER NOT NULL,
    intensity       TEXT    NOT NULL DEFAULT 'moderate',
    calories_burned REAL,
    note            TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_exercise_started_at ON exercise_samples (started_at);

CREATE TABLE IF NOT EXISTS glucose_food_links (
    glucose_id TEXT NOT NULL,
    food_id    TEXT NOT NULL,
    PRIMARY KEY (glucose_id, food_id)
);
`

// RetentionHorizon is how long glucose readings are kept before
// profile-driven cleanup deletes them.
const RetentionHorizon = 3 * 30 * 24 * time.Hour

// MealLinkWindow is the trailing window used to associate a glucose reading
// with the meals eaten before it.
const MealLinkWindow = 3 * time.Hour

// Store is the SQLite-backed record repository.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the record database:
// ~/.local/share/reverseit/records.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "reverseit", "records.db"), nil
}

// Open opens (or creates) the SQLite database at path, applies the schema,
// and configures WAL mode for better concurrent read performance.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the schema DDL idempotently (CREATE IF NOT EXISTS).
func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// --- Profile -----------------------------------------------------------------

// SaveProfile clamps the profile's targets and upserts the singleton row.
// At most one profile ever exists.
func (s *Store) SaveProfile(ctx context.Context, p *model.Profile) error {
	p.Clamp()
	p.UpdatedAt = time.Now().UTC()

	const q = `
		INSERT INTO profile
		    (id, name, age, body_mass_kg, height_cm, diagnosed_at,
		     target_glucose_min, target_glucose_max, target_carbs_g,
		     target_exercise_min, units, onboarding_done, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    name                = excluded.name,
		    age                 = excluded.age,
		    body_mass_kg        = excluded.body_mass_kg,
		    height_cm           = excluded.height_cm,
		    diagnosed_at        = excluded.diagnosed_at,
		    target_glucose_min  = excluded.target_glucose_min,
		    target_glucose_max  = excluded.target_glucose_max,
		    target_carbs_g      = excluded.target_carbs_g,
		    target_exercise_min = excluded.target_exercise_min,
		    units               = excluded.units,
		    onboarding_done     = excluded.onboarding_done,
		    updated_at          = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, q,
		p.Name, p.Age, p.BodyMassKg, p.HeightCm, formatTime(p.DiagnosedAt),
		p.TargetGlucoseMin, p.TargetGlucoseMax, p.TargetCarbsG,
		p.TargetExerciseMin, string(p.Units), p.OnboardingDone,
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// GetProfile returns the singleton profile, or (nil, nil) if onboarding has
// not created one yet.
func (s *Store) GetProfile(ctx context.Context) (*model.Profile, error) {
	const q = `
		SELECT name, age, body_mass_kg, height_cm, diagnosed_at,
		       target_glucose_min, target_glucose_max, target_carbs_g,
		       target_exercise_min, units, onboarding_done, updated_at
		FROM profile WHERE id = 1`

	var p model.Profile
	var diagnosedAt, updatedAt, units string
	err := s.db.QueryRowContext(ctx, q).Scan(
		&p.Name, &p.Age, &p.BodyMassKg, &p.HeightCm, &diagnosedAt,
		&p.TargetGlucoseMin, &p.TargetGlucoseMax, &p.TargetCarbsG,
		&p.TargetExerciseMin, &units, &p.OnboardingDone, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // intentional: "not found" sentinel
	}
	if err != nil {
		return nil, fmt.Errorf("scanning profile: %w", err)
	}

	p.Units = model.Units(units)
	p.DiagnosedAt, _ = parseTime(diagnosedAt)
	p.UpdatedAt, _ = parseTime(updatedAt)
	return &p, nil
}

// --- Glucose samples ---------------------------------------------------------

const insertGlucoseSQL = `
	INSERT INTO glucose_samples (id, taken_at, value_mgdl, context, note)
	VALUES (?, ?, ?, ?, ?)`

// InsertGlucose inserts and commits a single reading.
func (s *Store) InsertGlucose(ctx context.Context, g *model.GlucoseSample) error {
	if err := g.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, insertGlucoseSQL,
		g.ID, formatTime(g.TakenAt), g.ValueMgdl, string(g.Context), g.Note)
	if err != nil {
		return fmt.Errorf("inserting glucose sample %s: %w", g.ID, err)
	}
	return nil
}

// InsertGlucoseBatch inserts all readings inside one transaction. The commit
// happens before the call returns; on any error the whole batch is rolled
// back and nothing from it persists.
func (s *Store) InsertGlucoseBatch(ctx context.Context, batch []model.GlucoseSample) error {
	if len(batch) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range batch {
			g := &batch[i]
			if err := g.Validate(); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, insertGlucoseSQL,
				g.ID, formatTime(g.TakenAt), g.ValueMgdl, string(g.Context), g.Note); err != nil {
				return fmt.Errorf("inserting glucose sample %s: %w", g.ID, err)
			}
		}
		return nil
	})
}

// ListGlucose returns readings taken in [from, to], ordered by time.
// limit <= 0 means no limit.
func (s *Store) ListGlucose(ctx context.Context, from, to time.Time, ascending bool, limit int) ([]model.GlucoseSample, error) {
	q := `SELECT id, taken_at, value_mgdl, context, note
	      FROM glucose_samples WHERE taken_at >= ? AND taken_at <= ?
	      ORDER BY taken_at ` + direction(ascending)
	args := []any{formatTime(from), formatTime(to)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying glucose samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var samples []model.GlucoseSample
	for rows.Next() {
		var g model.GlucoseSample
		var takenAt, glucoseCtx string
		if err := rows.Scan(&g.ID, &takenAt, &g.ValueMgdl, &glucoseCtx, &g.Note); err != nil {
			return nil, fmt.Errorf("scanning glucose row: %w", err)
		}
		g.TakenAt, _ = parseTime(takenAt)
		g.Context = model.GlucoseContext(glucoseCtx)
		samples = append(samples, g)
	}
	return samples, rows.Err()
}

// CountGlucose returns the total number of stored readings.
func (s *Store) CountGlucose(ctx context.Context) (int, error) {
	return s.countTable(ctx, "glucose_samples")
}

// PurgeGlucoseBefore deletes readings older than cutoff and their meal
// links, returning the number of readings removed. Applied by the
// profile-driven retention cleanup.
func (s *Store) PurgeGlucoseBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM glucose_food_links WHERE glucose_id IN
			    (SELECT id FROM glucose_samples WHERE taken_at < ?)`,
			formatTime(cutoff)); err != nil {
			return fmt.Errorf("purging glucose links: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM glucose_samples WHERE taken_at < ?`, formatTime(cutoff))
		if err != nil {
			return fmt.Errorf("purging glucose samples: %w", err)
		}
		purged, _ = res.RowsAffected()
		return nil
	})
	return purged, err
}

// --- Food samples ------------------------------------------------------------

// InsertFood inserts and commits a single meal record.
func (s *Store) InsertFood(ctx context.Context, f *model.FoodSample) error {
	if err := f.Validate(); err != nil {
		return err
	}
	const q = `
		INSERT INTO food_samples
		    (id, name, eaten_at, carbs_g, protein_g, fat_g, calories,
		     meal_type, photo_path, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		f.ID, f.Name, formatTime(f.EatenAt), f.CarbsG, f.ProteinG, f.FatG,
		f.Calories, string(f.MealType), f.PhotoPath, f.Note)
	if err != nil {
		return fmt.Errorf("inserting food sample %s: %w", f.ID, err)
	}
	return nil
}

// ListFood returns meals eaten in [from, to], ordered by time.
func (s *Store) ListFood(ctx context.Context, from, to time.Time, ascending bool, limit int) ([]model.FoodSample, error) {
	q := `SELECT id, name, eaten_at, carbs_g, protein_g, fat_g, calories,
	             meal_type, photo_path, note
	      FROM food_samples WHERE eaten_at >= ? AND eaten_at <= ?
	      ORDER BY eaten_at ` + direction(ascending)
	args := []any{formatTime(from), formatTime(to)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying food samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var meals []model.FoodSample
	for rows.Next() {
		var f model.FoodSample
		var eatenAt, mealType string
		if err := rows.Scan(&f.ID, &f.Name, &eatenAt, &f.CarbsG, &f.ProteinG,
			&f.FatG, &f.Calories, &mealType, &f.PhotoPath, &f.Note); err != nil {
			return nil, fmt.Errorf("scanning food row: %w", err)
		}
		f.EatenAt, _ = parseTime(eatenAt)
		f.MealType = model.MealType(mealType)
		meals = append(meals, f)
	}
	return meals, rows.Err()
}

// CountFood returns the total number of stored meals.
func (s *Store) CountFood(ctx context.Context) (int, error) {
	return s.countTable(ctx, "food_samples")
}

// DeleteFood removes a meal and nullifies any glucose links pointing at it.
// The linked readings themselves are untouched.
func (s *Store) DeleteFood(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM glucose_food_links WHERE food_id = ?`, id); err != nil {
			return fmt.Errorf("unlinking food sample %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM food_samples WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting food sample %s: %w", id, err)
		}
		return nil
	})
}

// --- Exercise samples --------------------------------------------------------

const insertExerciseSQL = `
	INSERT INTO exercise_samples
	    (id, activity, label, started_at, duration_sec, intensity,
	     calories_burned, note)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// InsertExercise inserts and commits a single session.
func (s *Store) InsertExercise(ctx context.Context, e *model.ExerciseSample) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, insertExerciseSQL,
		e.ID, string(e.Activity), e.Label, formatTime(e.StartedAt),
		e.DurationSec, string(e.Intensity), nullFloat(e.CaloriesBurned), e.Note)
	if err != nil {
		return fmt.Errorf("inserting exercise sample %s: %w", e.ID, err)
	}
	return nil
}

// InsertExerciseBatch inserts all sessions inside one transaction, with the
// same commit semantics as [Store.InsertGlucoseBatch].
func (s *Store) InsertExerciseBatch(ctx context.Context, batch []model.ExerciseSample) error {
	if len(batch) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range batch {
			e := &batch[i]
			if err := e.Validate(); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, insertExerciseSQL,
				e.ID, string(e.Activity), e.Label, formatTime(e.StartedAt),
				e.DurationSec, string(e.Intensity), nullFloat(e.CaloriesBurned), e.Note); err != nil {
				return fmt.Errorf("inserting exercise sample %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// ListExercise returns sessions started in [from, to], ordered by time.
func (s *Store) ListExercise(ctx context.Context, from, to time.Time, ascending bool, limit int) ([]model.ExerciseSample, error) {
	q := `SELECT id, activity, label, started_at, duration_sec, intensity,
	             calories_burned, note
	      FROM exercise_samples WHERE started_at >= ? AND started_at <= ?
	      ORDER BY started_at ` + direction(ascending)
	args := []any{formatTime(from), formatTime(to)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exercise samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []model.ExerciseSample
	for rows.Next() {
		var e model.ExerciseSample
		var startedAt, activity, intensity string
		var calories sql.NullFloat64
		if err := rows.Scan(&e.ID, &activity, &e.Label, &startedAt,
			&e.DurationSec, &intensity, &calories, &e.Note); err != nil {
			return nil, fmt.Errorf("scanning exercise row: %w", err)
		}
		e.StartedAt, _ = parseTime(startedAt)
		e.Activity = model.ActivityKind(activity)
		e.Intensity = model.Intensity(intensity)
		if calories.Valid {
			v := calories.Float64
			e.CaloriesBurned = &v
		}
		sessions = append(sessions, e)
	}
	return sessions, rows.Err()
}

// CountExercise returns the total number of stored sessions.
func (s *Store) CountExercise(ctx context.Context) (int, error) {
	return s.countTable(ctx, "exercise_samples")
}

// --- Meal ↔ glucose links ----------------------------------------------------

// LinkMeals associates a reading with every meal eaten within the trailing
// window before it, returning the number of links written. Existing links
// are kept (INSERT OR IGNORE).
func (s *Store) LinkMeals(ctx context.Context, glucoseID string, window time.Duration) (int, error) {
	var takenAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT taken_at FROM glucose_samples WHERE id = ?`, glucoseID).Scan(&takenAt)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("glucose sample %s not found", glucoseID)
	}
	if err != nil {
		return 0, fmt.Errorf("looking up glucose sample %s: %w", glucoseID, err)
	}

	taken, err := parseTime(takenAt)
	if err != nil {
		return 0, fmt.Errorf("parsing taken_at for %s: %w", glucoseID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO glucose_food_links (glucose_id, food_id)
		SELECT ?, id FROM food_samples WHERE eaten_at >= ? AND eaten_at <= ?`,
		glucoseID, formatTime(taken.Add(-window)), formatTime(taken))
	if err != nil {
		return 0, fmt.Errorf("linking meals for %s: %w", glucoseID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// MealsFor returns the meals soft-linked to a reading, oldest first.
func (s *Store) MealsFor(ctx context.Context, glucoseID string) ([]model.FoodSample, error) {
	const q = `
		SELECT f.id, f.name, f.eaten_at, f.carbs_g, f.protein_g, f.fat_g,
		       f.calories, f.meal_type, f.photo_path, f.note
		FROM food_samples f
		JOIN glucose_food_links l ON l.food_id = f.id
		WHERE l.glucose_id = ?
		ORDER BY f.eaten_at ASC`

	rows, err := s.db.QueryContext(ctx, q, glucoseID)
	if err != nil {
		return nil, fmt.Errorf("querying linked meals for %s: %w", glucoseID, err)
	}
	defer func() { _ = rows.Close() }()

	var meals []model.FoodSample
	for rows.Next() {
		var f model.FoodSample
		var eatenAt, mealType string
		if err := rows.Scan(&f.ID, &f.Name, &eatenAt, &f.CarbsG, &f.ProteinG,
			&f.FatG, &f.Calories, &mealType, &f.PhotoPath, &f.Note); err != nil {
			return nil, fmt.Errorf("scanning linked meal row: %w", err)
		}
		f.EatenAt, _ = parseTime(eatenAt)
		f.MealType = model.MealType(mealType)
		meals = append(meals, f)
	}
	return meals, rows.Err()
}

// --- Reset -------------------------------------------------------------------

// Reset deletes every stored record and the profile unconditionally.
func (s *Store) Reset(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{
			"glucose_food_links", "glucose_samples", "food_samples",
			"exercise_samples", "profile",
		} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		return nil
	})
}

// --- helpers -----------------------------------------------------------------

// inTx runs fn inside a transaction, committing on nil and rolling back on
// error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Store) countTable(ctx context.Context, table string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return count, nil
}

func direction(ascending bool) string {
	if ascending {
		return "ASC"
	}
	return "DESC"
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
