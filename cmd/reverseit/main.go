// ReverseIt is a type-2 diabetes self-management tool: it keeps a local
// record store of glucose readings, meals, and exercise sessions, and syncs
// it with an external health-data provider (bounded-window imports in
// durable batches, opportunistic outbound pushes).
//
// Usage:
//
//	reverseit setup                          # interactive first-run wizard
//	reverseit import [--window <days>]       # single import pass then exit
//	reverseit daemon [--config <path>]       # periodic import loop
//	reverseit log glucose --value <n> [...]  # record a glucose reading
//	reverseit log meal --name <s> [...]      # record a meal
//	reverseit log exercise --activity <s>    # record an exercise session
//	reverseit report [--days <n>]            # summary metrics over a window
//	reverseit profile                        # show the installation profile
//	reverseit status                         # show config and record counts
//	reverseit cleanup                        # purge readings past retention
//	reverseit reset                          # wipe all local records
//	reverseit version                        # print version
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/adamjohnlea/reverseit-diabetes-app/internal/config"
	"github.com/adamjohnlea/reverseit-diabetes-app/internal/metrics"
	"github.com/adamjohnlea/reverseit-diabetes-app/internal/model"
	"github.com/adamjohnlea/reverseit-diabetes-app/internal/nightscout"
	"github.com/adamjohnlea/reverseit-diabetes-app/internal/setup"
	"github.com/adamjohnlea/reverseit-diabetes-app/internal/store"
	syncp "github.com/adamjohnlea/reverseit-diabetes-app/internal/sync"
	"github.com/adamjohnlea/reverseit-diabetes-app/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// run dispatches to the appropriate subcommand.
func run() error {
	if len(os.Args) < 2 {
		return printUsage()
	}

	switch os.Args[1] {
	case "setup":
		return runSetup()
	case "import":
		return runImport(os.Args[2:])
	case "daemon":
		return runDaemon(os.Args[2:])
	case "log":
		return runLog(os.Args[2:])
	case "report":
		return runReport(os.Args[2:])
	case "profile":
		return runProfile()
	case "status":
		return runStatus()
	case "cleanup":
		return runCleanup()
	case "reset":
		return runReset()
	case "version":
		fmt.Println("reverseit", version)
		return nil
	}

	return fmt.Errorf("unknown command %q — run 'reverseit' for usage", os.Args[1])
}

// printUsage shows help and suggests setup if no config exists.
func printUsage() error {
	cfgPath, _ := config.DefaultPath()
	_, cfgErr := os.Stat(cfgPath)

	fmt.Fprintln(os.Stderr, "ReverseIt — type-2 diabetes self-management")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  reverseit setup                         Interactive first-run wizard")
	fmt.Fprintln(os.Stderr, "  reverseit import [--window <days>]      Single import pass then exit")
	fmt.Fprintln(os.Stderr, "  reverseit daemon [--config <path>]     Periodic import loop")
	fmt.Fprintln(os.Stderr, "  reverseit log glucose|meal|exercise     Record an entry")
	fmt.Fprintln(os.Stderr, "  reverseit report [--days <n>]           Summary metrics over a window")
	fmt.Fprintln(os.Stderr, "  reverseit profile                       Show the installation profile")
	fmt.Fprintln(os.Stderr, "  reverseit status                        Show config and record counts")
	fmt.Fprintln(os.Stderr, "  reverseit cleanup                       Purge readings past retention")
	fmt.Fprintln(os.Stderr, "  reverseit reset                         Wipe all local records")
	fmt.Fprintln(os.Stderr, "  reverseit version                       Print version")
	fmt.Fprintln(os.Stderr, "")

	if cfgErr != nil {
		fmt.Fprintln(os.Stderr, "No config file found. Run 'reverseit setup' to get started.")
	}

	os.Exit(1)
	return nil // unreachable
}

// --- Subcommands -------------------------------------------------------------

// runSetup launches the interactive setup wizard.
func runSetup() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	wiz := setup.NewWizard(os.Stdin, os.Stdout, st, logger)
	return wiz.Run(ctx)
}

// runImport performs a single import pass and exits.
func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	window := fs.Int("window", 0, "lookback window in days (default: config window_days)")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := openApp(*cfgPath, *verbose)
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	windowDays := app.cfg.WindowDays
	if *window > 0 {
		windowDays = *window
	}

	app.coord.CheckAuthorizationStatus(ctx)
	if !app.coord.Authorized() {
		return fmt.Errorf("provider authorization not granted — run 'reverseit setup'")
	}

	res := app.coord.ImportRecent(ctx, windowDays)
	if res.Err != nil {
		app.logger.Warn("import finished with errors", "error", res.Err)
	}
	fmt.Printf("Imported %d glucose reading(s), %d exercise session(s)\n",
		res.GlucoseCount, res.ExerciseCount)
	if !res.Success() {
		return fmt.Errorf("import incomplete: %w", res.Err)
	}
	return nil
}

// runDaemon runs the import loop until interrupted.
func runDaemon(args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := openApp(*cfgPath, *verbose)
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app.logger.Info("daemon starting", "poll_interval", app.cfg.PollInterval)

	ticker := time.NewTicker(app.cfg.PollInterval)
	defer ticker.Stop()

	runPass := func() {
		app.coord.CheckAuthorizationStatus(ctx)
		res := app.coord.ImportRecent(ctx, app.cfg.WindowDays)
		if res.Err != nil {
			app.logger.Warn("import pass finished with errors", "error", res.Err)
		}
	}

	runPass()
	for {
		select {
		case <-ctx.Done():
			if !errors.Is(ctx.Err(), context.Canceled) {
				return ctx.Err()
			}
			app.logger.Info("shutdown complete")
			return nil
		case <-ticker.C:
			runPass()
		}
	}
}

// runLog dispatches to the record-entry subcommands.
func runLog(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: reverseit log glucose|meal|exercise [flags]")
	}

	switch args[0] {
	case "glucose":
		return runLogGlucose(args[1:])
	case "meal":
		return runLogMeal(args[1:])
	case "exercise":
		return runLogExercise(args[1:])
	}
	return fmt.Errorf("unknown record type %q — expected glucose, meal, or exercise", args[0])
}

// runLogGlucose records a glucose reading, links trailing meals, and
// opportunistically pushes the reading outward.
func runLogGlucose(args []string) error {
	fs := flag.NewFlagSet("log glucose", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	value := fs.Float64("value", 0, "glucose value (required)")
	mmol := fs.Bool("mmol", false, "value is in mmol/L instead of mg/dL")
	contextTag := fs.String("context", "random", "reading context: fasting|before-meal|after-meal|bedtime|random")
	note := fs.String("note", "", "free-text note")
	at := fs.String("at", "", "reading time (RFC 3339, default: now)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	takenAt, err := parseAt(*at)
	if err != nil {
		return err
	}

	valueMgdl := *value
	if *mmol {
		valueMgdl = model.MmolToMgdl(valueMgdl)
	}

	app, err := openApp(*cfgPath, false)
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g := &model.GlucoseSample{
		ID:        model.NewID(),
		TakenAt:   takenAt,
		ValueMgdl: valueMgdl,
		Context:   model.ParseGlucoseContext(*contextTag),
		Note:      *note,
	}
	if err := app.store.InsertGlucose(ctx, g); err != nil {
		return err
	}

	linked, err := app.store.LinkMeals(ctx, g.ID, store.MealLinkWindow)
	if err != nil {
		app.logger.Warn("linking meals failed", "error", err)
	}

	fmt.Printf("Logged glucose %.0f mg/dL (%s)", g.ValueMgdl, metrics.ClassifyGlucose(g.ValueMgdl))
	if linked > 0 {
		fmt.Printf(", linked to %d meal(s)", linked)
	}
	fmt.Println()

	app.pushIfEnabled(ctx, func(ctx context.Context) error {
		return app.coord.PushGlucose(ctx, g)
	})
	return nil
}

// runLogMeal records a meal and opportunistically pushes its macros outward.
func runLogMeal(args []string) error {
	fs := flag.NewFlagSet("log meal", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	name := fs.String("name", "", "meal name (required)")
	carbs := fs.Float64("carbs", 0, "carbohydrates in grams")
	protein := fs.Float64("protein", 0, "protein in grams")
	fat := fs.Float64("fat", 0, "fat in grams")
	calories := fs.Float64("calories", 0, "total calories (default: derived from macros)")
	mealType := fs.String("type", "snack", "meal type: breakfast|lunch|dinner|snack")
	note := fs.String("note", "", "free-text note")
	at := fs.String("at", "", "meal time (RFC 3339, default: now)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	eatenAt, err := parseAt(*at)
	if err != nil {
		return err
	}

	kcal := *calories
	if kcal == 0 {
		kcal = metrics.DerivedCalories(*carbs, *protein, *fat)
	}

	app, err := openApp(*cfgPath, false)
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	f := &model.FoodSample{
		ID:       model.NewID(),
		Name:     *name,
		EatenAt:  eatenAt,
		CarbsG:   *carbs,
		ProteinG: *protein,
		FatG:     *fat,
		Calories: kcal,
		MealType: model.ParseMealType(*mealType),
		Note:     *note,
	}
	if err := app.store.InsertFood(ctx, f); err != nil {
		return err
	}
	fmt.Printf("Logged %s %q (%.0f kcal)\n", f.MealType, f.Name, f.Calories)

	app.pushIfEnabled(ctx, func(ctx context.Context) error {
		return app.coord.PushFood(ctx, f)
	})
	return nil
}

// runLogExercise records an exercise session and opportunistically pushes it
// outward as a provider workout.
func runLogExercise(args []string) error {
	fs := flag.NewFlagSet("log exercise", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	activity := fs.String("activity", "", "activity description (required, e.g. \"morning jog\")")
	minutes := fs.Int("minutes", 0, "session duration in minutes (required)")
	intensity := fs.String("intensity", "moderate", "intensity: light|moderate|vigorous")
	calories := fs.Float64("calories", 0, "calories burned (default: estimated)")
	note := fs.String("note", "", "free-text note")
	at := fs.String("at", "", "session start time (RFC 3339, default: now)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *activity == "" {
		return fmt.Errorf("--activity is required")
	}
	if *minutes <= 0 {
		return fmt.Errorf("--minutes must be positive")
	}

	startedAt, err := parseAt(*at)
	if err != nil {
		return err
	}

	app, err := openApp(*cfgPath, false)
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	e := &model.ExerciseSample{
		ID:          model.NewID(),
		Activity:    model.ResolveActivity(*activity),
		Label:       *activity,
		StartedAt:   startedAt,
		DurationSec: int64(*minutes) * 60,
		Intensity:   model.ParseIntensity(*intensity),
		Note:        *note,
	}
	if *calories > 0 {
		e.CaloriesBurned = calories
	}
	if err := app.store.InsertExercise(ctx, e); err != nil {
		return err
	}
	fmt.Printf("Logged %s — %d min, ~%.0f kcal\n",
		e.Activity.Label(), *minutes, metrics.SessionCalories(e))

	app.pushIfEnabled(ctx, func(ctx context.Context) error {
		return app.coord.PushExercise(ctx, e)
	})
	return nil
}

// runReport prints summary metrics for the trailing window.
func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	days := fs.Int("days", 7, "report window in days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *days < 1 {
		return fmt.Errorf("--days must be positive")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx := context.Background()
	now := time.Now()
	from := now.AddDate(0, 0, -*days)

	profile, err := st.GetProfile(ctx)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("no profile found — run 'reverseit setup'")
	}

	glucose, err := st.ListGlucose(ctx, from, now, true, 0)
	if err != nil {
		return err
	}
	meals, err := st.ListFood(ctx, from, now, true, 0)
	if err != nil {
		return err
	}
	sessions, err := st.ListExercise(ctx, from, now, true, 0)
	if err != nil {
		return err
	}

	fmt.Printf("ReverseIt Report — last %d day(s)\n", *days)
	fmt.Println("─────────────────────────────")

	if len(glucose) == 0 {
		fmt.Println("  Glucose:   no readings")
	} else {
		avg := metrics.AverageGlucose(glucose)
		tir := metrics.TimeInRangePercent(glucose, profile)
		fmt.Printf("  Glucose:   %d reading(s), avg %.0f mg/dL (%s), %.0f%% in range %g–%g\n",
			len(glucose), avg, metrics.ClassifyGlucose(avg), tir,
			profile.TargetGlucoseMin, profile.TargetGlucoseMax)
	}

	var carbs, kcalIn float64
	for i := range meals {
		carbs += meals[i].CarbsG
		kcalIn += meals[i].Calories
	}
	fmt.Printf("  Meals:     %d logged, %.0f g carbs (%.0f%% of %d-day target), %.0f kcal\n",
		len(meals), carbs,
		metrics.ProgressPercent(carbs, profile.TargetCarbsG*float64(*days)), *days, kcalIn)

	var exerciseMin int64
	var kcalOut float64
	for i := range sessions {
		exerciseMin += sessions[i].DurationSec / 60
		kcalOut += metrics.SessionCalories(&sessions[i])
	}
	fmt.Printf("  Exercise:  %d session(s), %d min (%.0f%% of %d-day target), ~%.0f kcal burned\n",
		len(sessions), exerciseMin,
		metrics.ProgressPercent(float64(exerciseMin), float64(profile.TargetExerciseMin**days)),
		*days, kcalOut)

	return nil
}

// runProfile shows the installation profile and derived body metrics.
func runProfile() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	profile, err := st.GetProfile(context.Background())
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("no profile found — run 'reverseit setup'")
	}

	fmt.Println("ReverseIt Profile")
	fmt.Println("─────────────────")
	fmt.Printf("  Name:       %s\n", profile.Name)
	fmt.Printf("  Age:        %d\n", profile.Age)
	if profile.BodyMassKg > 0 && profile.HeightCm > 0 {
		bmi := metrics.BMI(profile.BodyMassKg, profile.HeightCm)
		fmt.Printf("  Body:       %.1f kg, %.0f cm (BMI %.1f, %s)\n",
			profile.BodyMassKg, profile.HeightCm, bmi, metrics.BMICategory(bmi))
	}
	if !profile.DiagnosedAt.IsZero() {
		fmt.Printf("  Diagnosed:  %s (%s ago)\n",
			profile.DiagnosedAt.Format("2006-01-02"),
			metrics.DiabetesDuration(profile.DiagnosedAt, time.Now()))
	}
	fmt.Printf("  Targets:    glucose %g–%g mg/dL, %g g carbs/day, %d min exercise/day\n",
		profile.TargetGlucoseMin, profile.TargetGlucoseMax,
		profile.TargetCarbsG, profile.TargetExerciseMin)
	unit := "mg/dL"
	if profile.Units == model.UnitsMmol {
		unit = "mmol/L"
	}
	fmt.Printf("  Units:      %s\n", unit)
	return nil
}

// runStatus prints config and record-store state.
func runStatus() error {
	cfgPath, _ := config.DefaultPath()
	dbPath, _ := store.DefaultDBPath()

	fmt.Println("ReverseIt Status")
	fmt.Println("────────────────")

	if _, err := os.Stat(cfgPath); err == nil {
		if cfg, loadErr := config.Load(cfgPath); loadErr == nil {
			fmt.Printf("  Config:    %s ✓\n", cfgPath)
			fmt.Printf("  Provider:  %s\n", cfg.ProviderURL)
			fmt.Printf("  Window:    %d day(s)\n", cfg.WindowDays)
			fmt.Printf("  Poll:      %s\n", cfg.PollInterval)
			fmt.Printf("  Push:      %v\n", cfg.Push)
		} else {
			fmt.Printf("  Config:    %s (invalid: %v)\n", cfgPath, loadErr)
		}
	} else {
		fmt.Printf("  Config:    not found (%s)\n", cfgPath)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		fmt.Printf("  Records:   not found\n")
		return nil
	}
	fmt.Printf("  Records:   %s (%s)\n", dbPath, humanSize(info.Size()))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx := context.Background()
	if n, err := st.CountGlucose(ctx); err == nil {
		fmt.Printf("  Glucose:   %d reading(s)\n", n)
	}
	if n, err := st.CountFood(ctx); err == nil {
		fmt.Printf("  Meals:     %d logged\n", n)
	}
	if n, err := st.CountExercise(ctx); err == nil {
		fmt.Printf("  Exercise:  %d session(s)\n", n)
	}
	return nil
}

// runCleanup purges glucose readings older than the retention horizon.
func runCleanup() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	cutoff := time.Now().Add(-store.RetentionHorizon)
	n, err := st.PurgeGlucoseBefore(context.Background(), cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("Purged %d glucose reading(s) older than %s\n", n, cutoff.Format("2006-01-02"))
	return nil
}

// runReset wipes all local records after an explicit confirmation.
func runReset() error {
	fmt.Print("This deletes ALL local records and the profile. Type 'yes' to continue: ")
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	if strings.TrimSpace(line) != "yes" {
		fmt.Println("Aborted.")
		return nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	if err := st.Reset(context.Background()); err != nil {
		return err
	}
	fmt.Println("All local records deleted.")
	return nil
}

// --- Shared wiring -----------------------------------------------------------

// app bundles the long-lived dependencies the sync-facing subcommands share.
type app struct {
	cfg    *config.Config
	store  *store.Store
	coord  *syncp.Coordinator
	logger *slog.Logger

	shutdown []func()
}

// openApp loads config, opens the store and provider adapter, and wires the
// sync coordinator. Telemetry is enabled when the config asks for it.
func openApp(cfgPath string, verbose bool) (*app, error) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config from %q: %w", cfgPath, err)
	}
	logger.Debug("config loaded",
		"provider_url", cfg.ProviderURL,
		"window_days", cfg.WindowDays,
		"poll_interval", cfg.PollInterval,
	)

	a := &app{cfg: cfg, logger: logger}

	if cfg.Telemetry != nil {
		telCfg := telemetry.Config{
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			Insecure:     cfg.Telemetry.Insecure,
			ServiceName:  cfg.Telemetry.ServiceName,
			Headers:      cfg.Telemetry.Headers,
		}
		shutdownTel, telErr := telemetry.Setup(context.Background(), telCfg)
		if telErr != nil {
			logger.Error("telemetry setup failed, continuing without telemetry", "error", telErr)
		} else {
			logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
			a.shutdown = append(a.shutdown, func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTel(flushCtx); err != nil {
					logger.Error("telemetry shutdown error", "error", err)
				}
			})
		}
	}

	st, err := openStore(logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = st
	a.shutdown = append(a.shutdown, func() { closeStore(st, logger) })

	adapter, err := nightscout.NewAdapter(cfg.ProviderURL, cfg.ProviderToken, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("initialising provider client: %w", err)
	}

	a.coord = syncp.NewCoordinator(adapter, st, cfg.MinPullInterval, logger)
	return a, nil
}

// close runs the accumulated shutdown hooks in reverse order.
func (a *app) close() {
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		a.shutdown[i]()
	}
}

// pushIfEnabled pushes a freshly-logged record outward when pushes are
// enabled and the provider grant is present. Push failures are logged and
// swallowed: the local record is already durable.
func (a *app) pushIfEnabled(ctx context.Context, push func(context.Context) error) {
	if !a.cfg.Push {
		return
	}
	a.coord.CheckAuthorizationStatus(ctx)
	if !a.coord.Authorized() {
		a.logger.Debug("skipping push, provider authorization not granted")
		return
	}
	if err := push(ctx); err != nil {
		a.logger.Warn("push failed, record kept locally", "error", err)
	}
}

// parseAt parses an optional RFC 3339 timestamp flag, defaulting to now.
func parseAt(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing --at %q: %w", s, err)
	}
	return t, nil
}

// openStore opens the record database at its default path.
func openStore(logger *slog.Logger) (*store.Store, error) {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolving record DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening record DB at %q: %w", dbPath, err)
	}
	logger.Debug("record DB opened", "path", dbPath)
	return st, nil
}

func closeStore(st *store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("closing record DB", "error", err)
	}
}

// humanSize returns a human-readable file size string.
func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
