package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/adamjohnlea/reverseit-diabetes-app/internal/config"
	"github.com/adamjohnlea/reverseit-diabetes-app/internal/model"
	"github.com/adamjohnlea/reverseit-diabetes-app/internal/nightscout"
	"github.com/adamjohnlea/reverseit-diabetes-app/internal/store"
)

// Wizard guides the user through first-run configuration: provider
// connection, authorization, and the installation profile.
type Wizard struct {
	prompt *Prompter
	store  *store.Store
	logger *slog.Logger
	w      io.Writer
}

// NewWizard creates a Wizard wired to the given I/O, record store, and logger.
func NewWizard(r io.Reader, w io.Writer, st *store.Store, logger *slog.Logger) *Wizard {
	return &Wizard{
		prompt: NewPrompter(r, w),
		store:  st,
		logger: logger,
		w:      w,
	}
}

// Run executes the interactive setup wizard: provider connection and
// authorization, profile creation, and config file creation.
func (wiz *Wizard) Run(ctx context.Context) error {
	fmt.Fprintf(wiz.w, "\nWelcome to ReverseIt Setup!\n")
	fmt.Fprintf(wiz.w, "This wizard will connect your health-data provider and create your profile.\n\n")

	cfgPath, err := config.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	if _, statErr := os.Stat(cfgPath); statErr == nil {
		fmt.Fprintf(wiz.w, "  Existing config found at %s\n", cfgPath)
		if !wiz.prompt.Confirm("Overwrite existing configuration?", false) {
			fmt.Fprintf(wiz.w, "\n  Keeping existing config.\n")
			return nil
		}
		fmt.Fprintf(wiz.w, "\n")
	}

	// Step 1: Provider connection.
	fmt.Fprintf(wiz.w, "Step 1/3 — Health Data Provider\n")

	providerURL := wiz.prompt.String("Provider URL", "https://cgm.example.com")
	providerToken := wiz.prompt.Secret("Access token")

	adapter, err := nightscout.NewAdapter(providerURL, providerToken, wiz.logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(wiz.w, "  Connecting to provider...")
	if err := adapter.Ping(ctx); err != nil {
		fmt.Fprintf(wiz.w, " ✗\n")
		return fmt.Errorf("cannot reach provider: %w\n\n  Check the URL and token, then try again", err)
	}
	fmt.Fprintf(wiz.w, " ✓\n")

	fmt.Fprintf(wiz.w, "  Requesting data authorization...")
	if err := adapter.RequestAuthorization(ctx, model.ReadCapabilities(), model.WriteCapabilities()); err != nil {
		// Authorization can be granted later; setup continues without it.
		fmt.Fprintf(wiz.w, " ✗ (%v)\n", err)
		fmt.Fprintf(wiz.w, "  You can grant access later; imports stay off until then.\n\n")
	} else {
		fmt.Fprintf(wiz.w, " ✓\n\n")
	}

	// Step 2: Profile.
	fmt.Fprintf(wiz.w, "Step 2/3 — Your Profile\n")

	profile := wiz.buildProfile()
	if err := wiz.store.SaveProfile(ctx, profile); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ Profile saved\n\n")

	// Step 3: Sync preferences + write config.
	fmt.Fprintf(wiz.w, "Step 3/3 — Sync Preferences\n")

	windowDays := wiz.prompt.Int("Import lookback window in days (1–31)", 7, 1, 31)
	push := wiz.prompt.Confirm("Push newly-logged records to the provider?", true)

	cfg := &config.Config{
		ProviderURL:   providerURL,
		ProviderToken: providerToken,
		WindowDays:    windowDays,
		PollInterval:  time.Hour,
		Push:          push,
	}
	if err := cfg.Save(cfgPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ Config written to %s\n\n", cfgPath)

	fmt.Fprintf(wiz.w, "Setup complete!\n")
	fmt.Fprintf(wiz.w, "  Import now:   reverseit import\n")
	fmt.Fprintf(wiz.w, "  Run daemon:   reverseit daemon\n")
	fmt.Fprintf(wiz.w, "  Log reading:  reverseit log glucose --value 110\n\n")

	return nil
}

// buildProfile prompts for the installation profile fields. All targets are
// clamped on save, so out-of-range answers cannot wedge the profile.
func (wiz *Wizard) buildProfile() *model.Profile {
	name := wiz.prompt.String("Display name", "")
	age := wiz.prompt.Int("Age", 45, 1, 120)
	mass := wiz.prompt.Float("Body mass (kg)", 80, 20, 300)
	height := wiz.prompt.Float("Height (cm)", 170, 80, 250)

	diagnosed := time.Time{}
	if raw := wiz.prompt.String("Diagnosis date (YYYY-MM-DD, empty to skip)", "-"); raw != "-" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			diagnosed = t
		} else {
			fmt.Fprintf(wiz.w, "  (unrecognised date, skipping)\n")
		}
	}

	units := model.UnitsMgdl
	if wiz.prompt.Confirm("Display glucose in mmol/L instead of mg/dL?", false) {
		units = model.UnitsMmol
	}

	return &model.Profile{
		Name:              name,
		Age:               age,
		BodyMassKg:        mass,
		HeightCm:          height,
		DiagnosedAt:       diagnosed,
		TargetGlucoseMin:  wiz.prompt.Float("Target glucose minimum (mg/dL)", 70, 40, 400),
		TargetGlucoseMax:  wiz.prompt.Float("Target glucose maximum (mg/dL)", 180, 40, 400),
		TargetCarbsG:      wiz.prompt.Float("Daily carbohydrate target (g)", 200, 30, 600),
		TargetExerciseMin: wiz.prompt.Int("Daily exercise target (minutes)", 30, 0, 600),
		Units:             units,
		OnboardingDone:    true,
	}
}
