package nightscout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/adamjohnlea/reverseit-diabetes-app/internal/model"
)

// HTTPDoer is the subset of [http.Client] used by the adapter. Defining it
// as an interface allows mock injection in tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Adapter provides sync-coordinator–oriented operations on a Nightscout-
// compatible service. Create one with [NewAdapter] or [NewAdapterWithClient].
type Adapter struct {
	baseURL string
	token   string
	hc      HTTPDoer
	log     *slog.Logger
}

// NewAdapter creates an Adapter backed by a real HTTP client.
func NewAdapter(baseURL, token string, logger *slog.Logger) (*Adapter, error) {
	u, err := url.ParseRequestURI(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("provider URL %q must be a valid http or https URL", baseURL)
	}
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: 30 * time.Second},
		log:     logger,
	}, nil
}

// NewAdapterWithClient creates an Adapter with a caller-supplied HTTP client.
// Intended for testing with a mock [HTTPDoer].
func NewAdapterWithClient(baseURL, token string, hc HTTPDoer, logger *slog.Logger) *Adapter {
	return &Adapter{baseURL: strings.TrimRight(baseURL, "/"), token: token, hc: hc, log: logger}
}

// Ping validates the service connection and token with retry.
func (a *Adapter) Ping(ctx context.Context) error {
	err := Retry(ctx, defaultMaxAttempts, func() error {
		return a.get(ctx, "/api/v1/status.json", nil, nil)
	})
	if err != nil {
		return fmt.Errorf("ping provider: %w", err)
	}
	return nil
}

// IsAvailable reports whether the service is reachable at all. It never
// returns an error; unreachable means false.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	return a.get(ctx, "/api/v1/status.json", nil, nil) == nil
}

// permissionsResponse is the JSON body of the authorization permissions
// endpoint: the capability sets the current token has been granted.
type permissionsResponse struct {
	Read  []model.Capability `json:"read"`
	Write []model.Capability `json:"write"`
}

// AuthorizationStatus returns the grant state of the current token for a
// single capability. A 401 from the service maps to denied, not an error.
func (a *Adapter) AuthorizationStatus(ctx context.Context, cap model.Capability) (model.AuthStatus, error) {
	var perms permissionsResponse
	err := a.get(ctx, "/api/v2/authorization/permissions", nil, &perms)
	if err != nil {
		if isUnauthorized(err) {
			return model.AuthDenied, nil
		}
		return model.AuthNotDetermined, fmt.Errorf("querying authorization status: %w", err)
	}
	for _, c := range perms.Read {
		if c == cap {
			return model.AuthGranted, nil
		}
	}
	return model.AuthNotDetermined, nil
}

// authRequest is the JSON body of an authorization grant request.
type authRequest struct {
	Read  []model.Capability `json:"read"`
	Write []model.Capability `json:"write"`
}

// authResponse is the service's answer to an authorization grant request.
type authResponse struct {
	Granted bool   `json:"granted"`
	Message string `json:"message,omitempty"`
}

// RequestAuthorization asks the service to grant the given read and write
// capability sets. A refusal is returned as an error carrying the service's
// message; the caller decides how to surface it. Authorization failures are
// never retried here — a new grant needs user consent, not another attempt.
func (a *Adapter) RequestAuthorization(ctx context.Context, read, write []model.Capability) error {
	var resp authResponse
	if err := a.post(ctx, "/api/v2/authorization/request", authRequest{Read: read, Write: write}, &resp); err != nil {
		return fmt.Errorf("requesting authorization: %w", err)
	}
	if !resp.Granted {
		if resp.Message == "" {
			resp.Message = "authorization not granted"
		}
		return fmt.Errorf("authorization refused: %s", resp.Message)
	}
	return nil
}

// QueryGlucose fetches CGM entries whose timestamp falls in [from, to],
// sorted by time according to ascending.
func (a *Adapter) QueryGlucose(ctx context.Context, from, to time.Time, ascending bool) ([]model.QuantitySample, error) {
	params := url.Values{}
	params.Set("find[dateString][$gte]", from.UTC().Format(time.RFC3339))
	params.Set("find[dateString][$lte]", to.UTC().Format(time.RFC3339))

	var entries []nsEntry
	err := Retry(ctx, defaultMaxAttempts, func() error {
		entries = entries[:0]
		return a.get(ctx, "/api/v1/entries/sgv.json", params, &entries)
	})
	if err != nil {
		return nil, fmt.Errorf("querying glucose entries: %w", err)
	}

	samples := make([]model.QuantitySample, 0, len(entries))
	for _, e := range entries {
		samples = append(samples, entryToQuantity(e))
	}
	sortSamples(samples, ascending)
	a.log.Debug("fetched glucose entries", "count", len(samples))
	return samples, nil
}

// QueryWorkouts fetches Exercise treatments whose start falls in [from, to],
// sorted by time according to ascending.
func (a *Adapter) QueryWorkouts(ctx context.Context, from, to time.Time, ascending bool) ([]model.WorkoutSample, error) {
	params := url.Values{}
	params.Set("find[eventType]", eventTypeExercise)
	params.Set("find[created_at][$gte]", from.UTC().Format(time.RFC3339))
	params.Set("find[created_at][$lte]", to.UTC().Format(time.RFC3339))

	var treatments []nsTreatment
	err := Retry(ctx, defaultMaxAttempts, func() error {
		treatments = treatments[:0]
		return a.get(ctx, "/api/v1/treatments.json", params, &treatments)
	})
	if err != nil {
		return nil, fmt.Errorf("querying workout treatments: %w", err)
	}

	workouts := make([]model.WorkoutSample, 0, len(treatments))
	for _, t := range treatments {
		workouts = append(workouts, treatmentToWorkout(t))
	}
	sort.Slice(workouts, func(i, j int) bool {
		if ascending {
			return workouts[i].StartAt.Before(workouts[j].StartAt)
		}
		return workouts[j].StartAt.Before(workouts[i].StartAt)
	})
	a.log.Debug("fetched workouts", "count", len(workouts))
	return workouts, nil
}

// SaveQuantities pushes quantity samples outward. Glucose samples go to the
// entries API, dietary macro samples to the treatments API. An empty slice
// is a no-op.
func (a *Adapter) SaveQuantities(ctx context.Context, samples []model.QuantitySample) error {
	var entries []nsEntry
	var treatments []nsTreatment
	for _, s := range samples {
		switch s.Type {
		case model.CapGlucose:
			entries = append(entries, quantityToEntry(s))
		case model.CapDietaryCarbs, model.CapDietaryProtein, model.CapDietaryFat:
			treatments = append(treatments, quantityToTreatment(s))
		default:
			return fmt.Errorf("cannot save sample type %q", s.Type)
		}
	}

	if len(entries) > 0 {
		err := Retry(ctx, defaultMaxAttempts, func() error {
			return a.post(ctx, "/api/v1/entries.json", entries, nil)
		})
		if err != nil {
			return fmt.Errorf("saving %d glucose entries: %w", len(entries), err)
		}
	}
	if len(treatments) > 0 {
		err := Retry(ctx, defaultMaxAttempts, func() error {
			return a.post(ctx, "/api/v1/treatments.json", treatments, nil)
		})
		if err != nil {
			return fmt.Errorf("saving %d dietary treatments: %w", len(treatments), err)
		}
	}
	return nil
}

// SaveWorkout pushes a single workout outward as an Exercise treatment.
func (a *Adapter) SaveWorkout(ctx context.Context, w model.WorkoutSample) error {
	err := Retry(ctx, defaultMaxAttempts, func() error {
		return a.post(ctx, "/api/v1/treatments.json", []nsTreatment{workoutToTreatment(w)}, nil)
	})
	if err != nil {
		return fmt.Errorf("saving workout: %w", err)
	}
	return nil
}

// --- HTTP plumbing -----------------------------------------------------------

// statusError carries a non-2xx HTTP status so callers can distinguish
// authorization failures from transport errors.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body != "" {
		return fmt.Sprintf("provider returned status %d: %s", e.code, e.body)
	}
	return fmt.Sprintf("provider returned status %d", e.code)
}

func isUnauthorized(err error) bool {
	for e := err; e != nil; {
		if se, ok := e.(*statusError); ok {
			return se.code == http.StatusUnauthorized || se.code == http.StatusForbidden
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		e = u.Unwrap()
	}
	return false
}

func (a *Adapter) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := a.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return a.do(req, out)
}

func (a *Adapter) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *Adapter) do(req *http.Request, out any) error {
	req.Header.Set("Api-Secret", a.token)
	req.Header.Set("Accept", "application/json")

	resp, err := a.hc.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// sortSamples orders quantity samples by start time.
func sortSamples(samples []model.QuantitySample, ascending bool) {
	sort.Slice(samples, func(i, j int) bool {
		if ascending {
			return samples[i].StartAt.Before(samples[j].StartAt)
		}
		return samples[j].StartAt.Before(samples[i].StartAt)
	})
}
