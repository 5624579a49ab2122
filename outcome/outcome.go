// Package outcome tracks how chosen alternatives turned out, closing the
// learning loop for planning priors.
package outcome

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	errorskg "github.com/sweetpotato0/ai-autopilot/errors"
	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
	"github.com/sweetpotato0/ai-autopilot/pkg/telemetry"
	"github.com/sweetpotato0/ai-autopilot/store"
)

// Kind is the result of one decision.
type Kind string

const (
	Success Kind = "success"
	Failure Kind = "failure"
	Partial Kind = "partial"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case Success, Failure, Partial:
		return true
	}
	return false
}

// Record is one persisted outcome.
type Record struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	TaskCategory     string    `json:"taskCategory"`
	AlternativeName  string    `json:"alternativeName"`
	Outcome          Kind      `json:"outcome"`
	OverallScore     float64   `json:"overallScore"`
	ActualIterations int       `json:"actualIterations"`
	SessionID        string    `json:"sessionId,omitempty"`
}

// Filter selects records. Zero fields do not constrain; score bounds are
// pointers so 0 can be used as a bound.
type Filter struct {
	TaskCategory    string
	Outcome         Kind
	MinScore        *float64
	MaxScore        *float64
	SessionID       string
	AlternativeName string
	Since           time.Time
	Limit           int
}

func (f Filter) match(r *Record) bool {
	switch {
	case f.TaskCategory != "" && r.TaskCategory != f.TaskCategory:
		return false
	case f.Outcome != "" && r.Outcome != f.Outcome:
		return false
	case f.MinScore != nil && r.OverallScore < *f.MinScore:
		return false
	case f.MaxScore != nil && r.OverallScore > *f.MaxScore:
		return false
	case f.SessionID != "" && r.SessionID != f.SessionID:
		return false
	case f.AlternativeName != "" && r.AlternativeName != f.AlternativeName:
		return false
	case !f.Since.IsZero() && r.Timestamp.Before(f.Since):
		return false
	}
	return true
}

// Stats summarises a set of records.
type Stats struct {
	Count         int     `json:"count"`
	Successes     int     `json:"successes"`
	Failures      int     `json:"failures"`
	Partials      int     `json:"partials"`
	SuccessRate   float64 `json:"successRate"`
	AvgScore      float64 `json:"avgScore"`
	AvgIterations float64 `json:"avgIterations"`
}

// AlternativeRate is the observed success rate of one alternative.
type AlternativeRate struct {
	AlternativeName string  `json:"alternativeName"`
	Attempts        int     `json:"attempts"`
	Successes       int     `json:"successes"`
	SuccessRate     float64 `json:"successRate"`
}

// Tracker appends and queries outcome records.
type Tracker struct {
	log    store.Log[Record]
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker wraps log.
func NewTracker(log store.Log[Record], opts ...Option) *Tracker {
	t := &Tracker{
		log:    log,
		logger: logging.WithComponent("outcome"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordOutcome appends rec, assigning an id and timestamp when absent.
func (t *Tracker) RecordOutcome(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil outcome record", errorskg.ErrInvalidInput)
	}
	if rec.Outcome == "" || !rec.Outcome.Valid() {
		return fmt.Errorf("%w: outcome %q", errorskg.ErrInvalidInput, rec.Outcome)
	}

	ctx, span := telemetry.Start(ctx, "outcome", "record",
		attribute.String("outcome.category", rec.TaskCategory),
		attribute.String("outcome.kind", string(rec.Outcome)),
	)
	var err error
	defer func() { telemetry.End(span, err) }()

	if rec.ID == "" {
		id, idErr := uuid.NewV7()
		if idErr != nil {
			id = uuid.New()
		}
		rec.ID = id.String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = t.now()
	}
	if err = t.log.Append(ctx, *rec); err != nil {
		err = fmt.Errorf("record outcome: %w", err)
		return err
	}
	t.logger.DebugContext(ctx, "outcome recorded",
		"id", rec.ID,
		"category", rec.TaskCategory,
		"outcome", rec.Outcome,
	)
	return nil
}

// QueryOutcomes returns matching records in append order, truncated to the
// most recent Limit when set. An unreadable store yields no records.
func (t *Tracker) QueryOutcomes(ctx context.Context, f Filter) []Record {
	all := t.readAll(ctx)
	out := make([]Record, 0, len(all))
	for i := range all {
		if f.match(&all[i]) {
			out = append(out, all[i])
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

func (t *Tracker) readAll(ctx context.Context) []Record {
	recs, err := t.log.ReadAll(ctx)
	if err != nil {
		t.logger.WarnContext(ctx, "failed to read outcomes, treating as empty", "error", err)
		return nil
	}
	return recs
}

// Stats summarises records of category, or all records when category is
// empty.
func (t *Tracker) Stats(ctx context.Context, category string) Stats {
	return Summarize(t.QueryOutcomes(ctx, Filter{TaskCategory: category}))
}

// Summarize computes Stats over recs.
func Summarize(recs []Record) Stats {
	var s Stats
	var score float64
	var iterations int
	for _, r := range recs {
		s.Count++
		switch r.Outcome {
		case Success:
			s.Successes++
		case Failure:
			s.Failures++
		case Partial:
			s.Partials++
		}
		score += r.OverallScore
		iterations += r.ActualIterations
	}
	if s.Count > 0 {
		n := float64(s.Count)
		s.SuccessRate = float64(s.Successes) / n
		s.AvgScore = score / n
		s.AvgIterations = float64(iterations) / n
	}
	return s
}

// AlternativeSuccessRates reports per-alternative success rates within
// category, most successful first.
func (t *Tracker) AlternativeSuccessRates(ctx context.Context, category string) []AlternativeRate {
	byName := make(map[string]*AlternativeRate)
	for _, r := range t.QueryOutcomes(ctx, Filter{TaskCategory: category}) {
		name := strings.TrimSpace(r.AlternativeName)
		if name == "" {
			continue
		}
		ar, ok := byName[name]
		if !ok {
			ar = &AlternativeRate{AlternativeName: name}
			byName[name] = ar
		}
		ar.Attempts++
		if r.Outcome == Success {
			ar.Successes++
		}
	}
	rates := make([]AlternativeRate, 0, len(byName))
	for _, ar := range byName {
		ar.SuccessRate = float64(ar.Successes) / float64(ar.Attempts)
		rates = append(rates, *ar)
	}
	sort.Slice(rates, func(i, j int) bool {
		if rates[i].SuccessRate != rates[j].SuccessRate {
			return rates[i].SuccessRate > rates[j].SuccessRate
		}
		if rates[i].Attempts != rates[j].Attempts {
			return rates[i].Attempts > rates[j].Attempts
		}
		return rates[i].AlternativeName < rates[j].AlternativeName
	})
	return rates
}

// Close releases the underlying log.
func (t *Tracker) Close() error {
	return t.log.Close()
}
