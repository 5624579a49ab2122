// Package memory is the episodic memory of completed sessions. Episodes are
// embedded with a corpus-wide TF-IDF vocabulary and searched by cosine
// similarity.
package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/sweetpotato0/ai-autopilot/recovery"
)

// HistoryEntry is one iteration of a finished session.
type HistoryEntry struct {
	Iteration int    `json:"iteration"`
	Action    string `json:"action"`
	Tool      string `json:"tool,omitempty"`
	Success   bool   `json:"success"`
}

// ErrorRecovery records one attempt to recover from a tool failure.
type ErrorRecovery struct {
	ErrorCategory       recovery.Category `json:"errorCategory"`
	StrategyName        string            `json:"strategyName"`
	RecoverySucceeded   bool              `json:"recoverySucceeded"`
	Confidence          float64           `json:"confidence"`
	IterationsToSuccess int               `json:"iterationsToSuccess"`
}

// SessionResult is what the orchestration loop hands over when a session
// ends.
type SessionResult struct {
	Task                       string                    `json:"task"`
	TaskType                   string                    `json:"taskType"`
	Success                    bool                      `json:"success"`
	Iterations                 int                       `json:"iterations"`
	ToolsUsed                  []string                  `json:"toolsUsed"`
	Strategy                   string                    `json:"strategy"`
	History                    []HistoryEntry            `json:"history,omitempty"`
	Artifacts                  []string                  `json:"artifacts,omitempty"`
	Summary                    string                    `json:"summary"`
	Confidence                 float64                   `json:"confidence"`
	ErrorRecoveries            []ErrorRecovery           `json:"errorRecoveries,omitempty"`
	ErrorCategoriesEncountered map[recovery.Category]int `json:"errorCategoriesEncountered,omitempty"`
}

// Episode is a persisted session. Only Embedding changes after creation.
type Episode struct {
	ID        string    `json:"episodeId"`
	Timestamp time.Time `json:"timestamp"`
	SessionResult
	Embedding []float32 `json:"embedding,omitempty"`
}

// SearchableText is the text an episode is indexed under.
func (e *Episode) SearchableText() string {
	parts := []string{e.Task, e.TaskType, e.Strategy, plainText(e.Summary), strings.Join(e.ToolsUsed, " ")}
	return strings.Join(nonEmpty(parts), " ")
}

func newEpisode(id string, now time.Time, r SessionResult) *Episode {
	r.ToolsUsed = toolSet(r.ToolsUsed)
	if r.ErrorCategoriesEncountered == nil && len(r.ErrorRecoveries) > 0 {
		r.ErrorCategoriesEncountered = make(map[recovery.Category]int)
		for _, rec := range r.ErrorRecoveries {
			r.ErrorCategoriesEncountered[rec.ErrorCategory]++
		}
	}
	return &Episode{ID: id, Timestamp: now, SessionResult: r}
}

// toolSet deduplicates and sorts tool names.
func toolSet(tools []string) []string {
	seen := make(map[string]struct{}, len(tools))
	out := make([]string, 0, len(tools))
	for _, t := range tools {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
