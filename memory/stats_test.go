package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-autopilot/recovery"
)

func seedRecoveries(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	sessions := []SessionResult{
		{
			Task: "clone repo", TaskType: "simple", Success: true, ToolsUsed: []string{"run_bash"},
			ErrorRecoveries: []ErrorRecovery{
				{ErrorCategory: recovery.CommandNotFound, StrategyName: "download_archive", RecoverySucceeded: true, IterationsToSuccess: 2},
			},
		},
		{
			Task: "clone other repo", TaskType: "simple", Success: true, ToolsUsed: []string{"run_bash"},
			ErrorRecoveries: []ErrorRecovery{
				{ErrorCategory: recovery.CommandNotFound, StrategyName: "install_command", RecoverySucceeded: true, IterationsToSuccess: 3},
				{ErrorCategory: recovery.CommandNotFound, StrategyName: "download_archive", RecoverySucceeded: false},
			},
		},
		{
			Task: "fetch page", TaskType: "research", Success: false, ToolsUsed: []string{"fetch_url"},
			ErrorRecoveries: []ErrorRecovery{
				{ErrorCategory: recovery.NetworkError, StrategyName: "retry_with_backoff", RecoverySucceeded: false},
			},
		},
		{
			Task: "read config", TaskType: "simple", Success: false, ToolsUsed: []string{"read_file"},
			ErrorRecoveries: []ErrorRecovery{
				{ErrorCategory: recovery.FileNotFound, StrategyName: "verify_parent_directory", RecoverySucceeded: true, IterationsToSuccess: 1},
			},
		},
	}
	for _, r := range sessions {
		_, err := s.RecordEpisode(ctx, r)
		require.NoError(t, err)
	}
}

func TestErrorCategoryStats(t *testing.T) {
	s, _ := newTestStore(t)
	seedRecoveries(t, s)

	stats := s.ErrorCategoryStats()
	cnf := stats[recovery.CommandNotFound]
	require.NotNil(t, cnf)
	assert.Equal(t, 2, cnf.Episodes)
	assert.Equal(t, 3, cnf.Occurrences)
	assert.Equal(t, 2, cnf.SuccessfulEpisodes)
	assert.Equal(t, 3, cnf.Recoveries)
	assert.Equal(t, 2, cnf.RecoveriesSucceeded)
	assert.InDelta(t, 2.0/3.0, cnf.RecoverySuccessRate, 1e-9)

	net := stats[recovery.NetworkError]
	require.NotNil(t, net)
	assert.Zero(t, net.RecoverySuccessRate)
}

func TestCommonErrorPatterns(t *testing.T) {
	s, _ := newTestStore(t)
	seedRecoveries(t, s)

	patterns := s.CommonErrorPatterns(5)
	require.Len(t, patterns, 2)
	assert.Equal(t, recovery.CommandNotFound, patterns[0].Category)
	assert.Equal(t, 2, patterns[0].SuccessfulRecoveries)
	// download_archive and install_command tie on uses; fewer iterations wins.
	assert.Equal(t, "download_archive", patterns[0].BestStrategy)
	assert.InDelta(t, 2.0, patterns[0].AvgIterationsToSuccess, 1e-9)
	assert.Equal(t, recovery.FileNotFound, patterns[1].Category)

	assert.Len(t, s.CommonErrorPatterns(1), 1)
}

func TestStrategyOutcomes(t *testing.T) {
	s, _ := newTestStore(t)
	seedRecoveries(t, s)

	succ, total := s.StrategyOutcomes(recovery.CommandNotFound, "download_archive")
	assert.Equal(t, 1, succ)
	assert.Equal(t, 2, total)

	var _ recovery.Priors = s
}

func TestCalibrationSample(t *testing.T) {
	s, _ := newTestStore(t)
	seedRecoveries(t, s)

	succ, total := s.CalibrationSample("simple", "")
	assert.Equal(t, 2, succ)
	assert.Equal(t, 3, total)

	succ, total = s.CalibrationSample("simple", "read_file")
	assert.Equal(t, 0, succ)
	assert.Equal(t, 1, total)

	_, total = s.CalibrationSample("", "")
	assert.Equal(t, 4, total)
}
