package memory

import (
	"slices"
	"sort"

	"github.com/sweetpotato0/ai-autopilot/recovery"
)

// CategoryStats aggregates one error category across episodes.
type CategoryStats struct {
	Category            recovery.Category `json:"category"`
	Episodes            int               `json:"episodes"`
	Occurrences         int               `json:"occurrences"`
	SuccessfulEpisodes  int               `json:"successfulEpisodes"`
	Recoveries          int               `json:"recoveries"`
	RecoveriesSucceeded int               `json:"recoveriesSucceeded"`
	RecoverySuccessRate float64           `json:"recoverySuccessRate"`
}

// ErrorPattern is a frequently recovered error category and the strategy
// that fixed it most often.
type ErrorPattern struct {
	Category               recovery.Category `json:"category"`
	SuccessfulRecoveries   int               `json:"successfulRecoveries"`
	BestStrategy           string            `json:"bestStrategy"`
	BestStrategyUses       int               `json:"bestStrategyUses"`
	AvgIterationsToSuccess float64           `json:"avgIterationsToSuccess"`
}

// ErrorCategoryStats returns per-category counts over all episodes.
func (s *Store) ErrorCategoryStats() map[recovery.Category]*CategoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[recovery.Category]*CategoryStats)
	get := func(c recovery.Category) *CategoryStats {
		st, ok := stats[c]
		if !ok {
			st = &CategoryStats{Category: c}
			stats[c] = st
		}
		return st
	}
	for _, ep := range s.episodes {
		for c, n := range ep.ErrorCategoriesEncountered {
			st := get(c)
			st.Episodes++
			st.Occurrences += n
			if ep.Success {
				st.SuccessfulEpisodes++
			}
		}
		for _, r := range ep.ErrorRecoveries {
			st := get(r.ErrorCategory)
			st.Recoveries++
			if r.RecoverySucceeded {
				st.RecoveriesSucceeded++
			}
		}
	}
	for _, st := range stats {
		if st.Recoveries > 0 {
			st.RecoverySuccessRate = float64(st.RecoveriesSucceeded) / float64(st.Recoveries)
		}
	}
	return stats
}

type strategyUse struct {
	uses       int
	iterations int
}

func (u strategyUse) meanIterations() float64 {
	if u.uses == 0 {
		return 0
	}
	return float64(u.iterations) / float64(u.uses)
}

// CommonErrorPatterns returns up to limit categories ordered by number of
// successful recoveries. The best strategy is the one used most often to
// recover, ties going to fewer iterations to success.
func (s *Store) CommonErrorPatterns(limit int) []ErrorPattern {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := make(map[recovery.Category]map[string]*strategyUse)
	for _, ep := range s.episodes {
		for _, r := range ep.ErrorRecoveries {
			if !r.RecoverySucceeded {
				continue
			}
			m, ok := byCategory[r.ErrorCategory]
			if !ok {
				m = make(map[string]*strategyUse)
				byCategory[r.ErrorCategory] = m
			}
			u, ok := m[r.StrategyName]
			if !ok {
				u = &strategyUse{}
				m[r.StrategyName] = u
			}
			u.uses++
			u.iterations += r.IterationsToSuccess
		}
	}

	patterns := make([]ErrorPattern, 0, len(byCategory))
	for c, m := range byCategory {
		p := ErrorPattern{Category: c}
		var best strategyUse
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			u := *m[name]
			p.SuccessfulRecoveries += u.uses
			if p.BestStrategy == "" || u.uses > best.uses ||
				(u.uses == best.uses && u.meanIterations() < best.meanIterations()) {
				p.BestStrategy = name
				best = u
			}
		}
		p.BestStrategyUses = best.uses
		p.AvgIterationsToSuccess = best.meanIterations()
		patterns = append(patterns, p)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].SuccessfulRecoveries != patterns[j].SuccessfulRecoveries {
			return patterns[i].SuccessfulRecoveries > patterns[j].SuccessfulRecoveries
		}
		return patterns[i].Category < patterns[j].Category
	})
	if limit > 0 && len(patterns) > limit {
		patterns = patterns[:limit]
	}
	return patterns
}

// StrategyOutcomes reports how often strategy was tried for category and how
// often it worked. It lets recovery planning use past episodes as priors.
func (s *Store) StrategyOutcomes(category recovery.Category, strategy string) (successes, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ep := range s.episodes {
		for _, r := range ep.ErrorRecoveries {
			if r.ErrorCategory != category || r.StrategyName != strategy {
				continue
			}
			total++
			if r.RecoverySucceeded {
				successes++
			}
		}
	}
	return successes, total
}

// CalibrationSample counts episodes of taskType, restricted to those that
// used tool when tool is set, and how many of them succeeded. An empty
// taskType matches every episode.
func (s *Store) CalibrationSample(taskType, tool string) (successes, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ep := range s.episodes {
		if taskType != "" && ep.TaskType != taskType {
			continue
		}
		if tool != "" && !slices.Contains(ep.ToolsUsed, tool) {
			continue
		}
		total++
		if ep.Success {
			successes++
		}
	}
	return successes, total
}
