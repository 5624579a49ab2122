package reflection

import "math"

// Calibrator adjusts a raw confidence using historical accuracy.
type Calibrator interface {
	Calibrate(raw float64, taskType TaskType, tool string) float64
}

// CalibratorFunc adapts a function to Calibrator.
type CalibratorFunc func(raw float64, taskType TaskType, tool string) float64

// Calibrate implements Calibrator.
func (f CalibratorFunc) Calibrate(raw float64, taskType TaskType, tool string) float64 {
	return f(raw, taskType, tool)
}

// HistorySource reports how often past sessions of a task type that used
// tool succeeded. An empty tool means any tool.
type HistorySource interface {
	CalibrationSample(taskType, tool string) (successes, total int)
}

const (
	// MinSamples is the history size below which confidence is not adjusted.
	MinSamples  = 3
	priorWeight = 10.0
)

// HistoryCalibrator blends the raw score with the observed success rate,
// trusting history more as it grows: w = n/(n+10).
type HistoryCalibrator struct {
	Source HistorySource
}

// NewHistoryCalibrator wraps src.
func NewHistoryCalibrator(src HistorySource) *HistoryCalibrator {
	return &HistoryCalibrator{Source: src}
}

// Calibrate implements Calibrator. When the (task type, tool) pair has too
// little history, the task type alone is tried before giving up.
func (c *HistoryCalibrator) Calibrate(raw float64, taskType TaskType, tool string) float64 {
	raw = clamp(raw, 0, 1)
	if c == nil || c.Source == nil {
		return raw
	}
	successes, total := c.Source.CalibrationSample(string(taskType), tool)
	if total < MinSamples && tool != "" {
		successes, total = c.Source.CalibrationSample(string(taskType), "")
	}
	if total < MinSamples {
		return raw
	}
	n := float64(total)
	accuracy := float64(successes) / n
	w := n / (n + priorWeight)
	return clamp((1-w)*raw+w*accuracy, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
