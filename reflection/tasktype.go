package reflection

import "regexp"

// TaskType is the closed set of task shapes the engine distinguishes.
type TaskType string

const (
	TaskExploratory   TaskType = "exploratory"
	TaskDocumentation TaskType = "documentation"
	TaskResearch      TaskType = "research"
	TaskCreateAndTest TaskType = "create_and_test"
	TaskOptimization  TaskType = "optimization"
	TaskMultiItem     TaskType = "multi_item"
	TaskSimple        TaskType = "simple"
)

// Checked in order; the first match wins.
var taskTypeRules = []struct {
	taskType TaskType
	pattern  *regexp.Regexp
}{
	{TaskExploratory, regexp.MustCompile(`(?i)^\s*(?:what|how|why|where|which)\b|\b(?:explore|investigate|understand|figure out|look into|get familiar|walk through)\b`)},
	{TaskDocumentation, regexp.MustCompile(`(?i)\b(?:document(?:ation)?|readme|docs|docstrings?|changelog|api reference)\b`)},
	{TaskResearch, regexp.MustCompile(`(?i)\b(?:research|compare|evaluate|survey|find out|best practices?|pros and cons)\b`)},
	{TaskCreateAndTest, regexp.MustCompile(`(?i)\b(?:create|write|implement|build|add|make)\b.*\b(?:tests?|verify|validate)\b`)},
	{TaskOptimization, regexp.MustCompile(`(?i)\b(?:refactor|optimi[sz]e|improve|speed up|performance|clean ?up|simplify)\b`)},
	{TaskMultiItem, regexp.MustCompile(`(?i)\b(?:\d+|two|three|four|five|six|seven|eight|nine|ten|several|multiple)\s+(?:\w+\s+)?(?:files|items|pages|tasks|components|endpoints|tests|functions|modules|scripts|repos|repositories|services|features)\b`)},
}

// ClassifyTask assigns a TaskType to free-form task text.
func ClassifyTask(task string) TaskType {
	for _, r := range taskTypeRules {
		if r.pattern.MatchString(task) {
			return r.taskType
		}
	}
	return TaskSimple
}
