package outcome

import "regexp"

// Task categories produced by CategorizeTask.
const (
	CategoryInstall = "install"
	CategoryTest    = "test"
	CategoryBuild   = "build"
	CategoryDeploy  = "deploy"
	CategoryDebug   = "debug"
	CategoryQuery   = "query"
	CategoryModify  = "modify"
	CategoryGeneral = "general"
)

var taskCategories = []struct {
	category string
	pattern  *regexp.Regexp
}{
	{CategoryInstall, regexp.MustCompile(`(?i)\b(install|setup|set up)`)},
	{CategoryTest, regexp.MustCompile(`(?i)\b(test|verif)`)},
	{CategoryBuild, regexp.MustCompile(`(?i)\b(build|compil)`)},
	{CategoryDeploy, regexp.MustCompile(`(?i)\b(deploy|releas)`)},
	{CategoryDebug, regexp.MustCompile(`(?i)\b(fix|debug)`)},
	{CategoryQuery, regexp.MustCompile(`(?i)\b(read|list|fetch)`)},
	{CategoryModify, regexp.MustCompile(`(?i)\b(writ|creat|modif|delet)`)},
}

// CategorizeTask buckets free-form task text by keyword stems. The first
// matching family wins; text matching none is "general".
func CategorizeTask(text string) string {
	for _, c := range taskCategories {
		if c.pattern.MatchString(text) {
			return c.category
		}
	}
	return CategoryGeneral
}
