// Package intent defines the closed set of message intents.
package intent

import "strings"

// Intent is the classified purpose of a single utterance.
type Intent string

const (
	SmallTalk  Intent = "small_talk"
	TaskAction Intent = "task_action"
	DataQuery  Intent = "data_query"
)

// Default is returned whenever classification fails. It never mutates tasks
// or exposes records.
const Default = SmallTalk

// Parse maps a label to an Intent. Labels are matched case-insensitively and
// accept hyphens or spaces in place of underscores.
func Parse(s string) (Intent, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("-", "_", " ", "_").Replace(v)
	switch Intent(v) {
	case SmallTalk, TaskAction, DataQuery:
		return Intent(v), true
	}
	return "", false
}

// Classification is the structured result expected from the classifier.
type Classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}
