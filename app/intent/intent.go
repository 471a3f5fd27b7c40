// Package intent maps chat utterances onto task operations using an ordered
// table of keyword rules. Matching is plain substring containment on the
// lower-cased text, so "what" also matches inside "whatever".
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"todo-chat/app/models"
)

// Kind names the operation an utterance asks for.
type Kind string

const (
	KindAdd      Kind = "add"
	KindList     Kind = "list"
	KindComplete Kind = "complete"
	KindDelete   Kind = "delete"
	KindUpdate   Kind = "update"
	KindUnknown  Kind = "unknown"
)

// Intent is the structured reading of one utterance. Only the fields that
// belong to Kind are populated.
type Intent struct {
	Kind Kind

	// Title is the extracted task title for KindAdd. Empty means the
	// utterance named no task and the user must be asked for one.
	Title string

	// StatusFilter is set for KindList.
	StatusFilter models.StatusFilter

	// TaskID is the first number in the utterance for KindComplete,
	// KindDelete and KindUpdate, nil when there was none.
	TaskID *int64

	// Raw is the original, unmodified utterance.
	Raw string
}

// NeedsClarification reports whether no tool can run until the user says more.
func (in Intent) NeedsClarification() bool {
	switch in.Kind {
	case KindAdd:
		return in.Title == ""
	case KindComplete, KindDelete:
		return in.TaskID == nil
	case KindUpdate:
		// Field extraction is not supported, so updates always re-prompt.
		return true
	}
	return false
}

// Rule is one row of the classification table.
type Rule struct {
	Kind     Kind
	Keywords []string
	Build    func(lower string, in *Intent)
}

// Rules is evaluated top to bottom and the first rule with a matching
// keyword wins. Add precedes list, so "add a note to see the dentist" adds.
var Rules = []Rule{
	{
		Kind:     KindAdd,
		Keywords: []string{"add", "create", "new task", "remember", "note", "schedule", "i need to", "i have to"},
		Build:    buildAdd,
	},
	{
		Kind:     KindList,
		Keywords: []string{"show", "list", "see", "view", "display", "my tasks", "what"},
		Build:    buildList,
	},
	{
		Kind:     KindComplete,
		Keywords: []string{"complete", "done", "finish", "mark as done"},
		Build:    buildTaskRef,
	},
	{
		Kind:     KindDelete,
		Keywords: []string{"delete", "remove", "cancel", "eliminate"},
		Build:    buildTaskRef,
	},
	{
		Kind:     KindUpdate,
		Keywords: []string{"update", "change", "modify", "edit", "rename"},
		Build:    buildTaskRef,
	},
}

// Classify turns an utterance into an Intent. It has no side effects.
func Classify(utterance string) Intent {
	lower := strings.ToLower(utterance)
	for _, rule := range Rules {
		if !containsAny(lower, rule.Keywords) {
			continue
		}
		in := Intent{Kind: rule.Kind, Raw: utterance}
		if rule.Build != nil {
			rule.Build(lower, &in)
		}
		return in
	}
	return Intent{Kind: KindUnknown, Raw: utterance}
}

// RuleClassifier adapts Classify to callers that supply conversation history.
// The rules only look at the latest utterance.
type RuleClassifier struct{}

// Classify ignores history.
func (RuleClassifier) Classify(utterance string, _ []models.Message) Intent {
	return Classify(utterance)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func buildList(lower string, in *Intent) {
	switch {
	case strings.Contains(lower, "pending") || strings.Contains(lower, "incomplete"):
		in.StatusFilter = models.FilterPending
	case strings.Contains(lower, "completed") || strings.Contains(lower, "done"):
		in.StatusFilter = models.FilterCompleted
	default:
		in.StatusFilter = models.FilterAll
	}
}

var digits = regexp.MustCompile(`\d+`)

func buildTaskRef(lower string, in *Intent) {
	in.TaskID = FirstNumber(lower)
}

// FirstNumber returns the first run of decimal digits in s, or nil when there
// is none or it does not fit in an int64.
func FirstNumber(s string) *int64 {
	m := digits.FindString(s)
	if m == "" {
		return nil
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
