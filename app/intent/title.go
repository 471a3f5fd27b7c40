package intent

import (
	"strings"

	"todo-chat/app/models"
)

// addTriggers are the phrases removed in front of a task title.
var addTriggers = []string{
	"add", "create", "new task", "remember", "note", "schedule", "i need to", "i have to",
}

// leadingFiller is dropped between the trigger and the title.
var leadingFiller = map[string]bool{
	"a": true, "an": true, "the": true, "task": true, "todo": true,
	"item": true, "to": true, "for": true, "me": true, "called": true, "named": true,
	"that": true, "about": true,
}

func buildAdd(lower string, in *Intent) {
	in.Title = ExtractTitle(lower)
}

// ExtractTitle cuts the text through the earliest add trigger, drops filler
// words such as "a task to", and capitalizes what remains.
//
//	"add a task to buy groceries" -> "Buy groceries"
//	"remember to call mom"        -> "Call mom"
//	"add"                         -> ""
func ExtractTitle(utterance string) string {
	lower := strings.ToLower(utterance)

	cut, length := -1, 0
	for _, t := range addTriggers {
		i := strings.Index(lower, t)
		if i < 0 {
			continue
		}
		if cut < 0 || i < cut || (i == cut && len(t) > length) {
			cut, length = i, len(t)
		}
	}
	rest := lower
	if cut >= 0 {
		rest = lower[cut+length:]
	}

	words := strings.Fields(rest)
	for len(words) > 0 {
		w := strings.Trim(words[0], ":,")
		if w == "new" && len(words) > 1 && isTaskNoun(words[1]) {
			words = words[1:]
			continue
		}
		if !leadingFiller[w] {
			break
		}
		words = words[1:]
	}
	title := strings.Trim(strings.Join(words, " "), " .!?,:;-")
	return models.NormalizeTitle(title)
}

func isTaskNoun(w string) bool {
	w = strings.Trim(w, ":,")
	return w == "task" || w == "todo" || w == "item"
}
