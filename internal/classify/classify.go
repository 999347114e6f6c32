// Package classify provides stateless language and intent detection for
// inbound chat messages. Classification is pure string matching: no I/O,
// no model calls, deterministic for a given input.
package classify

import "strings"

// Language is the resolved reply language for a message.
type Language string

const (
	LangEN Language = "en"
	LangTH Language = "th"
)

// Intent is the healthcare topic detected in a message.
type Intent string

const (
	IntentHIV     Intent = "hiv"
	IntentPrEP    Intent = "prep"
	IntentSTD     Intent = "std"
	IntentGeneral Intent = "general"
)

// Result holds the outcome of classifying a single message.
type Result struct {
	Language Language
	Intent   Intent
}

// rule pairs an intent with the keywords that select it. Rules are
// evaluated in table order and the first match wins, so more specific
// topics must stay above broader ones. Reordering this table changes the
// tie-break for messages that mention several topics.
type rule struct {
	intent   Intent
	keywords []string
}

var intentRules = []rule{
	{IntentHIV, []string{"hiv", "aids", "เอชไอวี", "เอดส์"}},
	{IntentPrEP, []string{"prep", "pre-exposure", "เพรพ", "การป้องกันก่อนสัมผัส"}},
	{IntentSTD, []string{"std", "sti", "sexually transmitted", "โรคติดต่อทางเพศ", "โรคกามโรค"}},
}

// Classify resolves the language and healthcare intent of a message.
func Classify(text string) Result {
	return Result{
		Language: DetectLanguage(text),
		Intent:   DetectIntent(text),
	}
}

// DetectLanguage returns LangTH when the text contains any character in
// the Thai Unicode block (U+0E00–U+0E7F), LangEN otherwise.
func DetectLanguage(text string) Language {
	for _, r := range text {
		if r >= 0x0E00 && r <= 0x0E7F {
			return LangTH
		}
	}
	return LangEN
}

// DetectIntent walks the keyword rule table top to bottom and returns the
// intent of the first rule with a matching keyword, or IntentGeneral when
// nothing matches.
func DetectIntent(text string) Intent {
	lower := strings.ToLower(text)
	for _, r := range intentRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.intent
			}
		}
	}
	return IntentGeneral
}

// Sensitive reports whether an intent triggers the additional healthcare
// resources block in formatted replies.
func Sensitive(intent Intent) bool {
	switch intent {
	case IntentHIV, IntentPrEP, IntentSTD:
		return true
	default:
		return false
	}
}
