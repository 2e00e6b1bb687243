package pipeline

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// parseStrategy is one (match, extract) pair in the ordered fallback chain.
type parseStrategy struct {
	name    string
	extract func(text string) (candidate string, ok bool)
}

// parseStrategies is evaluated in order with early return. The ordering is
// deliberate, most-trusted convention first: an explicit <content> delimiter
// is an unambiguous instruction-following signal, a fenced code block is the
// model's usual formatting habit, a bare brace span catches JSON embedded in
// prose, and the raw text is the last resort. Do not reorder.
var parseStrategies = []parseStrategy{
	{name: "content-delimiter", extract: extractContentDelimited},
	{name: "code-fence", extract: extractFencedObject},
	{name: "brace-span", extract: extractBraceSpan},
	{name: "raw-text", extract: func(text string) (string, bool) { return text, true }},
}

var (
	contentDelimiterRe = regexp.MustCompile(`(?s)<content>(.*?)</content>`)
	codeFenceRe        = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
)

// ParseResponse extracts a JSON object from free-form model text. It walks
// the strategy chain; a strategy that matches but yields invalid JSON falls
// through to the next. Exhausting the chain is a parse failure. Returns the
// parsed object and the name of the strategy that produced it.
func ParseResponse(text string) (map[string]any, string, error) {
	for _, strat := range parseStrategies {
		candidate, ok := strat.extract(text)
		if !ok {
			continue
		}

		var parsed map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &parsed); err != nil {
			zap.L().Debug("parse: strategy yielded invalid JSON",
				zap.String("strategy", strat.name),
				zap.Error(err),
			)
			continue
		}
		return parsed, strat.name, nil
	}

	return nil, "", eris.New("parse: no strategy yielded a valid JSON object")
}

// extractContentDelimited pulls the inner text of an explicit
// <content>...</content> block and reverses the fixed HTML-entity escapes
// applied by the producing model.
func extractContentDelimited(text string) (string, bool) {
	m := contentDelimiterRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return unescapeEntities(m[1]), true
}

// unescapeEntities reverses the fixed escape set. &amp; is handled last so a
// literal "&amp;lt;" does not double-unescape.
func unescapeEntities(s string) string {
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}

// extractFencedObject pulls a brace-delimited object out of a ```json or
// untagged code fence.
func extractFencedObject(text string) (string, bool) {
	m := codeFenceRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// extractBraceSpan returns the span from the first { to the last } in the
// text, verbatim.
func extractBraceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
