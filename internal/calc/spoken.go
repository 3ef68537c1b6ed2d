package calc

import (
	"regexp"
	"strings"
)

type spokenRule struct {
	pattern *regexp.Regexp
	symbol  string
}

// Multi-word phrases come before single words; the order is significant.
var spokenRules = []spokenRule{
	{regexp.MustCompile(`(?i)\b(multiplied\s+by|times)\b`), "*"},
	{regexp.MustCompile(`(?i)\b(divided\s+by|over)\b`), "/"},
	{regexp.MustCompile(`(?i)\bplus\b`), "+"},
	{regexp.MustCompile(`(?i)\bminus\b`), "-"},
	{regexp.MustCompile(`(?i)\b(open|left)\s+(bracket|parenthesis)\b`), "("},
	{regexp.MustCompile(`(?i)\b(close|right)\s+(bracket|parenthesis)\b`), ")"},
	{regexp.MustCompile(`(?i)\b(point|dot)\b`), "."},
	{regexp.MustCompile(`(?i)умнож(ить|ь|ено)\s+на`), "*"},
	{regexp.MustCompile(`(?i)раздел(ить|и|ено)\s+на`), "/"},
	{regexp.MustCompile(`(?i)плюс`), "+"},
	{regexp.MustCompile(`(?i)минус`), "-"},
	{regexp.MustCompile(`(?i)открыть\s+скобку|открывающая\s+скобка`), "("},
	{regexp.MustCompile(`(?i)закрыть\s+скобку|закрывающая\s+скобка`), ")"},
	{regexp.MustCompile(`(?i)запятая|точка`), "."},
	{regexp.MustCompile(`×`), "*"},
	{regexp.MustCompile(`(\d)\s*[xX]\s*(\d)`), "${1}*${2}"},
	{regexp.MustCompile(`[÷:]`), "/"},
	{regexp.MustCompile(`,`), "."},
}

// TranslateSpoken rewrites a speech-to-text transcript such as
// "12 plus 3 times 4" into "12+3*4". Spoken number words are not
// converted; digits are expected from the transcriber.
func TranslateSpoken(transcript string) string {
	out := transcript
	for _, rule := range spokenRules {
		out = rule.pattern.ReplaceAllString(out, rule.symbol)
	}
	return Sanitize(strings.TrimSpace(out))
}
