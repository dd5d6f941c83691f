package transcript

import (
	"regexp"
	"strings"
)

var (
	scratchpadRE  = regexp.MustCompile(`(?is)<scratchpad>.*?</scratchpad>`)
	thinkingRE    = regexp.MustCompile(`(?is)<thinking>.*?</thinking>`)
	fencedBlockRE = regexp.MustCompile(`(?s)` + "```" + `.*?` + "```")
	bracketedRE   = regexp.MustCompile(`\[.*?\]`)
	personTagRE   = regexp.MustCompile(`(?s)<Person[12]>.*?</Person[12]>`)
	boldRE        = regexp.MustCompile(`\*\*(.*?)\*\*`)
	instructionRE = regexp.MustCompile(`(?im)^\s*(Note|Instructions?|Reminder|TODO|NB|IMPORTANT):.*$`)
	blankRunsRE   = regexp.MustCompile(`\n{3,}`)
	hostTurnRE    = regexp.MustCompile(`(?s)<Person1>(.*?)</Person1>`)

	greetingRE = regexp.MustCompile(`(?i)^(hey |hi |hello |good morning|welcome |what'?s up|greetings)`)
)

// Normalize removes generation artifacts from a raw transcript: reasoning
// blocks, fenced code, bracketed stage directions, prose outside tagged
// turns, emphasis markup, and instruction lines. When the first two host
// turns both open with a greeting the first is dropped, keeping the second
// as the canonical opener. The transform is idempotent.
func Normalize(raw string) string {
	text := raw

	text = scratchpadRE.ReplaceAllString(text, "")
	text = thinkingRE.ReplaceAllString(text, "")
	text = fencedBlockRE.ReplaceAllString(text, "")
	text = bracketedRE.ReplaceAllString(text, "")

	if tagged := personTagRE.FindAllString(text, -1); len(tagged) > 0 {
		text = strings.Join(tagged, "\n")
	}

	text = boldRE.ReplaceAllString(text, "$1")
	text = instructionRE.ReplaceAllString(text, "")
	text = dedupeOpenerGreeting(text)
	text = blankRunsRE.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// dedupeOpenerGreeting drops the first host turn when the first two host
// turns both match the greeting pattern. This guards against a generation
// artifact where the model restates its own opener.
func dedupeOpenerGreeting(text string) string {
	matches := hostTurnRE.FindAllStringSubmatchIndex(text, -1)
	if len(matches) < 2 {
		return text
	}
	first := strings.TrimSpace(text[matches[0][2]:matches[0][3]])
	second := strings.TrimSpace(text[matches[1][2]:matches[1][3]])
	if greetingRE.MatchString(first) && greetingRE.MatchString(second) {
		return text[:matches[0][0]] + text[matches[0][1]:]
	}
	return text
}
