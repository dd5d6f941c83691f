package transcript

import (
	"regexp"
	"strings"
)

// Role identifies the speaker of a turn.
type Role string

const (
	RoleHost  Role = "Host"
	RoleGuest Role = "Guest"
)

// Turn is one speaker's utterance in the normalized transcript.
type Turn struct {
	Speaker Role
	Text    string
}

var (
	turnRE = regexp.MustCompile(`(?s)<(Person[12])>(.*?)</(Person[12])>`)
	gistRE = regexp.MustCompile(`\bGist\b`)
)

// ParseTurns extracts ordered speaker turns from tagged transcript text.
// Empty turns are dropped. "Gist" is respelled "Jist" so synthesis
// pronounces the soft G.
func ParseTurns(text string) []Turn {
	matches := turnRE.FindAllStringSubmatch(text, -1)
	turns := make([]Turn, 0, len(matches))
	for _, match := range matches {
		if match[1] != match[3] {
			continue
		}
		cleaned := strings.TrimSpace(match[2])
		cleaned = gistRE.ReplaceAllString(cleaned, "Jist")
		if cleaned == "" {
			continue
		}
		role := RoleHost
		if match[1] == "Person2" {
			role = RoleGuest
		}
		turns = append(turns, Turn{Speaker: role, Text: cleaned})
	}
	return turns
}

// RenderPrompt formats turns as "role: text" lines for synthesis requests.
func RenderPrompt(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, string(turn.Speaker)+": "+turn.Text)
	}
	return strings.Join(lines, "\n")
}

// WordCount totals whitespace-separated words across all turns.
func WordCount(turns []Turn) int {
	count := 0
	for _, turn := range turns {
		count += len(strings.Fields(turn.Text))
	}
	return count
}
