package transcript_test

import (
	"strings"
	"testing"

	"gistcast/internal/transcript"
)

func TestNormalizeStripsArtifacts(t *testing.T) {
	raw := "<scratchpad>plan the episode</scratchpad>\n" +
		"Here is your transcript:\n" +
		"```json\n{\"draft\": true}\n```\n" +
		"<Person1>Welcome to the show, **everyone**! [upbeat music]</Person1>\n" +
		"Note: keep it under ten minutes\n" +
		"<Person2>Thanks! Glad to be here.</Person2>\n"

	got := transcript.Normalize(raw)

	for _, banned := range []string{"scratchpad", "```", "[upbeat music]", "**", "Note:", "Here is your transcript"} {
		if strings.Contains(got, banned) {
			t.Fatalf("expected %q removed, got:\n%s", banned, got)
		}
	}
	if !strings.Contains(got, "<Person1>Welcome to the show, everyone! </Person1>") {
		t.Fatalf("expected host turn preserved, got:\n%s", got)
	}
	if !strings.Contains(got, "<Person2>Thanks! Glad to be here.</Person2>") {
		t.Fatalf("expected guest turn preserved, got:\n%s", got)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"<Person1>Hello **world**</Person1>\n\n\n\n<Person2>Hi [wave]</Person2>",
		"<thinking>hm</thinking><Person1>Hey there, welcome!</Person1><Person1>Hi everyone, welcome to the show!</Person1>",
		"plain prose with no tags at all",
		"",
	}
	for _, input := range inputs {
		once := transcript.Normalize(input)
		twice := transcript.Normalize(once)
		if once != twice {
			t.Fatalf("normalize not idempotent for %q:\nonce:  %q\ntwice: %q", input, once, twice)
		}
	}
}

func TestNormalizeDedupesOpenerGreeting(t *testing.T) {
	raw := "<Person1>Hey there, welcome!</Person1>\n" +
		"<Person1>Hi everyone, welcome to the show!</Person1>\n" +
		"<Person2>Great to be here.</Person2>"

	got := transcript.Normalize(raw)

	if strings.Contains(got, "Hey there, welcome!") {
		t.Fatalf("expected first greeting removed, got:\n%s", got)
	}
	if !strings.Contains(got, "Hi everyone, welcome to the show!") {
		t.Fatalf("expected second greeting kept, got:\n%s", got)
	}
}

func TestNormalizeKeepsNonGreetingOpeners(t *testing.T) {
	raw := "<Person1>Today we cover three stories.</Person1>\n" +
		"<Person1>Hello and welcome back!</Person1>"

	got := transcript.Normalize(raw)

	if !strings.Contains(got, "Today we cover three stories.") {
		t.Fatalf("expected non-greeting opener kept, got:\n%s", got)
	}
}

func TestNormalizeCollapsesBlankLines(t *testing.T) {
	raw := "<Person1>One</Person1>\n\n\n\n\n<Person2>Two</Person2>"
	got := transcript.Normalize(raw)
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("expected blank runs collapsed, got %q", got)
	}
}
