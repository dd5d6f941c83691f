package transcript_test

import (
	"testing"

	"gistcast/internal/transcript"
)

func TestParseTurns(t *testing.T) {
	text := "<Person1>Welcome to the Daily Gist.</Person1>\n" +
		"<Person2>  So what's in the Gist today?  </Person2>\n" +
		"<Person1>   </Person1>\n" +
		"<Person2>Gistfully ungisted.</Person2>"

	turns := transcript.ParseTurns(text)
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d: %+v", len(turns), turns)
	}
	if turns[0].Speaker != transcript.RoleHost || turns[0].Text != "Welcome to the Daily Jist." {
		t.Fatalf("unexpected first turn: %+v", turns[0])
	}
	if turns[1].Speaker != transcript.RoleGuest || turns[1].Text != "So what's in the Jist today?" {
		t.Fatalf("unexpected second turn: %+v", turns[1])
	}
	// "Gist" inside a larger word is left alone.
	if turns[2].Text != "Gistfully ungisted." {
		t.Fatalf("unexpected third turn: %+v", turns[2])
	}
}

func TestParseTurnsEmptyInput(t *testing.T) {
	if turns := transcript.ParseTurns("no tags here"); len(turns) != 0 {
		t.Fatalf("expected no turns, got %+v", turns)
	}
}

func TestRenderPrompt(t *testing.T) {
	turns := []transcript.Turn{
		{Speaker: transcript.RoleHost, Text: "Hello."},
		{Speaker: transcript.RoleGuest, Text: "Hi."},
	}
	want := "Host: Hello.\nGuest: Hi."
	if got := transcript.RenderPrompt(turns); got != want {
		t.Fatalf("RenderPrompt = %q, want %q", got, want)
	}
}

func TestWordCount(t *testing.T) {
	turns := []transcript.Turn{
		{Speaker: transcript.RoleHost, Text: "one two three"},
		{Speaker: transcript.RoleGuest, Text: "four"},
	}
	if got := transcript.WordCount(turns); got != 4 {
		t.Fatalf("WordCount = %d, want 4", got)
	}
}
