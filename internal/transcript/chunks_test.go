package transcript_test

import (
	"fmt"
	"testing"

	"gistcast/internal/transcript"
)

func makeTurns(n int) []transcript.Turn {
	turns := make([]transcript.Turn, n)
	for i := range turns {
		role := transcript.RoleHost
		if i%2 == 1 {
			role = transcript.RoleGuest
		}
		turns[i] = transcript.Turn{Speaker: role, Text: fmt.Sprintf("turn %d", i)}
	}
	return turns
}

func TestPlanChunksSingleChunkUnderThreshold(t *testing.T) {
	turns := makeTurns(10)
	chunks := transcript.PlanChunks(turns, 10, 15)
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
	if len(chunks[0]) != 10 {
		t.Fatalf("expected all turns in one chunk, got %d", len(chunks[0]))
	}
}

func TestPlanChunksBalancedSplit(t *testing.T) {
	// 40 turns at target 15 rounds to 3 chunks: 14, 13, 13.
	chunks := transcript.PlanChunks(makeTurns(40), 10, 15)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	sizes := []int{len(chunks[0]), len(chunks[1]), len(chunks[2])}
	if sizes[0] != 14 || sizes[1] != 13 || sizes[2] != 13 {
		t.Fatalf("unexpected chunk sizes: %v", sizes)
	}
}

func TestPlanChunksRoundsHalfToEven(t *testing.T) {
	// 75 turns at target 30 is exactly 2.5 chunks; half rounds to even.
	chunks := transcript.PlanChunks(makeTurns(75), 10, 30)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 38 || len(chunks[1]) != 37 {
		t.Fatalf("unexpected chunk sizes: %d, %d", len(chunks[0]), len(chunks[1]))
	}
}

func TestPlanChunksProperties(t *testing.T) {
	for n := 1; n <= 120; n++ {
		for _, target := range []int{5, 10, 15, 30} {
			turns := makeTurns(n)
			chunks := transcript.PlanChunks(turns, 10, target)

			total := 0
			minSize, maxSize := n+1, 0
			var rebuilt []transcript.Turn
			for _, chunk := range chunks {
				if len(chunk) == 0 {
					t.Fatalf("n=%d target=%d: empty chunk", n, target)
				}
				total += len(chunk)
				if len(chunk) < minSize {
					minSize = len(chunk)
				}
				if len(chunk) > maxSize {
					maxSize = len(chunk)
				}
				rebuilt = append(rebuilt, chunk...)
			}
			if total != n {
				t.Fatalf("n=%d target=%d: chunk sizes sum to %d", n, target, total)
			}
			if maxSize-minSize > 1 {
				t.Fatalf("n=%d target=%d: sizes differ by more than 1 (min=%d max=%d)", n, target, minSize, maxSize)
			}
			for i := range rebuilt {
				if rebuilt[i] != turns[i] {
					t.Fatalf("n=%d target=%d: concatenation diverges at %d", n, target, i)
				}
			}
		}
	}
}

func TestPlanChunksEmptyInput(t *testing.T) {
	if chunks := transcript.PlanChunks(nil, 10, 15); chunks != nil {
		t.Fatalf("expected nil for empty input, got %v", chunks)
	}
}
