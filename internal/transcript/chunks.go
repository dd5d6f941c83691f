package transcript

import "math"

// DefaultChunkThreshold is the turn count at or below which no chunking happens.
const DefaultChunkThreshold = 10

// DefaultChunkTarget is the target number of turns per chunk.
const DefaultChunkTarget = 15

// PlanChunks splits turns into balanced chunks of roughly target size.
// Sequences of threshold turns or fewer come back as a single chunk.
// Otherwise k = max(1, round(N/target)) chunks are produced, rounding half
// to even, with sizes differing by at most one; concatenating the chunks in
// order reproduces the input exactly.
func PlanChunks(turns []Turn, threshold, target int) [][]Turn {
	if len(turns) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultChunkThreshold
	}
	if target <= 0 {
		target = DefaultChunkTarget
	}
	if len(turns) <= threshold {
		return [][]Turn{turns}
	}

	n := len(turns)
	k := int(math.RoundToEven(float64(n) / float64(target)))
	if k < 1 {
		k = 1
	}
	base := n / k
	remainder := n % k

	chunks := make([][]Turn, 0, k)
	offset := 0
	for i := 0; i < k; i++ {
		size := base
		if i < remainder {
			size++
		}
		chunks = append(chunks, turns[offset:offset+size])
		offset += size
	}
	return chunks
}
