package audio

import "time"

// Stitch joins PCM segments in order with a silence gap between consecutive
// segments. No silence is added before the first or after the last segment.
func Stitch(segments [][]byte, gap time.Duration, spec Spec) []byte {
	if len(segments) == 0 {
		return nil
	}
	if !spec.valid() {
		spec = DefaultSpec()
	}

	gapBytes := 0
	if gap > 0 {
		gapBytes = int(float64(spec.byteRate()) * gap.Seconds())
		// Align to whole frames so the gap never shifts sample boundaries.
		frame := spec.Channels * spec.BytesPerSample
		gapBytes -= gapBytes % frame
	}

	total := gapBytes * (len(segments) - 1)
	for _, segment := range segments {
		total += len(segment)
	}

	out := make([]byte, 0, total)
	for i, segment := range segments {
		if i > 0 && gapBytes > 0 {
			out = append(out, make([]byte, gapBytes)...)
		}
		out = append(out, segment...)
	}
	return out
}
