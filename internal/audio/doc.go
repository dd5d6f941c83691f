// Package audio assembles synthesized PCM segments into a finished episode.
//
// Segments arrive as raw signed 16-bit little-endian mono PCM. Stitch joins
// them in order with short silence gaps, WriteWAV frames PCM for external
// tools, and EncodeMP3 shells out to ffmpeg for the final artifact.
package audio
