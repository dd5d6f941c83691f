// Package transcript turns raw generated dialogue into clean, ordered
// speaker turns and plans how those turns split into synthesis chunks.
//
// Normalize strips generation artifacts while preserving tagged turns,
// ParseTurns converts the tagged text into host/guest turns, and PlanChunks
// splits long turn sequences into balanced chunks whose concatenation
// reproduces the input exactly.
package transcript
