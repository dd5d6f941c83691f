// Package textgen talks to the chat completion provider that writes episode
// transcripts. An episode takes three calls: one structured outline, then two
// dialogue halves, with the second half fed the first for continuity.
package textgen
