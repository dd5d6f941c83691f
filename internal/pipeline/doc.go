// Package pipeline orchestrates one episode generation run: outline, two
// dialogue halves, transcript normalization, chunked speech synthesis, and
// final audio assembly. The whole run sits behind a coarse bounded retry on
// top of the per-call retries inside the provider clients.
package pipeline
