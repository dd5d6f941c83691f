// Package speech synthesizes dialogue audio through the Gemini multi-speaker
// TTS API. Each call converts one chunk of "Host:/Guest:" dialogue into raw
// 24 kHz mono PCM under a hard per-attempt deadline.
package speech
