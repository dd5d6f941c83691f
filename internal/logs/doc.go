// Package logs reads the daemon's log file for the CLI. Last serves the
// initial "show the last N lines" request and After powers follow mode,
// returning only complete lines so partially written entries never surface.
package logs
