package main

import (
	"bytes"
	"strings"
	"testing"

	"gistcast/internal/preflight"
)

func TestStatusPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	printer := newStatusPrinter(&buf)

	printer.section("Daemon")
	printer.line("Daemon", stateOK, "running (3 workers)")
	out := buf.String()

	if !strings.Contains(out, "== Daemon ==") {
		t.Fatalf("missing section header: %q", out)
	}
	if !strings.Contains(out, "Daemon:") || !strings.Contains(out, "[OK] running (3 workers)") {
		t.Fatalf("unexpected status line: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("buffer output must not carry ANSI codes: %q", out)
	}
}

func TestStatusPrinterColorizedLine(t *testing.T) {
	var buf bytes.Buffer
	printer := &statusPrinter{w: &buf, color: true}

	line := printer.formatLine("FFmpeg", stateFail, "binary not found")
	if !strings.HasPrefix(line, colorRed) || !strings.HasSuffix(line, colorReset) {
		t.Fatalf("expected red wrapping, got %q", line)
	}
}

func TestStatusPrinterCheckMapsPassed(t *testing.T) {
	var buf bytes.Buffer
	printer := newStatusPrinter(&buf)

	printer.check(preflight.Result{Name: "FFmpeg", Passed: true, Detail: "/usr/bin/ffmpeg"})
	printer.check(preflight.Result{Name: "Disk space", Passed: false, Detail: "only 12 MiB free"})
	out := buf.String()

	if !strings.Contains(out, "[OK] /usr/bin/ffmpeg") {
		t.Fatalf("passed check not rendered OK: %q", out)
	}
	if !strings.Contains(out, "[ERROR] only 12 MiB free") {
		t.Fatalf("failed check not rendered ERROR: %q", out)
	}
}

func TestDisplayStatus(t *testing.T) {
	if got := displayStatus("queued"); got != "Queued" {
		t.Fatalf("displayStatus(queued) = %q", got)
	}
	if got := displayStatus("processing"); got != "Processing" {
		t.Fatalf("displayStatus(processing) = %q", got)
	}
}

func TestRenderTableIncludesHeadersAndRows(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Status"},
		[][]string{{"1", "Queued"}, {"2", "Failed"}},
		[]columnAlignment{alignRight, alignLeft},
	)
	for _, want := range []string{"ID", "Status", "Queued", "Failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}
