package main

import (
	"fmt"
	"os"
	"time"
)

// Progress reports pipeline progress to stderr with elapsed time, and collects
// warnings so the final report can carry them (skipped files never abort a run).
type Progress struct {
	start    time.Time
	verbose  bool
	warnings []string
}

// NewProgress creates a progress reporter.
func NewProgress(verbose bool) *Progress {
	return &Progress{start: time.Now(), verbose: verbose}
}

// Log prints a progress message with elapsed time prefix.
func (p *Progress) Log(format string, args ...any) {
	elapsed := time.Since(p.start)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "[%02d:%02d] %s\n", mins, secs, msg)
}

// Verbose prints only when verbose mode is enabled.
func (p *Progress) Verbose(format string, args ...any) {
	if p.verbose {
		p.Log(format, args...)
	}
}

// Warn logs a recoverable problem and records it for the report's warning list.
func (p *Progress) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.warnings = append(p.warnings, msg)
	p.Log("Warning: %s", msg)
}

// Warnings returns all recorded warnings in emission order.
func (p *Progress) Warnings() []string {
	return p.warnings
}
