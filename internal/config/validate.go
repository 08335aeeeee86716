package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding worth surfacing that does not block
	// execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "output.format",
// "temp.mode"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Formats resolves codec names; *codec.Registry implements it.
type Formats interface {
	Lookup(name string) (*codec.Format, error)
}

// ValidateEngine performs static validation of an engine. When formats is
// non-nil the stream formats and their settings are checked against it.
// It does not mutate e.
func ValidateEngine(e Engine, formats Formats) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(e.Controller) == "" {
		add(SeverityError, "controller", "controller must not be empty")
	}
	if strings.TrimSpace(e.Name) == "" {
		add(SeverityWarning, "name", "name is empty; it labels logs and metrics")
	}

	if m, err := e.Temp.FileMode(); err != nil {
		add(SeverityError, "temp.mode", "%v", err)
	} else if m&0o077 != 0 {
		add(SeverityWarning, "temp.mode", "temp files are readable by other users (mode %04o)", m)
	}
	if strings.ContainsAny(e.Temp.Prefix+e.Temp.Suffix, `/\`) {
		add(SeverityError, "temp", "prefix and suffix must not contain path separators")
	}

	if _, err := e.TimeoutDuration(); err != nil {
		add(SeverityError, "timeout", "%v", err)
	}

	if _, err := ParsePolicy(e.RemoveTempFiles); errors.Is(err, ErrUnknownPolicy) {
		add(SeverityWarning, "remove_temp_files",
			"unknown retention policy %q; temp files will always be removed", e.RemoveTempFiles)
	}

	if formats != nil {
		issues = append(issues, validateStream("input", e.Input, formats, true)...)
		issues = append(issues, validateStream("output", e.Output, formats, false)...)
		issues = append(issues, validateStream("error", e.Error, formats, false)...)
		issues = append(issues, validateStream("control", e.Control, formats, false)...)
	}
	if e.Control.Compression != "" {
		add(SeverityWarning, "control.compression", "the control file is always read uncompressed")
	}

	issues = append(issues, validateSink(e.Sink)...)
	issues = append(issues, validateMetrics(e.Metrics)...)
	return issues
}

func validateStream(path string, s Stream, formats Formats, write bool) []Issue {
	f, err := formats.Lookup(s.Format)
	if err != nil {
		return []Issue{{Severity: SeverityError, Path: path + ".format", Message: err.Error()}}
	}
	if write && f.NewWriter == nil {
		return []Issue{{Severity: SeverityError, Path: path + ".format",
			Message: fmt.Sprintf("format %q cannot be written", f.Name)}}
	}
	if !write && f.NewReader == nil {
		return []Issue{{Severity: SeverityError, Path: path + ".format",
			Message: fmt.Sprintf("format %q cannot be read", f.Name)}}
	}
	var issues []Issue
	if _, err := s.CompressionKind(); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Path: path + ".compression", Message: err.Error()})
	}
	settings := s.Options.Settings()
	for _, k := range settings.Keys() {
		if !f.Accepts(k) {
			issues = append(issues, Issue{Severity: SeverityError, Path: path + ".options." + k,
				Message: fmt.Sprintf("unsupported option %q for format %q", k, f.Name)})
		}
	}
	if _, err := f.ResolveSettings(settings); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Path: path + ".options", Message: err.Error()})
	}
	return issues
}

func validateSink(s Sink) []Issue {
	if !s.Enabled() {
		return nil
	}
	var issues []Issue

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "sink.kind",
			Message:  fmt.Sprintf("unknown sink kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sink.dsn",
			Message:  "sink.dsn must not be empty",
		})
	}
	if strings.TrimSpace(s.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sink.table",
			Message:  "sink.table must not be empty",
		})
	}
	if s.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sink.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch strings.ToLower(strings.TrimSpace(m.Backend)) {
	case "", "none", "pushgateway", "prompush":
		return nil
	case "datadog", "dogstatsd":
		if strings.TrimSpace(m.StatsdAddr) == "" {
			return []Issue{{Severity: SeverityWarning, Path: "metrics.statsd_addr",
				Message: "statsd_addr is empty; the DogStatsD default address will be used"}}
		}
		return nil
	}
	return []Issue{{Severity: SeverityWarning, Path: "metrics.backend",
		Message: fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend)}}
}
