// Package config defines the engine configuration: which controller to run,
// how temp files are provisioned, which codec each stream uses, the
// retention policy, the base environment and the optional sink and metrics
// backends.
//
// Engines are decoded from JSON, or from YAML when the file name ends in
// .yaml or .yml. Codec options are free-form maps read through Options.
//
// Example (trimmed):
//
//	{
//	  "name": "warehouse",
//	  "controller": "/opt/flint/bin/warehouse-ctl",
//	  "output":  { "format": "delimited", "options": { "format": "excel-like" } },
//	  "control": { "format": "prefixed" },
//	  "remove_temp_files": "on success",
//	  "timeout": "2m"
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
)

// Default values applied by ApplyDefaults.
const (
	DefaultDataFormat    = "delimited"
	DefaultControlFormat = "prefixed"
	DefaultTempPrefix    = "flint-"
	DefaultTempMode      = "0600"
)

// Engine is the top-level configuration object.
type Engine struct {
	// Name labels log lines and metrics.
	Name string `json:"name" yaml:"name"`

	// Controller is the executable invoked for every action.
	Controller string `json:"controller" yaml:"controller"`
	// ControllerArgs are passed before the action flag.
	ControllerArgs []string `json:"controller_args" yaml:"controller_args"`
	// WorkDir is the working directory of the process; empty inherits ours.
	WorkDir string `json:"work_dir" yaml:"work_dir"`

	Temp Temp `json:"temp" yaml:"temp"`

	Input   Stream `json:"input" yaml:"input"`
	Output  Stream `json:"output" yaml:"output"`
	Error   Stream `json:"error" yaml:"error"`
	Control Stream `json:"control" yaml:"control"`

	// ControlPrefix qualifies the published DATA_* keys and the control
	// file vocabulary.
	ControlPrefix string `json:"control_prefix" yaml:"control_prefix"`

	// RemoveTempFiles is the retention policy (see Policy).
	RemoveTempFiles string `json:"remove_temp_files" yaml:"remove_temp_files"`

	// InheritEnvironment passes our environment to the process. Nil means
	// true.
	InheritEnvironment *bool `json:"inherit_environment" yaml:"inherit_environment"`

	// Environment is the base layer of the composed environment.
	Environment map[string]string `json:"environment" yaml:"environment"`

	// Timeout bounds one invocation (Go duration, e.g. "90s"). Empty means
	// no limit beyond the caller's context.
	Timeout string `json:"timeout" yaml:"timeout"`

	Sink    Sink    `json:"sink" yaml:"sink"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

// Temp configures temp-file provisioning.
type Temp struct {
	Dir    string `json:"dir" yaml:"dir"`
	Prefix string `json:"prefix" yaml:"prefix"`
	Suffix string `json:"suffix" yaml:"suffix"`
	// Mode is an octal permission string such as "0600".
	Mode string `json:"mode" yaml:"mode"`
}

// Stream selects the codec for one temp file.
type Stream struct {
	Format  string  `json:"format" yaml:"format"`
	Options Options `json:"options" yaml:"options"`
	// Compression wraps the file: "gzip", "zstd" or empty for none. The
	// control file may still override it for the output and error streams.
	Compression string `json:"compression" yaml:"compression"`
}

// CompressionKind parses Compression into a codec compression kind.
func (s Stream) CompressionKind() (string, error) {
	return codec.ParseCompression(s.Compression)
}

// Sink configures the optional database sink for decoded output.
type Sink struct {
	Kind            string   `json:"kind" yaml:"kind"`
	DSN             string   `json:"dsn" yaml:"dsn"`
	Table           string   `json:"table" yaml:"table"`
	Columns         []string `json:"columns" yaml:"columns"`
	AutoCreateTable bool     `json:"auto_create_table" yaml:"auto_create_table"`
	BatchSize       int      `json:"batch_size" yaml:"batch_size"`
}

// Enabled reports whether a sink is configured.
func (s Sink) Enabled() bool { return strings.TrimSpace(s.Kind) != "" }

// Metrics selects the metrics backend.
type Metrics struct {
	Backend        string `json:"backend" yaml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	StatsdAddr     string `json:"statsd_addr" yaml:"statsd_addr"`
	Namespace      string `json:"namespace" yaml:"namespace"`
}

// ApplyDefaults fills the zero fields that have a default.
func (e *Engine) ApplyDefaults() {
	for _, s := range []*Stream{&e.Input, &e.Output, &e.Error} {
		if strings.TrimSpace(s.Format) == "" {
			s.Format = DefaultDataFormat
		}
	}
	if strings.TrimSpace(e.Control.Format) == "" {
		e.Control.Format = DefaultControlFormat
	}
	for _, s := range []*Stream{&e.Input, &e.Output, &e.Error, &e.Control} {
		if s.Options == nil {
			s.Options = Options{}
		}
	}
	if e.Temp.Prefix == "" {
		e.Temp.Prefix = DefaultTempPrefix
	}
	if e.Temp.Mode == "" {
		e.Temp.Mode = DefaultTempMode
	}
	if e.RemoveTempFiles == "" {
		e.RemoveTempFiles = string(PolicyAlways)
	}
	if e.Name == "" && e.Controller != "" {
		e.Name = strings.TrimSuffix(filepath.Base(e.Controller), filepath.Ext(e.Controller))
	}
}

// Inherit reports whether the parent environment is passed on.
func (e *Engine) Inherit() bool {
	return e.InheritEnvironment == nil || *e.InheritEnvironment
}

// TimeoutDuration parses Timeout. Empty yields zero.
func (e *Engine) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(e.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(e.Timeout))
	if err != nil {
		return 0, fmt.Errorf("config: timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: timeout must not be negative, got %s", d)
	}
	return d, nil
}

// FileMode parses Temp.Mode as an octal permission.
func (t Temp) FileMode() (os.FileMode, error) {
	m := strings.TrimSpace(t.Mode)
	if m == "" {
		m = DefaultTempMode
	}
	n, err := strconv.ParseUint(m, 8, 32)
	if err != nil || n > 0o777 {
		return 0, fmt.Errorf("config: temp.mode %q is not an octal permission", t.Mode)
	}
	return os.FileMode(n), nil
}

// Parse decodes an engine from b. YAML is used when yamlInput is set,
// JSON otherwise. Defaults are applied.
func Parse(b []byte, yamlInput bool) (*Engine, error) {
	var e Engine
	if yamlInput {
		if err := yaml.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("config: decode yaml: %w", err)
		}
	} else {
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("config: decode json: %w", err)
		}
	}
	e.ApplyDefaults()
	return &e, nil
}

// Load reads and decodes the engine file at path.
func Load(path string) (*Engine, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return Parse(b, ext == ".yaml" || ext == ".yml")
}
