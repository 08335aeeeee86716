// Package control reads the overrides an invoked process may leave in its
// control file: the format, codec settings and compression of its output
// and error streams, and the temp-file retention policy.
package control

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

// Stream names used in control keys.
const (
	StreamOutput = "OUTPUT"
	StreamError  = "ERROR"
)

// KeyRemoveTempFiles carries the retention policy.
const KeyRemoveTempFiles = "REMOVE_TEMP_FILES"

// FormatKey returns the control key naming the format of stream.
func FormatKey(stream string) string { return "DATA_" + stream + "_FORMAT" }

// SettingKey returns the control key carrying one codec setting of stream.
func SettingKey(stream, setting string) string {
	return FormatKey(stream) + "__" + strings.ToUpper(setting)
}

// CompressionKey returns the control key carrying the compression of
// stream.
func CompressionKey(stream string) string { return "DATA_" + stream + "_COMPRESSION" }

// StreamOverride is what the process declared about one stream. Zero
// fields mean "keep the configured value".
type StreamOverride struct {
	Format      string
	Settings    codec.Settings
	Compression string
	// CompressionSet distinguishes an explicit "none" from no override.
	CompressionSet bool
}

// Empty reports whether o changes nothing.
func (o StreamOverride) Empty() bool {
	return o.Format == "" && len(o.Settings) == 0 && !o.CompressionSet
}

// Overrides is the parsed control file.
type Overrides struct {
	Output StreamOverride
	Error  StreamOverride
	// RemoveTempFiles is the retention policy text when HasRemove is set.
	RemoveTempFiles string
	HasRemove       bool
}

// Stream returns the override for "OUTPUT" or "ERROR".
func (o *Overrides) Stream(name string) *StreamOverride {
	if strings.EqualFold(name, StreamError) {
		return &o.Error
	}
	return &o.Output
}

// Parse scans [name, value] rows for control keys. Keys are matched without
// regard to case, with or without prefix. Unrecognized keys are ignored.
// Invalid values are skipped and reported in the returned error; the
// overrides parsed from other rows are still returned.
func Parse(rows table.Table, prefix string) (Overrides, error) {
	var (
		o    Overrides
		errs []error
	)
	for _, p := range rows.Pairs() {
		key := strings.ToUpper(strings.TrimSpace(p.Name))
		if up := strings.ToUpper(prefix); up != "" && strings.HasPrefix(key, up) {
			key = key[len(up):]
		}
		value := strings.TrimSpace(p.Value)

		if key == KeyRemoveTempFiles {
			o.RemoveTempFiles, o.HasRemove = value, true
			continue
		}
		for _, stream := range []string{StreamOutput, StreamError} {
			so := o.Stream(stream)
			switch {
			case key == FormatKey(stream):
				so.Format = value
			case key == CompressionKey(stream):
				c, err := codec.ParseCompression(value)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
					continue
				}
				so.Compression, so.CompressionSet = c, true
			case strings.HasPrefix(key, FormatKey(stream)+"__"):
				setting := key[len(FormatKey(stream))+2:]
				if !codec.Known(setting) {
					continue
				}
				if so.Settings == nil {
					so.Settings = codec.Settings{}
				}
				so.Settings.Set(setting, p.Value)
			}
		}
	}
	return o, errors.Join(errs...)
}

// ReadFile decodes the control file at path with the named format and
// parses it. A missing or empty file yields no overrides and no error.
func ReadFile(reg *codec.Registry, path, format string, s codec.Settings, prefix string) (Overrides, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Overrides{}, nil
	}
	if err != nil {
		return Overrides{}, err
	}
	defer f.Close()

	rd, err := reg.NewReader(format, f, s)
	if err != nil {
		return Overrides{}, fmt.Errorf("control: %w", err)
	}
	defer rd.Close()
	rows, err := codec.ReadAll(rd)
	if err != nil {
		return Overrides{}, fmt.Errorf("control: read %s: %w", path, err)
	}
	o, err := Parse(rows, prefix)
	if err != nil {
		return o, fmt.Errorf("control: %w", err)
	}
	return o, nil
}
