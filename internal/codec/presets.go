package codec

import (
	"fmt"
	"sort"
	"strings"
)

// Preset names accepted by the "format" settings key.
const (
	PresetDefault      = "default"
	PresetStrictRFC    = "strict-rfc"
	PresetTabDelimited = "tab-delimited"
	PresetExcelLike    = "excel-like"
)

var presets = map[string]Settings{
	PresetDefault: {
		KeyDelimiter: ",",
		KeyQuote:     `"`,
		KeySeparator: `\n`,
		KeyHeader:    "true",
		KeyTrim:      "false",
	},
	PresetStrictRFC: {
		KeyDelimiter: ",",
		KeyQuote:     `"`,
		KeySeparator: `\r\n`,
		KeyHeader:    "true",
		KeyTrim:      "false",
	},
	PresetTabDelimited: {
		KeyDelimiter: `\t`,
		KeyQuote:     `"`,
		KeySeparator: `\n`,
		KeyHeader:    "true",
		KeyTrim:      "false",
	},
	PresetExcelLike: {
		KeyDelimiter: ",",
		KeyQuote:     `"`,
		KeySeparator: `\r\n`,
		KeyHeader:    "true",
		KeyTrim:      "true",
		KeyBOM:       "true",
	},
}

var presetAliases = map[string]string{
	"rfc4180": PresetStrictRFC,
	"strict":  PresetStrictRFC,
	"tdf":     PresetTabDelimited,
	"tab":     PresetTabDelimited,
	"tsv":     PresetTabDelimited,
	"excel":   PresetExcelLike,
}

// Presets lists the preset names.
func Presets() []string {
	out := make([]string, 0, len(presets))
	for k := range presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve expands the "format" preset of s (default when unset) and applies
// the explicit keys of s on top of it. An unknown preset name is a
// configuration error.
func Resolve(s Settings) (Settings, error) {
	name := strings.ToLower(strings.TrimSpace(s.String(KeyFormat, PresetDefault)))
	if name == "" {
		name = PresetDefault
	}
	if a, ok := presetAliases[name]; ok {
		name = a
	}
	base, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	out := base.With(s)
	out[KeyFormat] = name
	return out, nil
}
