package invoker

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/config"
	"github.com/NeoOrigin/flint-sub000/internal/control"
	"github.com/NeoOrigin/flint-sub000/internal/invocation"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

// decoded is one stream read back from its temp file.
type decoded struct {
	columns []string
	rows    table.Table
	records []codec.Record
	status  *invocation.CellStatus
	stream  invocation.Stream
}

// effective merges the configured stream with the control-file override.
// Configured options are dropped when the process switches to another
// format, since they were written for the configured one. The configured
// compression holds unless the control file sets its own.
func (iv *Invoker) effective(cfg config.Stream, ov control.StreamOverride) (string, codec.Settings, string) {
	format := cfg.Format
	settings := cfg.Options.Settings()
	if ov.Format != "" {
		want, err := iv.reg.Canonical(ov.Format)
		have, _ := iv.reg.Canonical(cfg.Format)
		if err != nil || want != have {
			settings = codec.Settings{}
		}
		format = ov.Format
	}
	if len(ov.Settings) > 0 {
		settings = settings.With(ov.Settings)
	}
	compression, _ := cfg.CompressionKind()
	if ov.CompressionSet {
		compression = ov.Compression
	}
	return format, settings, compression
}

// decode reads the stream at path. Problems are reported in the status
// rather than returned: a missing file, an unusable codec or a row that
// fails to parse yields an empty channel and a whole-table error naming
// the problem. An empty file is no data.
func (iv *Invoker) decode(path string, cfg config.Stream, ov control.StreamOverride) decoded {
	format, settings, compression := iv.effective(cfg, ov)
	d := decoded{stream: invocation.Stream{Format: format, Compression: compression, Path: path}}
	if name, err := iv.reg.Canonical(format); err == nil {
		d.stream.Format = name
	}
	fail := func(err error) decoded {
		s := invocation.TableStatus(invocation.StatusError, err.Error())
		d.status = &s
		return d
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(err)
	}
	defer f.Close()
	if fi, err := f.Stat(); err == nil && fi.Size() == 0 {
		return d
	}

	src, err := codec.Decompress(f, compression)
	if err != nil {
		return fail(err)
	}
	defer src.Close()

	rd, err := iv.reg.NewReader(format, src, settings)
	if err != nil {
		return fail(err)
	}
	defer rd.Close()

	for n := 0; ; n++ {
		row, rec, err := codec.NextRecord(rd)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			d.rows, d.records = nil, nil
			return fail(fmt.Errorf("%s: %w", d.stream.Format, &codec.RowError{Row: n, Err: err}))
		}
		d.rows = append(d.rows, row)
		d.records = append(d.records, rec)
	}
	d.columns = rd.Columns()
	return d
}
