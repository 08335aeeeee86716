package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NeoOrigin/flint-sub000/internal/aggregate"
	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/config"
	"github.com/NeoOrigin/flint-sub000/internal/datasource"
	"github.com/NeoOrigin/flint-sub000/internal/datasource/httpds"
	"github.com/NeoOrigin/flint-sub000/internal/invocation"
	"github.com/NeoOrigin/flint-sub000/internal/invoker"
	"github.com/NeoOrigin/flint-sub000/internal/storage"
)

// runActions invokes every action concurrently, then prints the outputs in
// the order the actions were given.
func runActions(ctx context.Context, o *options, eng *config.Engine, reg *codec.Registry, stdout io.Writer) (int, error) {
	iv, err := invoker.New(*eng, reg)
	if err != nil {
		return 0, err
	}
	iv.Verbose = o.verbose

	base, err := buildInput(ctx, o, eng, reg)
	if err != nil {
		return 0, err
	}
	aggs, err := parseAggregates(o.aggregates)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	outs := make([]*invocation.Output, len(o.actions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallel)
	for i, action := range o.actions {
		g.Go(func() error {
			in := *base
			out, err := iv.Invoke(gctx, action, &in)
			if err != nil {
				return fmt.Errorf("%s: %w", action, err)
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if o.verbose {
		log.Printf("actions: n=%d parallel=%d elapsed=%s", len(o.actions), o.parallel, time.Since(start).Truncate(time.Millisecond))
	}

	code := 0
	for i, out := range outs {
		action := o.actions[i]
		for _, s := range out.Statuses {
			log.Printf("status: action=%s %s", action, s)
		}
		if out.Stderr != "" && o.verbose {
			log.Printf("stderr: action=%s\n%s", action, strings.TrimRight(out.Stderr, "\n"))
		}
		if err := printOutput(o, eng, reg, out, stdout); err != nil {
			return 0, fmt.Errorf("%s: print: %w", action, err)
		}
		reportAggregates(action, aggs, out)
		if eng.Sink.Enabled() && !o.noSink {
			if err := sink(ctx, eng, out); err != nil {
				return 0, fmt.Errorf("%s: %w", action, err)
			}
		}
		if rc := out.ExitCode(); code == 0 && rc != 0 {
			code = rc
		}
	}
	return code, nil
}

// buildInput reads -input into the data channel and adds the KEY=VALUE
// parameters. Every invocation receives a shallow copy; the invoker does
// not modify its input.
func buildInput(ctx context.Context, o *options, eng *config.Engine, reg *codec.Registry) (*invocation.Input, error) {
	in := &invocation.Input{}
	for _, p := range []struct {
		ch    invocation.Channel
		pairs pairList
	}{
		{invocation.ChannelArguments, o.args},
		{invocation.ChannelOptions, o.opts},
		{invocation.ChannelControl, o.control},
		{invocation.ChannelTypeDefs, o.typeDefs},
	} {
		for _, kv := range p.pairs {
			k, v, _ := strings.Cut(kv, "=")
			if err := in.SetParam(p.ch, k, v); err != nil {
				return nil, err
			}
		}
	}
	if o.input == "" {
		return in, nil
	}

	format := o.inputFormat
	settings := codec.Settings{}
	if format == "" {
		format = eng.Input.Format
		settings = eng.Input.Options.Settings()
	}
	client := httpds.NewClient(httpds.Config{MaxRetries: o.inputRetries})
	rc, err := datasource.For(o.input, client).Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	defer rc.Close()

	rd, err := reg.NewReader(format, rc, settings)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	defer rd.Close()
	rows, err := codec.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("input %s: row %d: %w", o.input, len(rows), err)
	}
	in.Columns = rd.Columns()
	in.Data = rows
	if o.verbose {
		log.Printf("input: source=%s format=%s rows=%d columns=%d", o.input, format, len(rows), len(in.Columns))
	}
	return in, nil
}

func printOutput(o *options, eng *config.Engine, reg *codec.Registry, out *invocation.Output, w io.Writer) error {
	if len(out.Data) == 0 && len(out.Columns) == 0 {
		return nil
	}
	format := o.printFormat
	settings := codec.Settings{}
	if format == "" {
		format = eng.Output.Format
		settings = eng.Output.Options.Settings()
	}
	cw, err := reg.NewWriter(format, w, settings)
	if err != nil {
		return err
	}
	if err := codec.WriteAll(cw, out.Columns, out.Data); err != nil {
		cw.Close()
		return err
	}
	return cw.Close()
}

// aggregateSpec is one parsed -aggregate KIND:COLUMN flag.
type aggregateSpec struct {
	kind   string
	column string
}

func parseAggregates(specs []string) ([]aggregateSpec, error) {
	out := make([]aggregateSpec, 0, len(specs))
	for _, s := range specs {
		kind, column, ok := strings.Cut(s, ":")
		if !ok || kind == "" || column == "" {
			return nil, fmt.Errorf("aggregate %q: expected KIND:COLUMN", s)
		}
		if _, err := aggregate.New(kind, column); err != nil {
			return nil, err
		}
		out = append(out, aggregateSpec{kind: kind, column: column})
	}
	return out, nil
}

// reportAggregates logs one line per aggregate and one per diagnostic.
func reportAggregates(action string, specs []aggregateSpec, out *invocation.Output) {
	for _, spec := range specs {
		if out.ColumnIndex(spec.column) < 0 {
			log.Printf("aggregate: action=%s kind=%s column=%s: %v", action, spec.kind, spec.column, codec.ErrColumnNotFound)
			continue
		}
		agg, err := aggregate.New(spec.kind, spec.column, aggregate.NullIgnored(true))
		if err != nil {
			log.Printf("aggregate: %v", err)
			continue
		}
		rep := aggregate.Column(agg, aggregate.Values(out.Records, spec.column))
		result := "NULL"
		if rep.Result != nil {
			result = *rep.Result
		}
		log.Printf("aggregate: action=%s kind=%s column=%s accepted=%d result=%s", action, spec.kind, spec.column, rep.Accepted, result)
		for _, d := range rep.Diagnostics {
			log.Printf("aggregate: action=%s column=%s %s", action, spec.column, d)
		}
	}
}

func sink(ctx context.Context, eng *config.Engine, out *invocation.Output) error {
	cfg := storage.FromSink(eng.Name, eng.Sink)
	repo, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	_, err = storage.LoadOutput(ctx, repo, cfg, out)
	if errors.Is(err, codec.ErrColumnNotFound) {
		return fmt.Errorf("sink columns do not match output: %w", err)
	}
	return err
}
