// Package invoker runs one action of a controller process.
//
// Each invocation provisions four temp files (input, output, error,
// control), writes the input rows with the configured codec, launches the
// controller with a composed environment that publishes the file paths,
// waits for it, and reads back what it left behind. The controller may
// switch the codec of its output and error streams, and the retention of
// the temp files, through the control file.
//
// An Invoker is safe for concurrent use: its configuration and registry are
// read-only and every call allocates its own temp files.
package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/config"
	"github.com/NeoOrigin/flint-sub000/internal/control"
	"github.com/NeoOrigin/flint-sub000/internal/environ"
	"github.com/NeoOrigin/flint-sub000/internal/invocation"
	"github.com/NeoOrigin/flint-sub000/internal/metrics"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

var (
	// ErrLaunch is returned when the controller could not be started.
	ErrLaunch = errors.New("invoker: launch failed")
	// ErrTimeout is returned when the invocation outlived its deadline or
	// its context; the process group has been killed.
	ErrTimeout = errors.New("invoker: invocation timed out")
)

// Invoker runs actions against one configured controller.
type Invoker struct {
	cfg     config.Engine
	reg     *codec.Registry
	policy  config.Policy
	timeout time.Duration

	// Verbose enables per-invocation log lines.
	Verbose bool
}

// New validates the parts of cfg the invoker depends on and returns an
// Invoker. reg should be sealed.
func New(cfg config.Engine, reg *codec.Registry) (*Invoker, error) {
	if reg == nil {
		return nil, errors.New("invoker: nil codec registry")
	}
	cfg.ApplyDefaults()
	if strings.TrimSpace(cfg.Controller) == "" {
		return nil, errors.New("invoker: controller must not be empty")
	}
	if _, err := cfg.Temp.FileMode(); err != nil {
		return nil, err
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	for _, s := range []config.Stream{cfg.Input, cfg.Output, cfg.Error, cfg.Control} {
		if _, err := reg.Lookup(s.Format); err != nil {
			return nil, fmt.Errorf("invoker: %w", err)
		}
		if _, err := s.CompressionKind(); err != nil {
			return nil, fmt.Errorf("invoker: %w", err)
		}
	}
	return &Invoker{
		cfg:     cfg,
		reg:     reg,
		policy:  config.PolicyFrom(cfg.RemoveTempFiles),
		timeout: timeout,
	}, nil
}

// Config returns the effective engine configuration.
func (iv *Invoker) Config() config.Engine { return iv.cfg }

// Kebab renders an action name as a command-line flag body: the name is
// lower-cased and every underscore or whitespace character becomes a
// hyphen, so "CREATE_OR_REPLACE" becomes "create-or-replace".
func Kebab(action string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsSpace(r) {
			return '-'
		}
		return unicode.ToLower(r)
	}, action)
}

// Command returns the argv used for action.
func (iv *Invoker) Command(action string) []string {
	argv := make([]string, 0, len(iv.cfg.ControllerArgs)+2)
	argv = append(argv, iv.cfg.Controller)
	argv = append(argv, iv.cfg.ControllerArgs...)
	return append(argv, "--"+Kebab(action))
}

// Invoke runs action with in and returns what the process produced. A
// non-zero exit is reported in the return-code channel, not as an error.
// The statuses of in.DataStatus come first in the output, followed by one
// for each unreadable output, error or control file.
func (iv *Invoker) Invoke(ctx context.Context, action string, in *invocation.Input) (*invocation.Output, error) {
	if in == nil {
		in = &invocation.Input{}
	}
	start := time.Now()
	out, err := iv.invoke(ctx, action, in)
	exit := -1
	if out != nil {
		exit = out.ExitCode()
	}
	elapsed := time.Since(start)
	metrics.RecordInvocation(iv.cfg.Name, action, exit, err, elapsed)
	if err != nil {
		log.Printf("invoke: engine=%s action=%s error=%v elapsed=%s", iv.cfg.Name, action, err, elapsed.Truncate(time.Millisecond))
		return nil, err
	}
	metrics.RecordRows(iv.cfg.Name, "input", len(in.Data))
	metrics.RecordRows(iv.cfg.Name, "output", len(out.Data))
	metrics.RecordRows(iv.cfg.Name, "error", len(out.Errors))
	if iv.Verbose {
		log.Printf("invoke: engine=%s action=%s channels=%s", iv.cfg.Name, action, channelSizes(in))
	}
	if iv.Verbose || exit != 0 {
		log.Printf("invoke: engine=%s action=%s exit=%d rows_in=%d rows_out=%d errors=%d elapsed=%s",
			iv.cfg.Name, action, exit, len(in.Data), len(out.Data), len(out.Errors), elapsed.Truncate(time.Millisecond))
	}
	return out, nil
}

// channelSizes lists the non-empty input channels as name:rows.
func channelSizes(in *invocation.Input) string {
	var parts []string
	for _, c := range in.Channels() {
		if len(c.Rows) > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", c.Name, len(c.Rows)))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

func (iv *Invoker) invoke(ctx context.Context, action string, in *invocation.Input) (*invocation.Output, error) {
	files, err := provision(iv.cfg.Temp)
	if err != nil {
		return nil, err
	}

	// Retention: configured policy, then the control-parameter channel,
	// then (for everything but the input) the control file.
	policy := iv.policy
	if ov, _ := control.Parse(in.Control, iv.cfg.ControlPrefix); ov.HasRemove {
		policy = config.PolicyFrom(ov.RemoveTempFiles)
	}

	if err := iv.writeInput(files, in); err != nil {
		files.removeAll()
		return nil, err
	}

	exit, stdout, stderr, err := iv.run(ctx, action, iv.environment(files, in))
	if err != nil {
		iv.retain(files, policy, exit)
		return nil, err
	}
	if policy.Remove(exit) {
		iv.logRemoveErr(files.remove(KindInput))
	}

	out := invocation.NewOutput(exit)
	out.Stdout, out.Stderr = stdout, stderr
	carryStatuses(out, in.DataStatus)

	ctl := files.get(KindControl).path
	ov, cerr := control.ReadFile(iv.reg, ctl, iv.cfg.Control.Format, iv.cfg.Control.Options.Settings(), iv.cfg.ControlPrefix)
	if cerr != nil {
		log.Printf("invoke: engine=%s action=%s control file: %v", iv.cfg.Name, action, cerr)
		out.AddStatus(invocation.TableStatus(invocation.StatusError, cerr.Error()))
	}
	if ov.HasRemove {
		policy = config.PolicyFrom(ov.RemoveTempFiles)
	}

	data := iv.decode(files.get(KindOutput).path, iv.cfg.Output, ov.Output)
	out.Columns, out.Data, out.Records, out.OutputStream = data.columns, data.rows, data.records, data.stream
	if data.status != nil {
		log.Printf("invoke: engine=%s action=%s output: %s", iv.cfg.Name, action, data.status.Message)
		out.AddStatus(*data.status)
	}

	errs := iv.decode(files.get(KindError).path, iv.cfg.Error, ov.Error)
	out.ErrorColumns, out.Errors, out.ErrorStream = errs.columns, errs.rows, errs.stream
	if errs.status != nil {
		log.Printf("invoke: engine=%s action=%s error stream: %s", iv.cfg.Name, action, errs.status.Message)
		out.AddStatus(*errs.status)
	}

	iv.retain(files, policy, exit)
	return out, nil
}

// carryStatuses reports the caller's data statuses ahead of anything the
// invocation adds. A row that does not parse becomes a whole-table error.
func carryStatuses(out *invocation.Output, rows table.Table) {
	for i, r := range rows {
		st, err := invocation.ParseStatus(r)
		if err != nil {
			st = invocation.TableStatus(invocation.StatusError, fmt.Sprintf("data status %d: %v", i, err))
		}
		out.AddStatus(st)
	}
}

// retain applies policy to the files still on disk.
func (iv *Invoker) retain(files *tempSet, policy config.Policy, exit int) {
	if policy.Remove(exit) {
		iv.logRemoveErr(files.removeAll())
		return
	}
	if kept := files.kept(); len(kept) > 0 && iv.Verbose {
		log.Printf("invoke: engine=%s kept temp files (policy=%q exit=%d): %s",
			iv.cfg.Name, policy, exit, strings.Join(kept, " "))
	}
}

func (iv *Invoker) logRemoveErr(err error) {
	if err != nil {
		log.Printf("invoke: engine=%s remove temp files: %v", iv.cfg.Name, err)
	}
}

// writeInput encodes the data channel into the input file, compressed as
// configured, and closes it. No header is written for an empty data
// channel.
func (iv *Invoker) writeInput(files *tempSet, in *invocation.Input) error {
	f := files.input
	files.input = nil
	defer f.Close()

	kind, _ := iv.cfg.Input.CompressionKind()
	zw, err := codec.Compress(f, kind)
	if err != nil {
		return fmt.Errorf("invoker: input: %w", err)
	}
	s := iv.cfg.Input.Options.Settings()
	if len(in.Data) == 0 {
		s.Set(codec.KeyHeader, "false")
	}
	w, err := iv.reg.NewWriter(iv.cfg.Input.Format, zw, s)
	if err != nil {
		zw.Close()
		return fmt.Errorf("invoker: input: %w", err)
	}
	if err := codec.WriteAll(w, in.Columns, in.Data); err != nil {
		w.Close()
		zw.Close()
		return fmt.Errorf("invoker: write input: %w", err)
	}
	if err := w.Close(); err != nil {
		zw.Close()
		return fmt.Errorf("invoker: flush input: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("invoker: compress input: %w", err)
	}
	return f.Close()
}

// environment composes the process environment for one call.
func (iv *Invoker) environment(files *tempSet, in *invocation.Input) []string {
	prefix := iv.cfg.ControlPrefix
	layers := []environ.Layer{
		environ.FromMap(environ.Base, "", iv.cfg.Environment),
		environ.FromTable(environ.Base, "", in.Inherited),
		environ.FromTable(environ.Control, prefix, in.Control),
		{Kind: environ.Control, Prefix: prefix, Pairs: files.params()},
		environ.FromTable(environ.Declared, "", in.Declared),
		environ.FromTable(environ.Options, "", in.Options),
		environ.FromTable(environ.TypeDefinitions, "", in.TypeDefs),
		environ.FromTable(environ.TypeOverrides, "", in.TypeOverrides),
		environ.FromTable(environ.Arguments, "", in.Arguments),
	}
	if iv.cfg.Inherit() {
		layers = append(layers, environ.ParentLayer())
	}
	return environ.Composer{Inherit: iv.cfg.Inherit()}.Compose(layers...).Environ()
}

// run starts the controller, drains its stdout and stderr, and waits for
// it. A non-zero exit is not an error; a process that could not be
// started or waited for, or that outlived ctx, is.
func (iv *Invoker) run(ctx context.Context, action string, env []string) (int, string, string, error) {
	if iv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iv.timeout)
		defer cancel()
	}

	argv := iv.Command(action)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = env
	cmd.Dir = iv.cfg.WorkDir
	configureProcess(cmd)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return -1, "", "", fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return -1, "", "", fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	if err := cmd.Start(); err != nil {
		return -1, "", "", fmt.Errorf("%w: %s: %v", ErrLaunch, argv[0], err)
	}

	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})
	drainErr := g.Wait()
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, stdout.String(), stderr.String(),
			fmt.Errorf("%w: %s --%s: %w", ErrTimeout, iv.cfg.Name, Kebab(action), ctxErr)
	}
	if drainErr != nil {
		log.Printf("invoke: engine=%s action=%s drain output: %v", iv.cfg.Name, action, drainErr)
	}

	exit := 0
	if waitErr != nil {
		var ee *exec.ExitError
		if !errors.As(waitErr, &ee) {
			return -1, stdout.String(), stderr.String(), fmt.Errorf("invoker: wait: %w", waitErr)
		}
		exit = ee.ExitCode()
	}
	return exit, stdout.String(), stderr.String(), nil
}
