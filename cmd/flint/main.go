// Command flint runs actions of a configured controller process, feeding it
// a data table and printing the table it produces.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/NeoOrigin/flint-sub000/internal/codec/builtin"
	"github.com/NeoOrigin/flint-sub000/internal/config"
	"github.com/NeoOrigin/flint-sub000/internal/datasource/file"
	"github.com/NeoOrigin/flint-sub000/internal/metrics"
	"github.com/NeoOrigin/flint-sub000/internal/metrics/datadog"
	"github.com/NeoOrigin/flint-sub000/internal/metrics/prompush"

	// register all sink backends with the storage factory.
	_ "github.com/NeoOrigin/flint-sub000/internal/storage/all"
)

const defaultConfigPath = "flint.yaml"

// pairList collects repeated KEY=VALUE flags in order.
type pairList []string

func (p *pairList) String() string { return strings.Join(*p, ",") }

func (p *pairList) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected KEY=VALUE, got %q", v)
	}
	*p = append(*p, v)
	return nil
}

// stringList collects repeated flags in order.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

// options is everything parsed from the command line.
type options struct {
	cfgPath     string
	actions     stringList
	actionsFile string
	parallel    int

	input        string
	inputFormat  string
	inputRetries int
	printFormat  string

	args, opts, control, typeDefs pairList
	aggregates                    stringList

	metricsBackend string
	pushgatewayURL string
	statsdAddr     string

	noSink   bool
	validate bool
	verbose  bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("flint", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.cfgPath, "config", "", "engine config path, JSON or YAML (env FLINT_CONFIG, default "+defaultConfigPath+")")
	fs.Var(&o.actions, "action", "action to run; repeat to run several")
	fs.StringVar(&o.actionsFile, "actions-file", "", "file listing one action per line")
	fs.IntVar(&o.parallel, "parallel", 4, "maximum concurrent invocations")
	fs.StringVar(&o.input, "input", "", "input data: path, - for stdin, or http(s) URL")
	fs.StringVar(&o.inputFormat, "input-format", "", "format of -input (default: the engine input format)")
	fs.IntVar(&o.inputRetries, "input-retries", 2, "retries when -input is a URL")
	fs.StringVar(&o.printFormat, "print-format", "", "format used to print output (default: the engine output format)")
	fs.Var(&o.args, "arg", "KEY=VALUE argument; repeatable")
	fs.Var(&o.opts, "option", "KEY=VALUE option; repeatable")
	fs.Var(&o.control, "control", "KEY=VALUE control parameter; repeatable")
	fs.Var(&o.typeDefs, "type", "KEY=VALUE type definition; repeatable")
	fs.Var(&o.aggregates, "aggregate", "KIND:COLUMN aggregate over the output; repeatable")
	fs.StringVar(&o.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (env METRICS_BACKEND)")
	fs.StringVar(&o.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	fs.StringVar(&o.statsdAddr, "statsd-addr", "", "DogStatsD address")
	fs.BoolVar(&o.noSink, "no-sink", false, "do not load output into the configured sink")
	fs.BoolVar(&o.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&o.verbose, "v", false, "enable verbose logs")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.actions = append(o.actions, fs.Args()...)

	// flag → env → default
	if o.cfgPath == "" {
		o.cfgPath = os.Getenv("FLINT_CONFIG")
	}
	if o.cfgPath == "" {
		o.cfgPath = defaultConfigPath
	}
	if o.metricsBackend == "" {
		o.metricsBackend = os.Getenv("METRICS_BACKEND")
	}
	if o.pushgatewayURL == "" {
		o.pushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
	}
	if o.parallel < 1 {
		o.parallel = 1
	}
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process exit. It returns the exit status: the
// first non-zero return code among the actions, 1 on an error, 2 on a
// usage error.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	log.SetOutput(stderr)

	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	eng, err := config.Load(o.cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	reg := builtin.MustRegistry()

	hasError := false
	for _, iss := range config.ValidateEngine(*eng, reg) {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("Configuration is invalid: %v", o.cfgPath)
		return 1
	}
	if o.validate {
		log.Printf("Configuration is valid: %v", o.cfgPath)
		return 0
	}

	if o.actionsFile != "" {
		listed, err := file.ReadList(o.actionsFile)
		if err != nil {
			fmt.Fprintf(stderr, "read actions: %v\n", err)
			return 1
		}
		o.actions = append(o.actions, listed...)
	}
	if len(o.actions) == 0 {
		fmt.Fprintln(stderr, "no action given; use -action NAME")
		return 2
	}

	if flush := setupMetrics(o, eng); flush != nil {
		defer flush()
	}

	code, err := runActions(ctx, o, eng, reg, stdout)
	if err != nil {
		log.Printf("flint: %v", err)
		return 1
	}
	return code
}

// setupMetrics installs the selected backend and returns its flush
// function, or nil when metrics stay disabled.
func setupMetrics(o *options, eng *config.Engine) func() {
	backendName := o.metricsBackend
	if backendName == "" {
		backendName = eng.Metrics.Backend
	}
	jobName := eng.Name
	if jobName == "" {
		jobName = "flint"
	}

	var b metrics.Backend
	switch strings.ToLower(backendName) {
	case "pushgateway", "prompush":
		gwURL := o.pushgatewayURL
		if gwURL == "" {
			gwURL = eng.Metrics.PushgatewayURL
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		pb, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return nil
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
		b = pb

	case "datadog", "dogstatsd":
		addr := o.statsdAddr
		if addr == "" {
			addr = eng.Metrics.StatsdAddr
		}
		db, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  eng.Metrics.Namespace,
			GlobalTags: []string{"engine:" + jobName},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return nil
		}
		log.Printf("metrics: addr=%v, backend=%v", addr, backendName)
		b = db

	case "", "none":
		if o.verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
		return nil

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
		return nil
	}

	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}
