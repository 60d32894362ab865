// Command plan runs one planning session and writes the observable events.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/tofo/internal/adapters/export"
	"github.com/okian/tofo/internal/bootstrap"
	"github.com/okian/tofo/internal/config"
	"github.com/okian/tofo/internal/domain/model"
	"github.com/okian/tofo/internal/domain/types"
	"github.com/okian/tofo/pkg/logger"
)

const filePermission = 0o644

type cliOptions struct {
	start    string
	hours    float64
	format   string
	output   string
	gapMin   float64
	sequence bool
	refresh  bool
}

func main() {
	var (
		opts cliOptions
		help bool
	)
	flag.StringVar(&opts.start, "start", "", "Window start, RFC3339 (default: now)")
	flag.Float64Var(&opts.hours, "hours", 0, "Window length in hours (default: plan_hours from config)")
	flag.StringVar(&opts.format, "format", "", "Output format: csv or json (default: export.format from config)")
	flag.StringVar(&opts.output, "output", "", "Output file (default: stdout)")
	flag.BoolVar(&opts.sequence, "sequence", false, "Write a non-overlapping observing sequence instead of every event")
	flag.Float64Var(&opts.gapMin, "gap", 0, "Minimum gap between sequenced events, in minutes")
	flag.BoolVar(&opts.refresh, "refresh", false, "Refetch every enabled catalog before planning, ignoring cache lifetimes")
	flag.BoolVar(&help, "help", false, "Show help")
	flag.Parse()

	if help {
		flag.Usage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	// stdout may carry the export, so logs go to stderr.
	if err := logger.Init(logger.WithWriter(os.Stderr), logger.WithJSON(cfg.LogJSON)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	if err := runPlan(ctx, cfg, opts, os.Stdout, logger.Get()); err != nil {
		logger.Get().Error(ctx, "planning failed", logger.Error(err))
		os.Exit(1)
	}
}

func runPlan(ctx context.Context, cfg *config.Config, opts cliOptions, stdout io.Writer, log logger.Logger) error {
	win, err := opts.window(time.Now(), cfg.PlanHours)
	if err != nil {
		return err
	}
	formatName := opts.format
	if formatName == "" {
		formatName = cfg.Export.Format
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	rt, err := bootstrap.Build(ctx, cfg, bootstrap.WithLogger(log))
	if err != nil {
		return err
	}
	defer rt.Close()

	if opts.refresh {
		for _, name := range rt.Cache.Enabled() {
			if _, err := rt.Cache.Refresh(ctx, name); err != nil {
				log.Warn(ctx, "refresh failed", logger.String("source", name), logger.Error(err))
			}
		}
	}

	plan, err := rt.Session.Plan(ctx, win)
	if err != nil {
		return err
	}
	summarize(ctx, log, plan)

	rows := plan.Events
	if opts.sequence {
		rows = rt.Session.Sequence(plan, time.Duration(opts.gapMin*float64(time.Minute)))
	}

	out := stdout
	if opts.output != "" {
		f, err := os.OpenFile(opts.output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer f.Close()
		out = f
	}
	return export.Write(out, format, rows)
}

func (o cliOptions) window(now time.Time, defaultHours float64) (model.Window, error) {
	start := now
	if o.start != "" {
		t, err := time.Parse(time.RFC3339, o.start)
		if err != nil {
			return model.Window{}, fmt.Errorf("invalid -start %q: %w", o.start, err)
		}
		start = t
	}
	hours := o.hours
	if hours == 0 {
		hours = defaultHours
	}
	if hours <= 0 {
		return model.Window{}, errors.New("-hours must be positive")
	}
	if o.gapMin < 0 {
		return model.Window{}, errors.New("-gap must not be negative")
	}
	return model.Window{Start: start, End: start.Add(time.Duration(hours * float64(time.Hour)))}, nil
}

func summarize(ctx context.Context, log logger.Logger, p *types.Plan) {
	for _, s := range p.Sources {
		log.Info(ctx, "source",
			logger.String("source", s.Source),
			logger.String("outcome", s.Outcome),
			logger.Int("targets", s.Targets),
		)
	}
	for _, w := range p.Warnings {
		log.Warn(ctx, w)
	}
	log.Info(ctx, "plan ready",
		logger.String("plan_id", p.ID),
		logger.Int("candidates", p.Candidates),
		logger.Int("events", len(p.Events)),
		logger.Int("rejected", len(p.Rejections)),
	)
}
