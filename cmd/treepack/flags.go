package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"k8s.io/klog/v2"

	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/project"
	"github.com/piwi3910/TreePack/internal/storage"
	"github.com/piwi3910/TreePack/internal/submission"
)

// commonFlags are shared by every command that reads a submission.
type commonFlags struct {
	configPath string
	in         string
	out        string
	groups     string
	decimals   int
	lenient    bool
	timeout    string
	summary    string
	history    bool
	region     string
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	klog.InitFlags(fs)
	return fs
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", project.DefaultConfigPath(), "run configuration file")
	fs.StringVar(&c.in, "in", "", "input submission (.csv or .xlsx, local or s3://bucket/key)")
	fs.StringVar(&c.out, "out", "", "output path")
	fs.StringVar(&c.groups, "groups", "", "groups to process, e.g. 1-20,35 (default all)")
	fs.IntVar(&c.decimals, "decimals", 0, "decimals written to the output")
	fs.BoolVar(&c.lenient, "lenient", false, "accept values without the s prefix")
	fs.StringVar(&c.timeout, "timeout", "", "wall-clock budget, e.g. 30m")
	fs.StringVar(&c.summary, "summary", "", "write a JSON run summary to this path")
	fs.BoolVar(&c.history, "history", false, "archive the run summary under the config directory")
	fs.StringVar(&c.region, "region", "", "AWS region for s3:// paths")
}

// loadConfig reads the config file and applies the common flags that were
// set explicitly.
func (c *commonFlags) loadConfig(fs *flag.FlagSet) (model.RunConfig, error) {
	cfg, err := project.LoadConfig(c.configPath)
	if err != nil {
		return model.RunConfig{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "groups":
			cfg.Groups = c.groups
		case "decimals":
			cfg.Decimals = c.decimals
		case "timeout":
			cfg.Timeout = c.timeout
		case "region":
			cfg.S3Region = c.region
		}
	})
	return cfg, cfg.Validate()
}

func (c *commonFlags) decodeOptions() submission.DecodeOptions {
	return submission.DecodeOptions{Lenient: c.lenient}
}

// refineFlags override the refiner, polish and runner settings.
type refineFlags struct {
	iterations  int
	restarts    int
	moveRadius  float64
	angleRadius float64
	swapProb    float64
	scaleProb   float64
	scaleRadius float64
	centroidP   float64
	centerP     float64
	edgeP       float64
	compress    int
	compressF   float64
	tempStart   float64
	tempEnd     float64
	schedule    string
	gravity     float64
	logEvery    int
	seed        int64
	workers     int
	polish      int
}

func (r *refineFlags) register(fs *flag.FlagSet) {
	d := model.DefaultRefineSettings()
	fs.IntVar(&r.iterations, "iterations", d.Iterations, "annealing steps per restart")
	fs.IntVar(&r.restarts, "restarts", d.Restarts, "annealing restarts per group")
	fs.Float64Var(&r.moveRadius, "move-radius", d.MoveRadius, "max translation per move at full temperature")
	fs.Float64Var(&r.angleRadius, "angle-radius", d.AngleRadius, "max rotation per move in degrees")
	fs.Float64Var(&r.swapProb, "swap-prob", d.SwapProb, "probability of a swap move")
	fs.Float64Var(&r.scaleProb, "scale-prob", d.ScaleProb, "probability of a scale move")
	fs.Float64Var(&r.scaleRadius, "scale-radius", d.ScaleRadius, "max relative shrink per scale move")
	fs.Float64Var(&r.centroidP, "centroid-prob", d.CentroidProb, "probability of a step towards the centroid")
	fs.Float64Var(&r.centerP, "center-prob", d.CenterProb, "probability of a step towards the envelope centre")
	fs.Float64Var(&r.edgeP, "edge-prob", d.EdgeProb, "probability of an inward step for a piece on the envelope")
	fs.IntVar(&r.compress, "compress-steps", d.CompressSteps, "shrink-and-relax steps before each restart, 0 disables")
	fs.Float64Var(&r.compressF, "compress-factor", d.CompressFactor, "shrink factor per compress step")
	fs.Float64Var(&r.tempStart, "temp-start", d.TempStart, "initial temperature")
	fs.Float64Var(&r.tempEnd, "temp-end", d.TempEnd, "final temperature")
	fs.StringVar(&r.schedule, "schedule", string(d.Schedule), "temperature schedule: linear or geometric")
	fs.Float64Var(&r.gravity, "gravity", d.GravityWeight, "weight of the compactness term, 0 disables")
	fs.IntVar(&r.logEvery, "log-every", d.LogEvery, "steps between progress lines at -v=2")
	fs.Int64Var(&r.seed, "seed", 42, "base random seed, group N uses seed+N")
	fs.IntVar(&r.workers, "workers", 0, "parallel groups, 0 = one per CPU")
	fs.IntVar(&r.polish, "polish", 0, "coordinate-descent passes after annealing")
}

func (r *refineFlags) apply(fs *flag.FlagSet, cfg *model.RunConfig) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "iterations":
			cfg.Refine.Iterations = r.iterations
		case "restarts":
			cfg.Refine.Restarts = r.restarts
		case "move-radius":
			cfg.Refine.MoveRadius = r.moveRadius
		case "angle-radius":
			cfg.Refine.AngleRadius = r.angleRadius
		case "swap-prob":
			cfg.Refine.SwapProb = r.swapProb
		case "scale-prob":
			cfg.Refine.ScaleProb = r.scaleProb
		case "scale-radius":
			cfg.Refine.ScaleRadius = r.scaleRadius
		case "centroid-prob":
			cfg.Refine.CentroidProb = r.centroidP
		case "center-prob":
			cfg.Refine.CenterProb = r.centerP
		case "edge-prob":
			cfg.Refine.EdgeProb = r.edgeP
		case "compress-steps":
			cfg.Refine.CompressSteps = r.compress
		case "compress-factor":
			cfg.Refine.CompressFactor = r.compressF
		case "temp-start":
			cfg.Refine.TempStart = r.tempStart
		case "temp-end":
			cfg.Refine.TempEnd = r.tempEnd
		case "schedule":
			cfg.Refine.Schedule = model.Schedule(r.schedule)
		case "gravity":
			cfg.Refine.GravityWeight = r.gravity
		case "log-every":
			cfg.Refine.LogEvery = r.logEvery
		case "seed":
			cfg.Seed = r.seed
		case "workers":
			cfg.Workers = r.workers
		case "polish":
			cfg.Polish.Passes = r.polish
		}
	})
}

// runContext is cancelled on SIGINT/SIGTERM and after the configured timeout.
func runContext(cfg model.RunConfig) (context.Context, context.CancelFunc, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if cfg.Timeout == "" {
		return ctx, stop, nil
	}
	d, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("%w: bad timeout %q", model.ErrInvalidSettings, cfg.Timeout)
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	return tctx, func() {
		cancel()
		stop()
	}, nil
}

// splitInputs splits a comma-separated -in value, expands local globs in
// natural order and lists s3:// prefixes.
func splitInputs(ctx context.Context, store *storage.Store, in string) ([]string, error) {
	var patterns []string
	for _, p := range strings.Split(in, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no input given, use -in")
	}
	paths, err := submission.ExpandInputs(patterns)
	if err != nil {
		return nil, err
	}
	return store.Expand(ctx, paths)
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("missing required flag -%s", name)
	}
	return nil
}

// finishSummary stamps s, writes it where asked and archives it if enabled.
func finishSummary(ctx context.Context, store *storage.Store, c *commonFlags, s project.RunSummary) error {
	s.Finish()
	klog.Infof("%s finished in %s: %.12f -> %.12f", s.Command, s.Elapsed, s.BaseScore, s.FinalScore)
	if c.history {
		if err := project.WriteSummary(project.HistoryPath(project.DefaultConfigDir(), s), s); err != nil {
			return err
		}
	}
	if c.summary == "" {
		return nil
	}
	if !storage.IsRemote(c.summary) {
		return project.WriteSummary(c.summary, s)
	}
	data, err := project.EncodeSummary(s)
	if err != nil {
		return err
	}
	return store.Write(ctx, c.summary, data)
}
