package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"k8s.io/klog/v2"

	"github.com/piwi3910/TreePack/internal/engine"
	"github.com/piwi3910/TreePack/internal/export"
	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/project"
	"github.com/piwi3910/TreePack/internal/score"
	"github.com/piwi3910/TreePack/internal/server"
	"github.com/piwi3910/TreePack/internal/storage"
	"github.com/piwi3910/TreePack/internal/submission"
)

func runScore(args []string) error {
	fs := newFlagSet("score")
	var c commonFlags
	c.register(fs)
	complete := fs.Bool("complete", false, "require every group 1..200")
	perGroup := fs.String("per-group", "", "write per-group scores of the first input as CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("in", c.in); err != nil {
		return err
	}
	cfg, err := c.loadConfig(fs)
	if err != nil {
		return err
	}
	ctx, cancel, err := runContext(cfg)
	if err != nil {
		return err
	}
	defer cancel()

	store := storage.NewStore(cfg.S3Region)
	paths, err := splitInputs(ctx, store, c.in)
	if err != nil {
		return err
	}
	for i, p := range paths {
		sub, err := store.LoadSubmission(ctx, p, c.decodeOptions())
		if err != nil {
			return err
		}
		var report score.Report
		if *complete {
			report, err = score.EvaluateComplete(sub, model.MaxGroupSize)
		} else {
			report, err = score.Evaluate(sub)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		fmt.Printf("%s\t%.12f\n", p, report.Total)

		if i == 0 && *perGroup != "" {
			if err := store.Write(ctx, *perGroup, perGroupCSV(sub, report)); err != nil {
				return err
			}
		}
	}
	return nil
}

// perGroupCSV lists n, side and score for every group.
func perGroupCSV(sub model.Submission, report score.Report) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"n", "side", "score"})
	for _, n := range sub.Sizes() {
		_, env := score.GroupScore(sub[n])
		w.Write([]string{
			strconv.Itoa(n),
			strconv.FormatFloat(score.Side(env), 'f', 12, 64),
			strconv.FormatFloat(report.Groups[n], 'f', 12, 64),
		})
	}
	w.Flush()
	return buf.Bytes()
}

func runRefine(args []string) error {
	fs := newFlagSet("refine")
	var c commonFlags
	var r refineFlags
	c.register(fs)
	r.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("in", c.in); err != nil {
		return err
	}
	if err := requireFlag("out", c.out); err != nil {
		return err
	}
	cfg, err := c.loadConfig(fs)
	if err != nil {
		return err
	}
	r.apply(fs, &cfg)
	ctx, cancel, err := runContext(cfg)
	if err != nil {
		return err
	}
	defer cancel()

	store := storage.NewStore(cfg.S3Region)
	sub, err := store.LoadSubmission(ctx, c.in, c.decodeOptions())
	if err != nil {
		return err
	}
	summary := project.NewRunSummary("refine", []string{c.in})

	out, report, err := engine.NewRunner(cfg).RefineSubmission(ctx, sub)
	if err != nil {
		return err
	}
	klog.Infof("refined %d groups, %d rounding fallbacks", len(report.Refined), len(report.Fallbacks))

	// The run budget may be spent; writing the result must not be.
	wctx := context.WithoutCancel(ctx)
	if err := store.SaveSubmission(wctx, c.out, out, cfg.Decimals); err != nil {
		return err
	}

	summary.Output = c.out
	summary.BaseScore = report.BaseScore
	summary.FinalScore = report.FinalScore
	summary.OfficialScore = officialScore(wctx, store, c.out)
	summary.Refined = report.Refined
	summary.Fallbacks = report.Fallbacks
	return finishSummary(wctx, store, &c, summary)
}

func runCascade(args []string) error {
	fs := newFlagSet("cascade")
	var c commonFlags
	c.register(fs)
	beamWidth := fs.Int("beam-width", 1, "candidates kept per level, 1 is greedy")
	skipBackward := fs.Bool("skip-backward", false, "skip the backward prefix pass")
	skipCascade := fs.Bool("skip-cascade", false, "skip the deletion cascade")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("in", c.in); err != nil {
		return err
	}
	if err := requireFlag("out", c.out); err != nil {
		return err
	}
	cfg, err := c.loadConfig(fs)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "beam-width":
			cfg.Cascade.BeamWidth = *beamWidth
		case "skip-backward":
			cfg.Cascade.SkipBackward = *skipBackward
		case "skip-cascade":
			cfg.Cascade.SkipCascade = *skipCascade
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel, err := runContext(cfg)
	if err != nil {
		return err
	}
	defer cancel()

	store := storage.NewStore(cfg.S3Region)
	paths, err := splitInputs(ctx, store, c.in)
	if err != nil {
		return err
	}
	subs := make([]model.Submission, 0, len(paths))
	for _, p := range paths {
		sub, err := store.LoadSubmission(ctx, p, c.decodeOptions())
		if err != nil {
			return err
		}
		subs = append(subs, sub)
	}
	summary := project.NewRunSummary("cascade", paths)

	merged, mreport := engine.MergeBest(subs)
	for n, skipped := range mreport.Skipped {
		klog.V(1).Infof("merge: group %03d had %d invalid candidates", n, skipped)
	}
	base, err := score.Evaluate(merged)
	if err != nil {
		return err
	}
	summary.BaseScore = base.Total
	klog.Infof("merged %d inputs: %d groups, total %.12f", len(subs), len(merged), base.Total)

	cur := merged
	replaced := make(map[int]bool)
	if !cfg.Cascade.SkipBackward {
		var rs []int
		cur, rs = engine.BackwardPass(cur)
		for _, n := range rs {
			replaced[n] = true
		}
		summary.BackwardScore = totalOf(cur)
		klog.Infof("backward pass replaced %d groups: %.12f", len(rs), summary.BackwardScore)
	}
	if !cfg.Cascade.SkipCascade {
		res, err := engine.Cascade(ctx, cur, cfg.Cascade)
		if err != nil {
			return err
		}
		cur = res.Submission
		for _, n := range res.Replaced {
			replaced[n] = true
		}
		klog.Infof("cascade finished %d levels: %.12f -> %.12f", res.Levels, res.InitialTotal, res.Total)
	}

	final, reverted := engine.RoundSubmission(cur, merged, cfg.Decimals)
	report, err := score.Evaluate(final)
	if err != nil {
		return fmt.Errorf("result failed validation: %w", err)
	}

	wctx := context.WithoutCancel(ctx)
	if err := store.SaveSubmission(wctx, c.out, final, cfg.Decimals); err != nil {
		return err
	}

	summary.Output = c.out
	summary.FinalScore = report.Total
	summary.OfficialScore = officialScore(wctx, store, c.out)
	summary.Replaced = sortedKeys(replaced)
	summary.Fallbacks = reverted
	return finishSummary(wctx, store, &c, summary)
}

func runRotate(args []string) error {
	fs := newFlagSet("rotate")
	var c commonFlags
	c.register(fs)
	coarse := fs.Float64("coarse-step", model.DefaultRotationSettings().CoarseStep, "coarse sweep step in degrees")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("in", c.in); err != nil {
		return err
	}
	if err := requireFlag("out", c.out); err != nil {
		return err
	}
	cfg, err := c.loadConfig(fs)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "coarse-step" {
			cfg.Rotation.CoarseStep = *coarse
		}
	})
	ctx, cancel, err := runContext(cfg)
	if err != nil {
		return err
	}
	defer cancel()

	store := storage.NewStore(cfg.S3Region)
	sub, err := store.LoadSubmission(ctx, c.in, c.decodeOptions())
	if err != nil {
		return err
	}
	selected, err := model.ParseGroupList(cfg.Groups, model.MaxGroupSize)
	if err != nil {
		return err
	}
	summary := project.NewRunSummary("rotate", []string{c.in})

	out, report := engine.RotateSubmission(sub, selected, cfg.Rotation, cfg.Decimals)
	klog.Infof("rotated %d groups", len(report.Refined))
	if err := store.SaveSubmission(ctx, c.out, out, cfg.Decimals); err != nil {
		return err
	}

	summary.Output = c.out
	summary.BaseScore = report.BaseScore
	summary.FinalScore = report.FinalScore
	summary.OfficialScore = officialScore(ctx, store, c.out)
	summary.Refined = report.Refined
	summary.Fallbacks = report.Fallbacks
	return finishSummary(ctx, store, &c, summary)
}

func runRender(args []string) error {
	fs := newFlagSet("render")
	var c commonFlags
	c.register(fs)
	format := fs.String("format", "pdf", "output format: pdf, labels, dxf or png")
	size := fs.Int("size", 512, "PNG preview size in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("in", c.in); err != nil {
		return err
	}
	if err := requireFlag("out", c.out); err != nil {
		return err
	}
	cfg, err := c.loadConfig(fs)
	if err != nil {
		return err
	}
	ctx, cancel, err := runContext(cfg)
	if err != nil {
		return err
	}
	defer cancel()

	store := storage.NewStore(cfg.S3Region)
	sub, err := store.LoadSubmission(ctx, c.in, c.decodeOptions())
	if err != nil {
		return err
	}
	var selected []int
	if cfg.Groups != "" {
		if selected, err = model.ParseGroupList(cfg.Groups, model.MaxGroupSize); err != nil {
			return err
		}
	}
	views, err := export.Views(sub, selected)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "treepack-render-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	var files []string
	switch *format {
	case "pdf":
		files = []string{filepath.Join(dir, "report.pdf")}
		err = export.ExportPDF(files[0], views)
	case "labels":
		files = []string{filepath.Join(dir, "labels.pdf")}
		err = export.ExportLabels(files[0], views)
	case "dxf":
		files = []string{filepath.Join(dir, "groups.dxf")}
		err = export.ExportDXF(files[0], views)
	case "png":
		for _, v := range views {
			f := filepath.Join(dir, fmt.Sprintf("group_%03d.png", v.N))
			if err = export.SavePNG(f, v, *size); err != nil {
				break
			}
			files = append(files, f)
		}
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		return err
	}

	// A single file goes to -out; PNG previews go into -out as a directory.
	for _, f := range files {
		target := c.out
		if *format == "png" {
			target = joinOutput(c.out, filepath.Base(f))
		}
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if err := store.Write(ctx, target, data); err != nil {
			return err
		}
	}
	klog.Infof("rendered %d groups as %s to %s", len(views), *format, c.out)
	return nil
}

func runCompare(args []string) error {
	fs := newFlagSet("compare")
	var c commonFlags
	var r refineFlags
	c.register(fs)
	r.register(fs)
	n := fs.Int("n", 0, "group size to compare on")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("in", c.in); err != nil {
		return err
	}
	cfg, err := c.loadConfig(fs)
	if err != nil {
		return err
	}
	r.apply(fs, &cfg)
	if err := cfg.Refine.Validate(); err != nil {
		return err
	}
	ctx, cancel, err := runContext(cfg)
	if err != nil {
		return err
	}
	defer cancel()

	store := storage.NewStore(cfg.S3Region)
	sub, err := store.LoadSubmission(ctx, c.in, c.decodeOptions())
	if err != nil {
		return err
	}
	g, ok := sub[*n]
	if !ok {
		return fmt.Errorf("%w: group %d", model.ErrMissingGroup, *n)
	}

	results := engine.CompareScenarios(ctx, engine.BuildDefaultScenarios(cfg.Refine), g, cfg.Seed+int64(*n))
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tSCORE\tIMPROVEMENT\tACCEPT RATE\tCOLLISIONS")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%.12f\t%.3f%%\t%.3f\t%d\n",
			res.Scenario.Name, res.Result.Score, res.ImprovementPct, res.AcceptRate, res.Result.Collisions)
	}
	return tw.Flush()
}

func runConfig(args []string) error {
	fs := newFlagSet("config")
	path := fs.String("config", project.DefaultConfigPath(), "run configuration file")
	write := fs.Bool("write", false, "write the effective configuration back to -config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := project.LoadConfig(*path)
	if err != nil {
		return err
	}
	if *write {
		if err := project.SaveConfig(*path, cfg); err != nil {
			return err
		}
		klog.Infof("wrote %s", *path)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runServe(args []string) error {
	fs := newFlagSet("serve")
	opts := server.DefaultOptions()
	fs.StringVar(&opts.Addr, "addr", opts.Addr, "listen address")
	fs.StringVar(&opts.BodyLimit, "body-limit", opts.BodyLimit, "maximum request body size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, cancel, err := runContext(model.RunConfig{})
	if err != nil {
		return err
	}
	defer cancel()
	return server.New(opts).Run(ctx)
}

// officialScore re-reads what was written and scores it the way a judge
// would. It returns nil when the file cannot be scored.
func officialScore(ctx context.Context, store *storage.Store, path string) *float64 {
	sub, err := store.LoadSubmission(ctx, path, submission.DecodeOptions{})
	if err != nil {
		klog.Warningf("could not re-read %s: %v", path, err)
		return nil
	}
	report, err := score.Evaluate(sub)
	if err != nil {
		klog.Warningf("written submission does not validate: %v", err)
		return nil
	}
	return &report.Total
}

func totalOf(sub model.Submission) float64 {
	total := 0.0
	for _, n := range sub.Sizes() {
		s, _ := score.GroupScore(sub[n])
		total += s
	}
	return total
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func joinOutput(dir, name string) string {
	if storage.IsRemote(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}
