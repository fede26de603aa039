// enkit is the ensemble parameter toolkit CLI.
//
// Verbs:
//
//	selftest          run the parameter node self-test fixtures
//	init              allocate, sample and persist a fresh ensemble
//	stats             per-segment ensemble spread of the stored members
//	mean              elementwise ensemble mean of the stored members
//	export            write a snapshot of the stored members to Parquet
//	spread            SQL spread report over exported snapshots
//	clipped           members sitting on a physical bound, per snapshot
//	outliers          members furthest from the ensemble mean
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ovland/enkit/internal/config"
	"github.com/ovland/enkit/internal/ensemble"
	"github.com/ovland/enkit/internal/export"
	"github.com/ovland/enkit/internal/logging"
	"github.com/ovland/enkit/internal/param/faultmult"
	"github.com/ovland/enkit/internal/query"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	dataDir := flag.String("data", "", "data directory (overrides config)")
	iteration := flag.Int("iteration", 0, "iteration stamp for export")
	limit := flag.Int("limit", 10, "row limit for outlier queries")
	jsonLogs := flag.Bool("json-logs", false, "log as JSON")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logging.Init(level, *jsonLogs)
	log := logging.Component("cli")
	log.Debug("enkit starting", "version", Version)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("no config file found, using defaults", "path", *cfgPath)
			cfg = config.DefaultConfig()
		} else {
			log.Error("load config", "error", err)
			os.Exit(1)
		}
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	if err := run(flag.Arg(0), cfg, *iteration, *limit); err != nil {
		log.Error("command failed", "verb", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(verb string, cfg *config.Config, iteration, limit int) error {
	ctx := context.Background()

	switch verb {
	case "selftest":
		if err := faultmult.SelfTest(); err != nil {
			return err
		}
		fmt.Println("selftest ok")
		return nil

	case "init":
		e, err := loadEnsemble(cfg)
		if err != nil {
			return err
		}
		e.Initialize(cfg.Ensemble.Seed)
		if err := e.WriteAll(ctx, cfg.EnsembleDir(), cfg.Ensemble.IOWorkers); err != nil {
			return err
		}
		fmt.Printf("initialized %d members under %s\n", e.Size(), cfg.EnsembleDir())
		return nil

	case "stats":
		e, err := readEnsemble(ctx, cfg)
		if err != nil {
			return err
		}
		stats, err := ensemble.Stats(e, 0.01)
		if err != nil {
			return err
		}
		fmt.Printf("%-20s %8s %10s %10s %10s %10s %10s %8s\n",
			"SEGMENT", "MEMBERS", "MEAN", "STD", "MIN", "MAX", "P50", "ATBOUND")
		for _, s := range stats {
			fmt.Printf("%-20s %8d %10.4f %10.4f %10.4f %10.4f %10.4f %8d\n",
				s.Name, s.Count, s.Mean, s.Std, s.Min, s.Max, s.P50, s.AtBound)
		}
		return nil

	case "mean":
		e, err := readEnsemble(ctx, cfg)
		if err != nil {
			return err
		}
		mean, err := e.Mean()
		if err != nil {
			return err
		}
		logVals := mean.DataRef()
		linVals := mean.OutputRef()
		fmt.Printf("%-20s %12s %12s\n", "SEGMENT", "LOG", "VALUE")
		for s := 0; s < mean.Len(); s++ {
			fmt.Printf("%-20s %12.6f %12.6f\n", mean.Name(s), logVals[s], linVals[s])
		}
		return nil

	case "export":
		e, err := readEnsemble(ctx, cfg)
		if err != nil {
			return err
		}
		path := ensembleSnapshotPath(cfg, iteration)
		w, err := export.NewSnapshotWriter(path, export.Options{
			Compression:      export.ParseCompressionType(cfg.Export.Compression),
			CompressionLevel: cfg.Export.Level,
		})
		if err != nil {
			return err
		}
		if err := w.WriteMembers(iteration, e.Members()); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %d rows to %s\n", w.RowCount(), path)
		return nil

	case "spread":
		svc, err := query.New(cfg.SnapshotDir(), cfg.Query.MemoryLimit)
		if err != nil {
			return err
		}
		defer svc.Close()
		qctx, cancel := queryContext(ctx, cfg)
		defer cancel()
		spreads, err := svc.SegmentSpreads(qctx, -1)
		if err != nil {
			return err
		}
		fmt.Printf("%-5s %-20s %8s %10s %10s %10s %10s\n",
			"ITER", "SEGMENT", "MEMBERS", "MEAN", "STD", "MIN", "MAX")
		for _, s := range spreads {
			fmt.Printf("%-5d %-20s %8d %10.4f %10.4f %10.4f %10.4f\n",
				s.Iteration, s.Segment, s.Members, s.MeanValue, s.StdValue, s.MinValue, s.MaxValue)
		}
		return nil

	case "clipped":
		svc, err := query.New(cfg.SnapshotDir(), cfg.Query.MemoryLimit)
		if err != nil {
			return err
		}
		defer svc.Close()
		qctx, cancel := queryContext(ctx, cfg)
		defer cancel()
		clipped, err := svc.ClippedSegments(qctx)
		if err != nil {
			return err
		}
		for _, c := range clipped {
			fmt.Printf("iter %d  %-20s %d members at bound\n", c.Iteration, c.Segment, c.Members)
		}
		return nil

	case "outliers":
		svc, err := query.New(cfg.SnapshotDir(), cfg.Query.MemoryLimit)
		if err != nil {
			return err
		}
		defer svc.Close()
		qctx, cancel := queryContext(ctx, cfg)
		defer cancel()
		outliers, err := svc.MemberOutliers(qctx, limit)
		if err != nil {
			return err
		}
		for _, o := range outliers {
			fmt.Printf("iter %d  member %3d  deviation %.6f\n", o.Iteration, o.Member, o.Deviation)
		}
		return nil

	default:
		flag.Usage()
		return fmt.Errorf("unknown verb %q", verb)
	}
}

func loadEnsemble(cfg *config.Config) (*ensemble.Ensemble, error) {
	if cfg.Parameters.FaultMult == nil {
		return nil, errors.New("config has no parameters.faultmult section")
	}
	return ensemble.New(faultmult.KindName, cfg.Parameters.FaultMult, cfg.Ensemble.Size)
}

func readEnsemble(ctx context.Context, cfg *config.Config) (*ensemble.Ensemble, error) {
	e, err := loadEnsemble(cfg)
	if err != nil {
		return nil, err
	}
	if err := e.ReadAll(ctx, cfg.EnsembleDir(), cfg.Ensemble.IOWorkers); err != nil {
		return nil, err
	}
	return e, nil
}

func ensembleSnapshotPath(cfg *config.Config, iteration int) string {
	return filepath.Join(cfg.SnapshotDir(), fmt.Sprintf("iter-%04d.parquet", iteration))
}

func queryContext(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.Query.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Query.Timeout)
	}
	return context.WithCancel(ctx)
}
