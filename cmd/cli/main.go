package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"storage-market/internal/config"
	"storage-market/internal/model"
	"storage-market/internal/report"
	"storage-market/internal/sweep"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	switch os.Args[1] {
	case "sweep":
		cmdSweep(os.Args[2:])
	case "point":
		cmdPoint(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli sweep --config examples/config.yaml")
	fmt.Println("  cli point --config examples/config.yaml --scenario 1 --rating 50 --wind 200")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - sweep runs the full axis product and writes a summary CSV plus per-point ledgers")
	fmt.Println("  - point runs a single parameter tuple and writes its clearing ledgers")
}

func cmdSweep(args []string) {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	outDir := fs.String("out", "", "Output directory (overrides config)")
	ledgers := fs.Bool("ledgers", false, "Also write per-point dispatch ledgers")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	runner := sweep.NewRunner(cfg)
	points, failures, err := runner.Run()
	if err != nil {
		panic(err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		panic(err)
	}
	sumPath := filepath.Join(cfg.OutputDir, "sweep.csv")
	if err := report.WriteSweepCSV(sumPath, points, cfg.Storage.DegradationCost, cfg.StepHours); err != nil {
		panic(err)
	}
	fmt.Printf("Wrote %d points to %s (%d failed)\n", len(points), sumPath, len(failures))

	if *ledgers {
		for i := range points {
			writeLedgers(cfg.OutputDir, &points[i])
		}
	}
	for _, f := range failures {
		fmt.Printf("FAILED %s: %v\n", f.Key, f.Err)
	}
	if len(failures) > 0 && !cfg.SkipOnError {
		os.Exit(1)
	}
}

func cmdPoint(args []string) {
	fs := flag.NewFlagSet("point", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	outDir := fs.String("out", "", "Output directory (overrides config)")
	ds := fs.Int("scenario", 1, "Demand scenario (1..5)")
	rating := fs.Float64("rating", 50, "Storage power rating in MW")
	wind := fs.Float64("wind", 200, "Wind capacity in MW")
	errPct := fs.Float64("err", 0.1, "Forecast error fraction")
	sigma := fs.Float64("sigma", 0, "Bid uncertainty sigma ($/MWh)")
	dayAhead := fs.Bool("da", false, "Storage participates in the day-ahead market")
	_ = fs.Parse(args)

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	key := sweep.Key{
		DemandScenario:   *ds,
		BidSigma:         *sigma,
		WindCapacityMW:   *wind,
		ForecastErrorPct: *errPct,
		StorageRatingMW:  *rating,
		DayAhead:         *dayAhead,
	}
	runner := sweep.NewRunner(cfg)
	pt, err := runner.RunPoint(key)
	if err != nil {
		panic(err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		panic(err)
	}
	writeLedgers(cfg.OutputDir, pt)

	sum := report.Summarize(pt, cfg.Storage.DegradationCost, cfg.StepHours)
	fmt.Printf("Point %s\n", pt.Key)
	fmt.Printf("  DA mean price      $%.2f/MWh\n", sum.DAPrice.Mean)
	fmt.Printf("  RT baseline mean   $%.2f/MWh (p95-p05 %.2f)\n", sum.RTBaselinePrice.Mean, sum.RTBaselinePrice.SpreadP95P05)
	fmt.Printf("  RT storage mean    $%.2f/MWh (p95-p05 %.2f)\n", sum.RTStoragePrice.Mean, sum.RTStoragePrice.SpreadP95P05)
	fmt.Printf("  Storage profit RT  $%.2f  final SoC %.3f\n", sum.StorageProfitRT, sum.FinalSoC)
	if pt.RTPinned != nil {
		fmt.Printf("  Storage profit DA+RT $%.2f\n", sum.StorageProfitPinned)
	}
}

// writeLedgers writes one dispatch CSV per clearing stage of the point.
func writeLedgers(dir string, pt *sweep.PointResult) {
	base := fmt.Sprintf("s%d_w%g_e%g_r%g_b%g",
		pt.Key.DemandScenario, pt.Key.WindCapacityMW, 100*pt.Key.ForecastErrorPct,
		pt.Key.StorageRatingMW, pt.Key.BidSigma)

	stages := []struct {
		suffix string
		res    *model.ClearingResult
	}{
		{"da", pt.DayAheadNoStorage},
		{"rt_baseline", pt.RTBaseline},
		{"rt_storage", pt.RTStorage},
		{"da_storage", pt.DayAheadStorage},
		{"rt_pinned", pt.RTPinned},
	}
	for _, s := range stages {
		if s.res == nil {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", base, s.suffix))
		if err := report.WriteClearingCSV(path, pt.Snapshot, s.res); err != nil {
			panic(err)
		}
	}
}
