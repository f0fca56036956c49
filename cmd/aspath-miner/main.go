package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/route-beacon/aspath-miner/internal/analysis"
	"github.com/route-beacon/aspath-miner/internal/config"
	"github.com/route-beacon/aspath-miner/internal/discover"
	"github.com/route-beacon/aspath-miner/internal/httpserver"
	"github.com/route-beacon/aspath-miner/internal/ingest"
	"github.com/route-beacon/aspath-miner/internal/metrics"
	"github.com/route-beacon/aspath-miner/internal/mrtdump"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "scan":
		err = runScan(os.Args[2:])
	case "parse":
		err = runParse(os.Args[2:])
	case "dump":
		err = runDump(os.Args[2:])
	case "--help", "-h", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: aspath-miner <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scan   --date YYYY-MM-DD --dir PATH [--threads N] [--debug]")
	fmt.Println("         Download RIBs for a date into --dir, then parse and analyze them.")
	fmt.Println("  parse  --files f1.mrt f2.mrt.gz ... [--threads N] [--debug]")
	fmt.Println("         Parse an explicit file list and analyze the merged result.")
	fmt.Println("  dump   --file PATH --index N")
	fmt.Println("         Print the Nth decoded MRT record (debug aid).")
	fmt.Println()
	fmt.Println("Common options:")
	fmt.Println("  --config <path>   Path to configuration YAML file")
	fmt.Println("  --log-level <lvl> Override log level (debug, info, warn, error)")
}

func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zap.DebugLevel
	case "warn":
		zapLevel = zap.WarnLevel
	case "error":
		zapLevel = zap.ErrorLevel
	default:
		zapLevel = zap.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

type commonFlags struct {
	configPath string
	logLevel   string
	threads    int
	debug      bool
}

// parseCommonFlags scans args for the flags shared across scan/parse and
// ignores every other argument, so callers parse their own
// subcommand-specific flags from the same full args slice.
func parseCommonFlags(args []string) commonFlags {
	cf := commonFlags{}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 < len(args) {
				cf.configPath = args[i+1]
				i++
			}
		case "--log-level":
			if i+1 < len(args) {
				cf.logLevel = args[i+1]
				i++
			}
		case "--threads":
			if i+1 < len(args) {
				n, err := strconv.Atoi(args[i+1])
				if err == nil {
					cf.threads = n
				}
				i++
			}
		case "--debug":
			cf.debug = true
		}
	}
	return cf
}

func loadConfig(args []string) (*config.Config, commonFlags, *zap.Logger, error) {
	cf := parseCommonFlags(args)

	cfg, err := config.Load(cf.configPath)
	if err != nil {
		return nil, cf, nil, err
	}

	if cf.logLevel != "" {
		cfg.Service.LogLevel = cf.logLevel
	}
	if cf.debug {
		cfg.Service.LogLevel = "debug"
	}
	if cf.threads > 0 {
		cfg.Ingest.Threads = cf.threads
	}

	return cfg, cf, initLogger(cfg.Service.LogLevel), nil
}

func runScan(args []string) error {
	var date, dir string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--date":
			if i+1 < len(args) {
				date = args[i+1]
				i++
			}
		case "--dir":
			if i+1 < len(args) {
				dir = args[i+1]
				i++
			}
		}
	}
	if date == "" || dir == "" {
		return fmt.Errorf("scan: --date and --dir are required")
	}
	ts, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fmt.Errorf("scan: invalid --date %q: %w", date, err)
	}

	cfg, _, logger, err := loadConfig(args)
	if err != nil {
		return err
	}
	defer logger.Sync()

	metrics.Register()

	collectors := buildCollectors(cfg)

	httpSrv := httpserver.NewServer(cfg.Service.HTTPListen, logger.Named("http"))
	if err := httpSrv.Start(); err != nil {
		return fmt.Errorf("scan: starting http server: %w", err)
	}
	defer shutdownHTTP(httpSrv, cfg, logger)

	ctx, cancel := runContext()
	defer cancel()

	files := discover.ListForDate(ts, collectors)
	logger.Info("discovered rib files", zap.Int("count", len(files)), zap.String("date", date))

	if err := discover.Download(ctx, dir, files); err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	filePaths := make([]string, 0, len(files))
	for _, f := range files {
		filePaths = append(filePaths, filepath.Join(dir, f.Filename))
	}

	return runIngestAndAnalyze(ctx, filePaths, cfg.Ingest.Threads, logger)
}

func runParse(args []string) error {
	var files []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--files" {
			for i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				files = append(files, args[i+1])
				i++
			}
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("parse: --files requires at least one path")
	}

	cfg, _, logger, err := loadConfig(args)
	if err != nil {
		return err
	}
	defer logger.Sync()

	metrics.Register()

	httpSrv := httpserver.NewServer(cfg.Service.HTTPListen, logger.Named("http"))
	if err := httpSrv.Start(); err != nil {
		return fmt.Errorf("parse: starting http server: %w", err)
	}
	defer shutdownHTTP(httpSrv, cfg, logger)

	ctx, cancel := runContext()
	defer cancel()

	return runIngestAndAnalyze(ctx, files, cfg.Ingest.Threads, logger)
}

func runIngestAndAnalyze(ctx context.Context, files []string, threads int, logger *zap.Logger) error {
	logger.Info("parsing mrt files", zap.Int("files", len(files)), zap.Int("threads", threads))

	pd, err := ingest.Run(ctx, files, threads)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	originsBefore := pd.CountOrigins()
	asPathsBefore := pd.CountAsPaths()
	removedOrigins := pd.RemoveOriginsWithSingleAsPath()
	removedHops := pd.RemoveSingleHopAsPaths()

	logger.Info("reduced path data",
		zap.Int("origins_before", originsBefore),
		zap.Int("as_paths_before", asPathsBefore),
		zap.Int("origins_after", pd.CountOrigins()),
		zap.Int("as_paths_after", pd.CountAsPaths()),
		zap.Int("single_as_path_origins_removed", removedOrigins),
		zap.Int("single_hop_as_paths_removed", removedHops),
	)
	metrics.OriginsTotal.WithLabelValues().Set(float64(pd.CountOrigins()))
	metrics.AsPathsTotal.WithLabelValues().Set(float64(pd.CountAsPaths()))

	divergences := analysis.PathDivergence(pd)
	mismatches := analysis.CommunityOriginMismatch(pd)
	metrics.AnomaliesFoundTotal.WithLabelValues("divergence").Add(float64(len(divergences)))
	metrics.AnomaliesFoundTotal.WithLabelValues("community_mismatch").Add(float64(len(mismatches)))

	for _, d := range divergences {
		logger.Info("path divergence found",
			zap.Uint32("origin", uint32(d.Origin)),
			zap.Any("sequence_a", d.SequenceA),
			zap.Any("sequence_b", d.SequenceB),
		)
	}
	for _, m := range mismatches {
		logger.Info("community origin mismatch found",
			zap.Uint32("origin", uint32(m.Origin)),
			zap.Uint32("referenced_asn", uint32(m.ReferencedASN)),
			zap.Bool("large", m.Large),
		)
	}

	logger.Info("scan complete",
		zap.Int("divergence_findings", len(divergences)),
		zap.Int("community_mismatch_findings", len(mismatches)),
	)
	return nil
}

func runDump(args []string) error {
	var file string
	var index int
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--file":
			if i+1 < len(args) {
				file = args[i+1]
				i++
			}
		case "--index":
			if i+1 < len(args) {
				n, err := strconv.Atoi(args[i+1])
				if err == nil {
					index = n
				}
				i++
			}
		}
	}
	if file == "" {
		return fmt.Errorf("dump: --file is required")
	}

	r, err := mrtdump.OpenFile(file)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	defer r.Close()

	dec := mrtdump.NewDecoder(r)
	count := 0
	for {
		rec, err := dec.Next()
		if err != nil {
			return fmt.Errorf("dump: %w", err)
		}
		if count != index {
			count++
			continue
		}
		fmt.Printf("%#v\n", rec)
		return nil
	}
}

func buildCollectors(cfg *config.Config) []discover.Collector {
	var out []discover.Collector
	for _, name := range cfg.Discover.RouteViewsCollectors {
		out = append(out, discover.Collector{Name: name})
	}
	for _, name := range cfg.Discover.RISCollectors {
		out = append(out, discover.Collector{Name: name, IsRIS: true})
	}
	return out
}

func runContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func shutdownHTTP(s *httpserver.Server, cfg *config.Config, logger *zap.Logger) {
	shutdownTimeout := time.Duration(cfg.Service.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
}
