package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/portfolio-labs/extraction-pipeline/internal/cache"
	"github.com/portfolio-labs/extraction-pipeline/internal/common"
	"github.com/portfolio-labs/extraction-pipeline/internal/coordinator"
	"github.com/portfolio-labs/extraction-pipeline/internal/dedup"
	"github.com/portfolio-labs/extraction-pipeline/internal/export"
	"github.com/portfolio-labs/extraction-pipeline/internal/ingest"
	"github.com/portfolio-labs/extraction-pipeline/internal/model"
	"github.com/portfolio-labs/extraction-pipeline/internal/oracle"
	"github.com/portfolio-labs/extraction-pipeline/internal/parser"
	"github.com/portfolio-labs/extraction-pipeline/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		file        = flag.String("file", "", "document to extract from")
		dir         = flag.String("dir", "", "directory to extract from (all supported files)")
		out         = flag.String("out", "", "output JSON file path (optional, defaults to stdout)")
		xlsxOut     = flag.String("xlsx", "", "also write the items as an XLSX workbook")
		fast        = flag.Bool("fast", false, "route every chunk to the fast model tier")
		lang        = flag.String("lang", "", "document language hint, e.g. 'it'")
		userCtx     = flag.String("context", "", "free-form context passed to the extraction prompt")
		concurrency = flag.Int("concurrency", 0, "override the extraction worker bound")
		nocache     = flag.Bool("nocache", false, "disable the extraction cache")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *file == "" && *dir == "" {
		printError("Error: --file or --dir is required\n")
		os.Exit(1)
	}
	if *file != "" && *dir != "" {
		printError("Error: --file and --dir are mutually exclusive\n")
		os.Exit(1)
	}

	// .env is optional; the environment wins over the file
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		printError("Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Wire the L2 store; any failure degrades to L1-only caching.
	var store cache.Store
	if !*nocache {
		switch cfg.Cache.Driver {
		case "sqlite":
			s, err := cache.NewSQLiteStore(cfg.Cache.DSN, logger)
			if err != nil {
				logger.Warn("cache.sqlite.unavailable", "error", err)
			} else {
				store = s
				defer func() { _ = s.Close() }()
			}
		case "postgres":
			s, err := cache.NewPostgresStore(ctx, cache.PostgresConfig{DSN: cfg.Cache.DSN}, logger)
			if err != nil {
				logger.Warn("cache.postgres.unavailable", "error", err)
			} else {
				store = s
				defer func() { _ = s.Close() }()
			}
		case "":
			// L1-only
		default:
			printError("Error: unknown cache driver %q\n", cfg.Cache.Driver)
			os.Exit(1)
		}
	}

	var mt *cache.MultiTier
	if !*nocache {
		mt = cache.New(cache.Config{
			TTL:          cfg.Cache.TTL,
			MaxL1Entries: cfg.Cache.MaxL1,
			StoreTimeout: cfg.Cache.Timeout,
		}, store, logger)
	}

	// Run records live next to the sqlite cache when it is in use.
	var runs pipeline.RunRecorder
	if s, ok := store.(*cache.SQLiteStore); ok {
		runs = s
	}

	extractor := oracle.NewClient(oracle.ClientConfig{
		APIKey:        cfg.Oracle.APIKey,
		BaseURL:       cfg.Oracle.BaseURL,
		FastModel:     cfg.Oracle.FastModel,
		AccurateModel: cfg.Oracle.AccurateModel,
	}, logger)

	p := pipeline.New(pipeline.Config{
		Coordinator: coordinator.Config{CallTimeout: cfg.Oracle.Timeout, CacheTTL: cfg.Cache.TTL},
		Dedup:       dedup.DefaultConfig(),
	}, extractor, mt, runs, logger)

	files := []string{*file}
	if *dir != "" {
		scanned, stats, err := ingest.ScanDirectory(*dir, true)
		if err != nil {
			printError("Error: scanning %s: %v\n", *dir, err)
			os.Exit(1)
		}
		logger.Info("input.scanned", "dir", *dir, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
		if len(scanned) == 0 {
			printError("Error: no supported files under %s\n", *dir)
			os.Exit(1)
		}
		files = scanned
	}

	opts := pipeline.Options{
		FastMode:       *fast,
		Language:       *lang,
		UserContext:    *userCtx,
		MaxConcurrency: *concurrency,
	}

	results := make(map[string]model.PipelineResult, len(files))
	failed := 0
	for _, path := range files {
		res, err := runOne(ctx, p, path, *lang, *userCtx, opts, logger)
		if err != nil && !res.Success {
			failed++
			printError("Error: extraction failed for %s: %v\n", path, err)
			if len(res.Notes) > 0 {
				printError("Notes:\n  %s\n", strings.Join(res.Notes, "\n  "))
			}
			continue
		}
		results[path] = res
	}
	if len(results) == 0 {
		os.Exit(1)
	}

	if *xlsxOut != "" {
		svc := export.NewService(logger)
		for path, res := range results {
			target := *xlsxOut
			if len(files) > 1 {
				target = path + ".items.xlsx"
			}
			data, err := svc.ItemsXLSX(res, path)
			if err != nil {
				printError("Error: building workbook for %s: %v\n", path, err)
				os.Exit(1)
			}
			if err := os.WriteFile(target, data, 0o644); err != nil {
				printError("Error: writing %s: %v\n", target, err)
				os.Exit(1)
			}
			logger.Info("output.xlsx.written", "path", target)
		}
	}

	var payload []byte
	var err error
	if len(files) == 1 {
		payload, err = json.MarshalIndent(results[files[0]], "", "  ")
	} else {
		payload, err = json.MarshalIndent(results, "", "  ")
	}
	if err != nil {
		printError("Error: encoding result: %v\n", err)
		os.Exit(1)
	}
	if *out == "" {
		fmt.Println(string(payload))
	} else {
		if err := os.WriteFile(*out, payload, 0o644); err != nil {
			printError("Error: writing %s: %v\n", *out, err)
			os.Exit(1)
		}
		logger.Info("output.written", "path", *out)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// runOne parses and extracts a single document.
func runOne(ctx context.Context, p *pipeline.Pipeline, path, lang, userCtx string, opts pipeline.Options, logger *slog.Logger) (model.PipelineResult, error) {
	doc, format, err := parser.FromFile(path, nil)
	if err != nil {
		return model.PipelineResult{}, fmt.Errorf("reading %s: %w", path, err)
	}
	logger.Info("input.parsed", "file", path, "format", string(format), "chars", len(doc.Text))

	start := time.Now()
	result, err := p.Run(ctx, model.Document{
		Filename:     path,
		Text:         doc.Text,
		Language:     lang,
		UserContext:  userCtx,
		TableHint:    doc.TableHint,
		ColumnSignal: doc.ColumnSignal,
	}, opts)

	logger.Info("extraction.done",
		"file", path,
		"items", len(result.Items),
		"chunks", result.ChunksProcessed,
		"confidence", result.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, err
}
