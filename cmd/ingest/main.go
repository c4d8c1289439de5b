package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statutelab/lexgraph/internal/util"
	"github.com/statutelab/lexgraph/pkg/ai"
	aiollama "github.com/statutelab/lexgraph/pkg/ai/ollama"
	aiopenai "github.com/statutelab/lexgraph/pkg/ai/openai"
	"github.com/statutelab/lexgraph/pkg/archive"
	archives3 "github.com/statutelab/lexgraph/pkg/archive/s3"
	"github.com/statutelab/lexgraph/pkg/checkpoint"
	"github.com/statutelab/lexgraph/pkg/fetch"
	fetchfile "github.com/statutelab/lexgraph/pkg/fetch/file"
	fetchweb "github.com/statutelab/lexgraph/pkg/fetch/web"
	"github.com/statutelab/lexgraph/pkg/ingest"
	"github.com/statutelab/lexgraph/pkg/logger"
	"github.com/statutelab/lexgraph/pkg/logger/console"
	"github.com/statutelab/lexgraph/pkg/manifest"
	"github.com/statutelab/lexgraph/pkg/store"
	"github.com/statutelab/lexgraph/pkg/store/memory"
	storepgx "github.com/statutelab/lexgraph/pkg/store/pgx"
)

func main() {
	util.LoadEnv()

	var (
		manifestPath   = flag.String("manifest", "", "path to the NDJSON manifest (required)")
		checkpointPath = flag.String("checkpoint", util.GetEnv("CHECKPOINT_PATH"), "checkpoint file, empty disables resume")
		reportPath     = flag.String("report", util.GetEnv("REPORT_PATH"), "write the run summary as JSON to this path")
		archiveDir     = flag.String("archive-dir", util.GetEnv("ARCHIVE_DIR"), "content-addressed text archive directory")
		concurrency    = flag.Int("concurrency", util.GetEnvInt("INGEST_CONCURRENCY", 2), "max entries processed at once")
		skipExisting   = flag.Bool("skip-existing", util.GetEnvBool("SKIP_EXISTING", true), "skip entries the checkpoint reports processed")
		minContentLen  = flag.Int("min-content-len", util.GetEnvInt("MIN_CONTENT_LEN", 64), "minimum rune count of fetched text")
	)
	flag.Parse()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	})
	logger.Init(consoleLogger)

	if *manifestPath == "" {
		logger.Fatal("The -manifest flag is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entries, err := manifest.ReadFile(*manifestPath)
	if err != nil {
		logger.Fatal("Could not read manifest", "path", *manifestPath, "err", err)
	}
	if len(entries) == 0 {
		logger.Info("Manifest contains no entries, nothing to do")
		return
	}

	graphStore, cleanup := buildStore(ctx)
	defer cleanup()

	extractor := buildExtractor()

	cp := checkpoint.New(*checkpointPath)
	cp.Load()

	ing, err := ingest.NewIngestor(ingest.NewIngestorParams{
		Fetcher:       fetch.NewRouter(fetchweb.NewWebFetcher(), fetchfile.NewFileFetcher()),
		Extractor:     extractor,
		Store:         graphStore,
		Checkpoint:    cp,
		Archive:       buildArchive(ctx, *archiveDir),
		Concurrency:   *concurrency,
		SkipExisting:  *skipExisting,
		MinContentLen: *minContentLen,
	})
	if err != nil {
		logger.Fatal("Could not create ingestor", "err", err)
	}

	summary := ing.Run(ctx, entries)

	logger.Info("Run complete",
		"total", summary.Total,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"entities_added", summary.EntitiesAdded,
		"edges_added", summary.EdgesAdded)
	for _, e := range summary.Errors {
		logger.Error("Failed entry", "locator", e.Locator, "err", e.Error)
	}

	if *reportPath != "" {
		if err := summary.WriteFile(*reportPath); err != nil {
			logger.Error("Could not write report", "path", *reportPath, "err", err)
		}
	}

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

// buildStore connects to PostgreSQL when DATABASE_URL is set, falling back to
// the in-memory store for local runs. Unreachable Postgres is fatal: it is a
// startup error, not a per-entry one.
func buildStore(ctx context.Context) (store.GraphStore, func()) {
	databaseURL := util.GetEnv("DATABASE_URL")
	if databaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory graph store")
		return memory.NewGraphMemoryStore(), func() {}
	}

	if err := storepgx.Migrate(databaseURL); err != nil {
		logger.Fatal("Could not run migrations", "err", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}

	graphStore := storepgx.NewGraphDBStorageWithConnection(pool)
	if err := graphStore.Ping(ctx); err != nil {
		logger.Fatal("Graph database is unreachable", "err", err)
	}
	return graphStore, pool.Close
}

func buildExtractor() ai.FactExtractor {
	var client ai.FactAIClient

	switch util.GetEnv("AI_ADAPTER") {
	case "ollama":
		ollamaClient, err := aiollama.NewFactOllamaClient(aiollama.NewFactOllamaClientParams{
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			BaseURL:         util.GetEnv("AI_CHAT_URL"),
			ApiKey:          util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		client = ollamaClient
	default:
		client = aiopenai.NewFactOpenAIClient(aiopenai.NewFactOpenAIClientParams{
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			ChatURL:         util.GetEnv("AI_CHAT_URL"),
			ChatKey:         util.GetEnv("AI_CHAT_KEY"),
		})
	}

	extractor, err := ai.NewLLMExtractor(ai.NewLLMExtractorParams{
		Client:        client,
		Model:         util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
		Encoder:       util.GetEnvString("AI_TOKEN_ENCODER", "cl100k_base"),
		MaxUnitTokens: util.GetEnvInt("AI_MAX_UNIT_TOKENS", 1200),
		Concurrency:   util.GetEnvInt("AI_CONCURRENCY", 2),
		MaxAttempts:   util.GetEnvInt("AI_MAX_ATTEMPTS", 3),
	})
	if err != nil {
		logger.Fatal("Could not create extractor", "err", err)
	}
	return extractor
}

// buildArchive prefers the local directory archive; with no directory set but
// an AWS bucket configured, text is archived to S3 instead. Returns nil when
// archival is disabled.
func buildArchive(ctx context.Context, dir string) archive.Store {
	if dir != "" {
		fsStore, err := archive.NewFSStore(dir)
		if err != nil {
			logger.Fatal("Could not create archive directory", "dir", dir, "err", err)
		}
		return fsStore
	}

	if bucket := util.GetEnv("AWS_BUCKET"); bucket != "" {
		s3Store, err := archives3.NewS3Store(ctx, archives3.NewS3StoreParams{
			Region:    util.GetEnv("AWS_REGION"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			Bucket:    bucket,
			Prefix:    util.GetEnvString("AWS_ARCHIVE_PREFIX", "archive"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
		})
		if err != nil {
			logger.Fatal("Could not create S3 archive", "err", err)
		}
		return s3Store
	}

	return nil
}
