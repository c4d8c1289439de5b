package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/statutelab/lexgraph/internal/queue"
	"github.com/statutelab/lexgraph/internal/util"
	"github.com/statutelab/lexgraph/pkg/ai"
	aiollama "github.com/statutelab/lexgraph/pkg/ai/ollama"
	aiopenai "github.com/statutelab/lexgraph/pkg/ai/openai"
	"github.com/statutelab/lexgraph/pkg/archive"
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

// maxRetries is how often a message is requeued before landing in the DLQ.
const maxRetries = 10

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	})
	logger.Init(consoleLogger)

	graphStore, cleanup := buildStore(ctx)
	defer cleanup()

	cp := checkpoint.New(util.GetEnv("CHECKPOINT_PATH"))
	cp.Load()

	var archiveStore archive.Store
	if dir := util.GetEnv("ARCHIVE_DIR"); dir != "" {
		fsStore, err := archive.NewFSStore(dir)
		if err != nil {
			logger.Fatal("Could not create archive directory", "dir", dir, "err", err)
		}
		archiveStore = fsStore
	}

	ing, err := ingest.NewIngestor(ingest.NewIngestorParams{
		Fetcher:       fetch.NewRouter(fetchweb.NewWebFetcher(), fetchfile.NewFileFetcher()),
		Extractor:     buildExtractor(),
		Store:         graphStore,
		Checkpoint:    cp,
		Archive:       archiveStore,
		Concurrency:   1, // one message at a time, prefetch enforces the same
		SkipExisting:  util.GetEnvBool("SKIP_EXISTING", true),
		MinContentLen: util.GetEnvInt("MIN_CONTENT_LEN", 64),
	})
	if err != nil {
		logger.Fatal("Could not create ingestor", "err", err)
	}

	conn := queue.Init()
	defer conn.Close()

	setupCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer setupCh.Close()
	if err := queue.SetupQueues(setupCh, []string{queue.IngestQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()
	if err := consumerCh.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.IngestQueue,
		"ingest_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.IngestQueue, "err", err)
	}

	logger.Info("Listening for ingest jobs")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed, exiting...")
				return
			}
			if err := processMessage(ctx, ing, msg.Body); err != nil {
				logger.Error("Error processing message", "err", err)
				handleProcessingError(consumerCh, msg)
				continue
			}
			if err := msg.Ack(false); err != nil {
				logger.Error("Failed to ack message", "err", err)
			}
		}
	}
}

// processMessage parses one manifest entry from the message body and runs it
// through the pipeline. A failed entry fails the message so it is retried.
func processMessage(ctx context.Context, ing *ingest.Ingestor, body []byte) error {
	entries, err := manifest.Read(strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to parse job: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("job contains no valid manifest entry: %s", body)
	}

	summary := ing.Run(ctx, entries)
	logger.Info("Job complete",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"entities_added", summary.EntitiesAdded,
		"edges_added", summary.EdgesAdded)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d entries failed", summary.Failed, summary.Total)
	}
	return nil
}

// handleProcessingError republishes a failed message to the retry queue, or
// to the DLQ once it has exhausted its retries.
func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	if retries >= maxRetries {
		dlqName := queue.IngestQueue + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		if err := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		); err != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", err)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = int32(retries + 1)

	retryName := queue.IngestQueue + "_retry"
	if err := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	); err != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", err)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

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
