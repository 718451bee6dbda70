package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dhumphrey11/comoda-backfill/internal/backfill"
	"github.com/dhumphrey11/comoda-backfill/internal/config"
	"github.com/dhumphrey11/comoda-backfill/internal/domain"
	"github.com/dhumphrey11/comoda-backfill/internal/export"
	"github.com/dhumphrey11/comoda-backfill/internal/fetch"
	"github.com/dhumphrey11/comoda-backfill/internal/logging"
	"github.com/dhumphrey11/comoda-backfill/internal/provider"
	"github.com/dhumphrey11/comoda-backfill/internal/sink"
	"github.com/dhumphrey11/comoda-backfill/internal/storage"
	chstore "github.com/dhumphrey11/comoda-backfill/internal/storage/clickhouse"
	"github.com/dhumphrey11/comoda-backfill/internal/storage/memory"
	"github.com/dhumphrey11/comoda-backfill/internal/storage/migrations"
	pgstore "github.com/dhumphrey11/comoda-backfill/internal/storage/postgres"
)

func main() {
	providerName := flag.String("provider", "", "Data provider: coinapi, cryptopanic, lunarcrush, santiment, or yahoo")
	start := flag.String("start", "", "Start date YYYY-MM-DD (inclusive)")
	end := flag.String("end", "", "End date YYYY-MM-DD (inclusive)")
	tokens := flag.String("tokens", "", "Comma-separated token symbols, e.g. BTC,ETH")
	symbols := flag.String("symbols", "", "Comma-separated macro symbols, e.g. ^GSPC,DX-Y.NYB (yahoo provider)")
	tokensFile := flag.String("tokens-file", "", "JSON file with a token symbol array (alternative to --tokens)")
	runID := flag.String("run-id", "", "Backfill run identifier")
	envPath := flag.String("env", config.DefaultEnvPath, "Env file with API keys and database credentials")
	exportsDir := flag.String("exports-dir", "", "Export snapshot directory (defaults to EXPORTS_DIR or ./exports)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	rps := flag.Float64("rps", 5, "Client-side request pacing per second (0 to disable)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	logger := logging.New(*logLevel)
	defer logger.Sync()

	if err := run(logger, runParams{
		provider:   domain.Provider(strings.ToLower(*providerName)),
		start:      *start,
		end:        *end,
		tokens:     *tokens,
		symbols:    *symbols,
		tokensFile: *tokensFile,
		runID:      *runID,
		envPath:    *envPath,
		exportsDir: *exportsDir,
		useMemory:  *useMemory,
		rps:        *rps,
	}); err != nil {
		logger.Error("backfill failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

type runParams struct {
	provider   domain.Provider
	start      string
	end        string
	tokens     string
	symbols    string
	tokensFile string
	runID      string
	envPath    string
	exportsDir string
	useMemory  bool
	rps        float64
}

func run(logger *zap.Logger, params runParams) error {
	if !params.provider.IsValid() {
		return fmt.Errorf("unknown or missing --provider %q", params.provider)
	}
	if params.runID == "" {
		return fmt.Errorf("--run-id is required")
	}

	window, err := parseWindow(params.start, params.end)
	if err != nil {
		return err
	}

	tokenList, err := resolveTokens(params)
	if err != nil {
		return err
	}

	settings, err := config.Load(params.envPath)
	if err != nil {
		return err
	}
	if params.exportsDir != "" {
		settings.ExportsDir = params.exportsDir
	}

	// Configuration assertion: runs before any network or DB activity.
	apiKey, err := settings.RequireKey(params.provider)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	ctx := context.Background()

	adapter := buildAdapter(params.provider, apiKey, params.rps, logger)

	store, mirror, cleanup, err := buildStores(ctx, settings, params.useMemory, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	runSink := sink.New(sink.Options{
		Store:    store,
		Mirror:   mirror,
		Exporter: export.NewExporter(settings.ExportsDir),
		Logger:   logger,
	})

	coordinator := backfill.NewCoordinator(backfill.Options{
		Adapter: adapter,
		Sink:    runSink,
		Logger:  logger,
	})

	summary, err := coordinator.Run(ctx, tokenList, window, params.runID)
	if err != nil {
		return err
	}

	logger.Info("backfill complete",
		zap.String("provider", params.provider.String()),
		zap.String("run_id", summary.RunID),
		zap.Int("accepted", summary.Accepted),
		zap.Int("failed_items", len(summary.FailedItems)),
	)
	return nil
}

func parseWindow(start, end string) (provider.DateWindow, error) {
	if start == "" || end == "" {
		return provider.DateWindow{}, fmt.Errorf("--start and --end are required")
	}
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return provider.DateWindow{}, fmt.Errorf("parse --start: %w", err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return provider.DateWindow{}, fmt.Errorf("parse --end: %w", err)
	}
	return provider.NewDateWindow(s, e)
}

// resolveTokens picks the symbol list: --symbols for the macro provider,
// --tokens or --tokens-file otherwise.
func resolveTokens(params runParams) ([]string, error) {
	if params.provider == domain.ProviderYahoo {
		list := splitList(params.symbols)
		if len(list) == 0 {
			return nil, fmt.Errorf("--symbols is required for the yahoo provider")
		}
		return list, nil
	}

	if params.tokensFile != "" {
		return config.LoadTokenUniverse(params.tokensFile)
	}

	list := splitList(params.tokens)
	if len(list) == 0 {
		return nil, fmt.Errorf("--tokens is required")
	}
	return list, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func buildAdapter(p domain.Provider, apiKey string, rps float64, logger *zap.Logger) provider.Adapter {
	opts := []fetch.Option{fetch.WithLogger(logger)}
	if rps > 0 {
		opts = append(opts, fetch.WithLimiter(rate.NewLimiter(rate.Limit(rps), 1)))
	}
	executor := fetch.NewExecutor(p, opts...)

	switch p {
	case domain.ProviderCoinAPI:
		return provider.NewCoinAPI(executor, apiKey)
	case domain.ProviderCryptoPanic:
		return provider.NewCryptoPanic(executor, apiKey)
	case domain.ProviderLunarCrush:
		return provider.NewLunarCrush(executor, apiKey)
	case domain.ProviderSantiment:
		return provider.NewSantiment(executor, apiKey)
	case domain.ProviderYahoo:
		return provider.NewYahoo(executor)
	}
	return nil
}

// buildStores connects the durable store (and optional columnar mirror)
// and applies idempotent schema migrations once, before any write.
func buildStores(ctx context.Context, settings config.Settings, useMemory bool, logger *zap.Logger) (store, mirror storage.BatchStore, cleanup func(), err error) {
	cleanup = func() {}

	if useMemory {
		return memory.NewBatchStore(), nil, cleanup, nil
	}

	pool, err := pgstore.NewPool(ctx, settings.PostgresDSN())
	if err != nil {
		return nil, nil, cleanup, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, cleanup, fmt.Errorf("apply postgres migrations: %w", err)
	}
	store = pgstore.NewBatchStore(pool)

	var chConn *chstore.Conn
	if settings.ClickhouseDSN != "" {
		chConn, err = chstore.NewConn(ctx, settings.ClickhouseDSN)
		if err != nil {
			// The mirror is optional; the durable store carries the run.
			logger.Warn("clickhouse mirror unavailable", zap.Error(err))
		} else if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
			logger.Warn("clickhouse migrations failed, mirror disabled", zap.Error(err))
			chConn.Close()
			chConn = nil
		}
		if chConn != nil {
			mirror = chstore.NewBatchStore(chConn)
		}
	}

	cleanup = func() {
		if chConn != nil {
			chConn.Close()
		}
		pool.Close()
	}
	return store, mirror, cleanup, nil
}
