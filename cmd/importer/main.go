package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geonames-importer/internal/config"
	"geonames-importer/internal/geonames"
	"geonames-importer/internal/repository"
	"geonames-importer/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	config.RegisterFlags(flags)
	_ = flags.Parse(os.Args[1:])

	configDir, _ := flags.GetString("config")
	cfg, err := config.LoadConfig(configDir, flags)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()
	os.Exit(code)
}

func setupLogger(level string) {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func run(ctx context.Context, cfg config.Config) int {
	open := func(ctx context.Context) (service.LocationStore, error) {
		return repository.Open(ctx, cfg.DBSource, cfg.StoreTable)
	}

	retriever := geonames.NewRetriever(cfg.BaseURL,
		geonames.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		geonames.WithRetries(cfg.DownloadRetries),
		geonames.WithLogger(log.Logger),
	)

	var progress io.Writer = os.Stderr
	if cfg.NoProgress {
		progress = nil
	}

	importer := service.NewImporter(open, retriever, log.Logger, service.Options{
		WorkDir:  cfg.WorkDir,
		Workers:  cfg.DownloadWorkers,
		Progress: progress,
	})

	report, err := importer.Run(ctx, cfg.Request())
	if err != nil {
		var rerr *geonames.RetrievalError
		switch {
		case errors.Is(err, service.ErrStoreUnavailable):
			log.Error().Err(err).Msg("cannot connect to store")
		case errors.As(err, &rerr):
			log.Error().Err(rerr.Err).Str("region", rerr.Region).Str("url", rerr.URL).Msg("download failed")
		case errors.Is(err, context.Canceled):
			log.Warn().Msg("import interrupted")
		default:
			log.Error().Err(err).Msg("import failed")
		}
		return 1
	}

	for _, f := range report.FailedFiles {
		log.Warn().Str("file", f.Path).Int("line", f.Line).Err(f.Err).Msg("file partially imported")
	}

	log.Info().
		Int("files", report.Files).
		Int64("lines", report.Lines).
		Int64("accepted", report.Accepted).
		Int64("inserted", report.Inserted).
		Int64("duplicates", report.Duplicates).
		Int("failed_files", len(report.FailedFiles)).
		Int64("stored", report.Stored).
		Msg("End")
	return 0
}
