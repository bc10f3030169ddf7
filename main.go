package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/IliaW/util-cli/config"
	"github.com/IliaW/util-cli/internal/cli"
	"github.com/go-sql-driver/mysql"
	"github.com/lmittmann/tint"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	cfg   *config.Config
	store *config.Store
	log   *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(ctx, stop, os.Stdout)
	err := root.Execute(os.Args[1:])
	stop()
	if err != nil && !errors.Is(err, cli.ErrHelp) {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func setupLogger(level, logType string, out io.Writer) *slog.Logger {
	resolvedLogLevel := func() slog.Level {
		switch strings.ToLower(level) {
		case "debug":
			return slog.LevelDebug
		case "info":
			return slog.LevelInfo
		case "warn", "warning":
			return slog.LevelWarn
		default:
			return slog.LevelError
		}
	}

	replaceAttrs := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			if source, ok := a.Value.Any().(*slog.Source); ok {
				source.File = filepath.Base(source.File)
			}
		}
		return a
	}

	var logger *slog.Logger
	if strings.ToLower(logType) == "json" {
		logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			AddSource:   true,
			Level:       resolvedLogLevel(),
			ReplaceAttr: replaceAttrs}))
	} else {
		logger = slog.New(tint.NewHandler(out, &tint.Options{
			AddSource:   true,
			Level:       resolvedLogLevel(),
			ReplaceAttr: replaceAttrs,
			NoColor:     false}))
	}

	slog.SetDefault(logger)
	logger.Debug("debug messages are enabled.")

	return logger
}

func setupDatabase(ctx context.Context, dbCfg *config.DatabaseConfig) (*sql.DB, error) {
	log.Info("connecting to the database...")
	sqlCfg := mysql.Config{
		User:                 dbCfg.User,
		Passwd:               dbCfg.Password,
		Net:                  "tcp",
		Addr:                 fmt.Sprintf("%s:%s", dbCfg.Host, dbCfg.Port),
		DBName:               dbCfg.Name,
		AllowNativePasswords: true,
		ParseTime:            true,
	}
	database, err := sql.Open("mysql", sqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}
	database.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
	database.SetMaxOpenConns(dbCfg.MaxOpenConns)
	database.SetMaxIdleConns(dbCfg.MaxIdleConns)

	maxRetry := 3
	for i := 1; i <= maxRetry; i++ {
		log.Info("ping the database.", slog.String("attempt", fmt.Sprintf("%d/%d", i, maxRetry)))
		pingErr := database.PingContext(ctx)
		if pingErr == nil {
			break
		}
		log.Error("not responding.", slog.String("err", pingErr.Error()))
		if i == maxRetry {
			database.Close()
			return nil, fmt.Errorf("failed to establish database connection: %w", pingErr)
		}
		log.Info(fmt.Sprintf("wait %d seconds", i))
		select {
		case <-time.After(time.Duration(i) * time.Second):
		case <-ctx.Done():
			database.Close()
			return nil, ctx.Err()
		}
	}
	log.Info("connected to the database!")

	return database, nil
}

func closeDatabase(db *sql.DB) {
	log.Info("closing database connection.")
	if err := db.Close(); err != nil {
		log.Error("failed to close database connection.", slog.String("err", err.Error()))
	}
}
