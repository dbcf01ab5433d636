package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/melvin/internal/buildinfo"
	"github.com/dmitrijs2005/melvin/internal/client/cli"
	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/config"
	"github.com/dmitrijs2005/melvin/internal/client/localdb"
	"github.com/dmitrijs2005/melvin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/melvin/internal/client/services"
	"github.com/dmitrijs2005/melvin/internal/client/session"
	"github.com/dmitrijs2005/melvin/internal/filex"
	"github.com/dmitrijs2005/melvin/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}

}

func run(ctx context.Context, cfg *config.Config) error {
	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(filepath.Join(dir, "melvin.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := logging.NewJSONLogger(logFile, cfg.Verbose)

	db, err := localdb.Open(ctx, filepath.Join(dir, "melvin.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	sess := session.New(session.NewTokenStore(metadata.NewSQLiteRepository(db)))

	// Notices are printed by the app, which needs the services first.
	var app *cli.App
	notifier := client.NotifierFunc(func(ctx context.Context, msg string) { app.Notify(ctx, msg) })

	gateway := client.NewHTTPClient(cfg.ServerBaseURL, cfg.RequestTimeout, sess, notifier, logger)
	svc := services.New(gateway, sess, db, services.ArchiveConfig{
		Bucket:    cfg.ArchiveBucket,
		Region:    cfg.ArchiveRegion,
		Endpoint:  cfg.ArchiveEndpoint,
		AccessKey: cfg.ArchiveAccessKey,
		SecretKey: cfg.ArchiveSecretKey,
	}, logger)
	app = cli.NewApp(cfg, svc, logger)

	logger.Info(ctx, "client started", "server", cfg.ServerBaseURL, "data_dir", dir)
	app.Run(ctx)
	return nil
}
