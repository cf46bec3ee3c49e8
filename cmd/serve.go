package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/web"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the playlist manager web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the landing page in the default browser",
			},
		},
		Action: r.Serve,
	}
}

// Serve wires the database, Spotify service and web application together and
// runs the HTTP server until it fails or the process is stopped.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	service, err := services.NewSpotifyService(r.config.Spotify)
	if err != nil {
		return fmt.Errorf("failed to configure Spotify service: %w", err)
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	app, err := web.NewApp(web.AppOpts{
		Config:   r.config,
		Service:  service,
		Users:    repositories.NewUserRepository(db),
		Metadata: repositories.NewPlaylistMetadataRepository(db),
		Logger:   r.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build web application: %w", err)
	}

	router := server.NewBasicRouter()
	app.Register(router)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)

	r.writePlain("%s\n", r.palette.Title("mixtape"))
	r.writePlain("%s http://%s\n", r.palette.OK("listening on"), addr)
	r.writePlain("%s\n", r.palette.Help("visit /authorize to log in with Spotify"))

	if cmd.Bool("open") {
		if err := shared.OpenBrowser("http://" + addr); err != nil {
			r.logger.Warnf("failed to open browser: %v", err)
		}
	}

	srv := &http.Server{Addr: addr, Handler: router}
	return srv.ListenAndServe()
}
