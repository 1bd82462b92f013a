package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the playlist API until interrupted. With --open the frontend is opened in the browser.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.cfg()

	host, port, staticDir := config.Server.Host, config.Server.Port, config.Server.StaticDir
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		port = int(cmd.Int("port"))
	}
	if cmd.IsSet("static") {
		staticDir = cmd.String("static")
	}

	engine, db, err := r.engine(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if staticDir != "" {
		if _, err := os.Stat(staticDir); err != nil {
			r.logger.Warn("static directory unavailable, serving API only", "dir", staticDir, "error", err)
			staticDir = ""
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := server.NewRouter(engine, staticDir, r.logger)
	srv := server.New(host, port, router, r.logger)

	ln, err := net.Listen("tcp", srv.Addr())
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", srv.Addr())
	}
	url := "http://" + ln.Addr().String()
	r.logger.Info("listening", "url", url, "routes", router.Routes())

	if cmd.Bool("open") {
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("could not open browser", "url", url, "error", err)
		}
	}

	return srv.Serve(ctx, ln)
}
