package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/simonhull/audiounlock"
	"github.com/simonhull/audiounlock/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	s := &a.cfg.Server
	var persist bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an interactive decode session over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd, persist)
		},
	}

	flags := cmd.Flags()
	addDecodeFlags(flags, &a.cfg.Batch)
	flags.StringVar(&s.Listen, "listen", s.Listen, "listen address")
	flags.Int64Var(&s.MaxUpload, "max-upload", s.MaxUpload, "maximum upload request size in bytes")
	flags.IntVar(&s.EventBuffer, "event-buffer", s.EventBuffer, "number of events kept for late clients")
	flags.BoolVar(&persist, "persist", false, "also write decoded files to the output directory")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, persist bool) error {
	ctx := cmd.Context()
	events := audiounlock.NewEventBus(a.cfg.Server.EventBuffer)

	opts := []audiounlock.RunOption{
		audiounlock.WithReporter(events),
		audiounlock.WithDecodeOptions(a.decodeOptions()...),
		audiounlock.WithLogger(a.logger),
	}
	if persist {
		opts = append(opts, audiounlock.WithSink(audiounlock.NewDirSink(a.cfg.Batch.OutputDir)))
	}
	session := audiounlock.NewSession(opts...)
	defer session.Close()

	srv, err := server.New(server.Options{
		Session:   session,
		Events:    events,
		Logger:    a.logger,
		MaxUpload: a.cfg.Server.MaxUpload,
	})
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start(a.cfg.Server.Listen)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
