// Command dbmeta serves table metadata of one database over HTTP.
//
// Run with:
//
//	go run ./cmd/dbmeta -config dbmeta.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koustreak/dbmeta/internal/config"
	"github.com/koustreak/dbmeta/internal/connect"
	"github.com/koustreak/dbmeta/internal/logger"
	"github.com/koustreak/dbmeta/internal/metaapi"
)

func main() {
	path := flag.String("config", "dbmeta.yaml", "path to the configuration file")
	flag.Parse()

	config.LoadEnv(".env", ".env.local")
	cfg, err := config.Load(*path)
	if err != nil {
		logger.Global().Errorf("load config: %v", err)
		os.Exit(1)
	}

	log := logger.New(&cfg.Log)
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := connect.Open(ctx, cfg, log)
	if err != nil {
		log.ErrorWith("connect failed", err, map[string]any{"driver": string(cfg.Database.Driver)})
		os.Exit(1)
	}
	defer conn.Close()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           metaapi.New(conn.Store, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.InfoWith("serving metadata", map[string]any{"addr": cfg.HTTP.Addr})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.ErrorWith("server failed", err, nil)
	}
}
