// Command coolcache-server runs the TCP key/value server: it loads
// configuration, restores any on-disk snapshot, then serves RESP
// connections until terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jameswagner/coolcache/internal/command"
	"github.com/jameswagner/coolcache/internal/config"
	"github.com/jameswagner/coolcache/internal/logging"
	"github.com/jameswagner/coolcache/internal/metrics"
	"github.com/jameswagner/coolcache/internal/persistence"
	"github.com/jameswagner/coolcache/internal/replication"
	"github.com/jameswagner/coolcache/internal/server"
	"github.com/jameswagner/coolcache/internal/store"
	"github.com/jameswagner/coolcache/internal/stream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a TOML config file")
	listen := flag.String("listen", "", "override the listen address")
	replicaOf := flag.String("replicaof", "", "override replicaof as \"host port\"")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *replicaOf != "" {
		cfg.ReplicaOf = *replicaOf
	}

	logger, err := logging.New(*debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	mx := metrics.New()
	st := store.New()
	streams := stream.NewIndex()

	sched := persistence.New(cfg.Dir, cfg.DBFilename, cfg.SaveRules(), st, streams, logger.Named("persistence"), mx)
	if err := sched.LoadIfExists(); err != nil {
		logger.Warn("snapshot load failed, starting empty", zap.Error(err))
	}

	hub := replication.NewHub(logger.Named("replication"), mx)
	dispatcher := command.New(st, streams, sched, hub, logger.Named("command"), mx)

	onPSync := func(ctx context.Context, conn net.Conn, args [][]byte) {
		hub.HandlePSync(ctx, conn, func() (store.Snapshot, map[string][]stream.Entry) {
			return st.Snapshot(), streams.Snapshot()
		}, logger.Named("replication"))
	}
	srv := server.New(cfg.Listen, dispatcher, logger.Named("server"), mx, onPSync)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	g.Go(func() error { return sched.RunAutoSave(gctx) })

	if cfg.ReplicaOf != "" {
		parts := strings.Fields(cfg.ReplicaOf)
		if len(parts) == 2 {
			masterAddr := parts[0] + ":" + parts[1]
			_, myPort, _ := net.SplitHostPort(cfg.Listen)
			client := replication.NewClient(masterAddr, myPort, dispatcher, st, streams, logger.Named("replication"))
			g.Go(func() error { return client.Run(gctx) })
		}
	}

	logger.Info("coolcache-server starting", zap.String("listen", cfg.Listen))
	return g.Wait()
}
