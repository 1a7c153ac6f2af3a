package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chunkvault.dev/internal/config"
	"chunkvault.dev/internal/gen"
	"chunkvault.dev/internal/grid"
	"chunkvault.dev/internal/persistence/chunkdb"
	"chunkvault.dev/internal/protocol"
	"chunkvault.dev/internal/transport/ws"
	"chunkvault.dev/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to chunkvault.yaml (empty: built-in defaults)")
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		seed       = flag.Int64("seed", 0, "world seed (overrides config when non-zero)")
		disableDB  = flag.Bool("disable_db", false, "run without the chunk database (dirty evictions are dropped)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	var sink world.Sink
	if !*disableDB {
		db, err := chunkdb.Open(cfg.DBPath())
		if err != nil {
			logger.Fatalf("open chunk db: %v", err)
		}
		defer db.Close()
		sink = db
		logger.Printf("chunk db at %s", cfg.DBPath())
	}

	g := gen.New(cfg.Seed, gen.Tuning{
		BiomeRegionSize:     cfg.Worldgen.BiomeRegionSize,
		OreProbPermille:     cfg.Worldgen.OreProbPermille,
		TerrainProbPermille: cfg.Worldgen.TerrainProbPermille,
		SprinkleStone:       cfg.Worldgen.SprinkleStone,
		SprinkleDirt:        cfg.Worldgen.SprinkleDirt,
	})
	w := world.New(cfg.CacheLimit, g, sink, logger)

	srv := ws.NewServer(w, protocol.WorldParams{
		ChunkSize:  [2]int{grid.ChunkW, grid.ChunkH},
		Seed:       cfg.Seed,
		CacheLimit: w.Cache().Limit(),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// World goroutine; flushes dirty chunks when ctx ends.
	worldDone := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(worldDone)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", srv.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Fatalf("listen %s: %v", cfg.ListenAddr, err)
	}
	httpSrv := &http.Server{Handler: mux}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shCtx)
	}()

	logger.Printf("listening on %s (seed %d, cache limit %d)", ln.Addr(), cfg.Seed, w.Cache().Limit())
	if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
	<-worldDone
	logger.Printf("shutdown complete")
}
