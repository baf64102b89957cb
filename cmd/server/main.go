// cmd/server/main.go
//
// Battleship server entrypoint. Wires config, store, lobby, connection
// registry, and the admin HTTP surface, then waits for a signal. Shutdown
// stops accepting new connections; live matches play on until their
// sessions end.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/saltwater-games/battleship/internal/admin"
	"github.com/saltwater-games/battleship/internal/config"
	"github.com/saltwater-games/battleship/internal/lobby"
	"github.com/saltwater-games/battleship/internal/server"
	"github.com/saltwater-games/battleship/internal/store"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Server
	if err := config.Parse(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	var st store.Store
	if cfg.NoDB {
		st = store.NewMemoryStore()
	} else {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
		}
		defer db.Close()
		st = db
	}

	lb := lobby.New(st, cfg.GridSize)
	reg := server.New(cfg.GameAddr, lb.OnConnect)
	if err := reg.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start game listener")
	}
	log.Info().Str("addr", cfg.GameAddr).Uint8("grid", cfg.GridSize).Msg("battleship server up")

	go func() {
		adm := admin.New(reg, lb, st)
		log.Info().Str("addr", cfg.HTTPAddr).Msg("admin surface up")
		if err := adm.Start(cfg.HTTPAddr); err != nil {
			log.Fatal().Err(err).Msg("admin server exited")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	if err := reg.Stop(); err != nil {
		log.Warn().Err(err).Msg("stopping listener")
	}
	log.Info().Msg("no longer accepting connections, bye")
}
