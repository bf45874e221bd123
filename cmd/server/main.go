package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/config"
	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/logging"
	"familyhub-tracker/internal/server"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	lg, closer := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, JSON: cfg.LogJSON})
	defer closer.Close()

	if lg.GetLevel() > 0 {
		gin.SetMode(gin.ReleaseMode)
	}

	err = database.Init(database.Options{DSN: cfg.DBDSN, Logger: lg}, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		lg.Fatal().Err(err).Msg("database init failed")
	}

	r, err := server.NewRouter(cfg, server.Deps{Logger: lg, Clock: clock.Real{}})
	if err != nil {
		lg.Fatal().Err(err).Msg("router init failed")
	}

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	lg.Info().Str("addr", addr).Msg("starting server")
	if err := r.Run(addr); err != nil {
		lg.Fatal().Err(err).Msg("server error")
	}
}
