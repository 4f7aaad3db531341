/*
 * This file is part of Leining App (https://github.com/binyominzeev/leining-app).
 * Copyright (C) 2025 Binyomin Zeev
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/binyominzeev/leining-app/internal/config"
	"github.com/binyominzeev/leining-app/internal/logging"
	"github.com/binyominzeev/leining-app/internal/messaging"
	"github.com/binyominzeev/leining-app/internal/server"
	"github.com/binyominzeev/leining-app/internal/storage"
)

func main() {
	// Local development overrides, missing file is fine
	_ = godotenv.Load()

	// Initialize structured logging
	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		logging.LogError(err, "Invalid configuration")
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Storage.DBPath})
	if err != nil {
		logging.LogError(err, "Failed to open database")
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	store := storage.NewPracticeAttemptsStore(db)

	var natsService *messaging.NATSService
	if cfg.NATS.Enabled {
		natsService = messaging.NewNATSService(cfg.NATS)
		if err := natsService.Connect(); err != nil {
			// The hub works without NATS, practice events just stay local
			logging.LogWarn("NATS unavailable, continuing without event publishing", zap.Error(err))
		}
		defer natsService.Close()
	}

	srv, err := server.New(cfg, store, natsService)
	if err != nil {
		logging.LogError(err, "Failed to create server")
		log.Fatalf("Failed to create server: %v", err)
	}

	logging.Sugar.Infow("🚀 leining-hub starting",
		"host", cfg.Server.Host,
		"http_port", cfg.Server.Port,
		"model_size", cfg.Whisper.ModelSize,
		"db_path", cfg.Storage.DBPath,
		"nats_enabled", cfg.NATS.Enabled,
	)

	// Shut down cleanly on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Sugar.Infow("Received shutdown signal", "signal", sig.String())
		if err := srv.Stop(); err != nil {
			logging.LogError(err, "Graceful shutdown failed")
		}
	}()

	if err := srv.Start(); err != nil {
		logging.LogError(err, "Failed to start server")
		log.Fatalf("Failed to start server: %v", err)
	}
}
