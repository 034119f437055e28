package main

import (
	"context"
	"os"

	"github.com/yigit/diplomaregistry/internal/pkg/logger"
	"github.com/yigit/diplomaregistry/internal/server"
)

// @title Diploma Registry API
// @version 1.0
// @description Issues diplomas as content-addressed documents and ledger tokens

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:3000
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	srv, err := server.NewServer(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
