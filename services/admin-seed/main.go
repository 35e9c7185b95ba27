// Command admin-seed provisions the administrator identity. Running it again
// is a no-op once the admin email exists.
package main

import (
	"context"
	"os"
	"time"

	"resolveit/pkg/config"
	"resolveit/pkg/database"
	"resolveit/pkg/logging"
	"resolveit/pkg/security"
	"resolveit/services/case-service/models"
	"resolveit/services/case-service/service"
	"resolveit/services/case-service/store"
)

func main() {
	logger := logging.SetupDefault("admin-seed")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongo, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer mongo.Close(context.Background())

	identities, closeIdentities, err := store.OpenIdentities(ctx, cfg, mongo.DB)
	if err != nil {
		logger.Error("failed to open identity store", "error", err)
		os.Exit(1)
	}
	defer closeIdentities()

	// uploads are never touched when provisioning
	auth := service.NewAuthenticator(identities, security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), nil, nil)

	admin := models.Identity{
		UserName:    "Admin",
		Age:         30,
		Gender:      "other",
		Street:      "Admin Street",
		City:        "Admin City",
		ZipCode:     "00000",
		Email:       cfg.AdminEmail,
		PhoneNumber: "+10000000000",
	}
	created, err := auth.Provision(ctx, admin, cfg.AdminPassword)
	if err != nil {
		logger.Error("failed to provision admin", "error", err)
		os.Exit(1)
	}
	if !created {
		logger.Info("admin already exists", "email", cfg.AdminEmail)
		return
	}
	logger.Info("admin provisioned", "email", cfg.AdminEmail)
}
