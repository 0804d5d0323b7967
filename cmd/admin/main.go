package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/noah-isme/dlool-api/internal/repository"
	"github.com/noah-isme/dlool-api/internal/service"
	"github.com/noah-isme/dlool-api/pkg/config"
	"github.com/noah-isme/dlool-api/pkg/database"
	"github.com/noah-isme/dlool-api/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB); err != nil {
			return err
		}
	}

	users := repository.NewUserRepository(db)
	schools := repository.NewSchoolRepository(db)
	classes := repository.NewClassRepository(db)
	validator := service.NewValidator()
	hasher := service.NewBcryptHasher(cfg.Security.BcryptCost)

	cli := &commandLine{
		org:       service.NewOrgService(schools, classes, validator, nil, logr),
		passwords: service.NewAuthService(users, schools, classes, hasher, validator, nil, logr, service.AuthConfig{}),
		out:       os.Stdout,
	}
	return cli.run(ctx, os.Args)
}
