//go:build mage

package main

import (
	"errors"
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/spf13/viper"

	"github.com/pdiddy/fda-label-loader/internal/config"
	"github.com/pdiddy/fda-label-loader/internal/devdb"
	"github.com/pdiddy/fda-label-loader/internal/secrets"
	"github.com/pdiddy/fda-label-loader/pkg/types"
)

// DB groups targets for the local development database container.
type DB mg.Namespace

// devDatabase resolves the database settings the CLI would use.
func devDatabase() (types.DatabaseConfig, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return types.DatabaseConfig{}, err
	}
	sec, err := secrets.Load(config.SecretsDir, nil)
	if err != nil {
		return types.DatabaseConfig{}, err
	}
	v := viper.New()
	config.SetDefaults(v)
	if err := config.BindEnv(v); err != nil {
		return types.DatabaseConfig{}, err
	}
	v.SetConfigName(config.ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	cfg, err := config.Load(v, sec, nil)
	if err != nil {
		return types.DatabaseConfig{}, err
	}
	return cfg.Database, nil
}

// Up starts a SQL Server or PostgreSQL container seeded with the configured
// credentials.
func (DB) Up() error {
	db, err := devDatabase()
	if err != nil {
		return err
	}
	server, err := devdb.ForDatabase(db)
	if errors.Is(err, devdb.ErrNoContainer) {
		fmt.Printf("Driver %s needs no server.\n", db.Driver)
		return nil
	}
	if err != nil {
		return err
	}
	rt, err := devdb.DetectRuntime()
	if err != nil {
		return err
	}
	if err := rt.Start(server); err != nil {
		return err
	}
	fmt.Printf("Started %s (%s) with %s on %s\n", server.Name, server.Image, rt.Name(), server.Port)
	return nil
}

// Down stops the development database container.
func (DB) Down() error {
	rt, err := devdb.DetectRuntime()
	if err != nil {
		return err
	}
	if err := rt.Stop(devdb.DefaultName); err != nil {
		return err
	}
	fmt.Printf("Stopped %s\n", devdb.DefaultName)
	return nil
}
