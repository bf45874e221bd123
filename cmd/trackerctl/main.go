package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"familyhub-tracker/internal/config"
	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "trackerctl",
	Short:         "FamilyHub tracker maintenance",
	Long:          "Maintenance commands for the FamilyHub development tracker: schema migration, sample data and data export.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("db", "", "database DSN (defaults to DB_DSN)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (defaults to LOG_LEVEL)")
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(exportCmd())
}

// env даёт значения по умолчанию, флаги и TRACKER_* их перекрывают
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("db"); v != "" {
		cfg.DBDSN = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withDB открывает базу, накатывает схему и отдаёт её в fn.
func withDB(cmd *cobra.Command, fn func(cfg *config.Config, db *gorm.DB, lg zerolog.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lg, closer := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		JSON:    cfg.LogJSON,
		Console: cmd.ErrOrStderr(),
	})
	defer closer.Close()

	db, err := database.Open(cfg.DBDSN, lg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	return fn(cfg, db, lg)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(cfg *config.Config, db *gorm.DB, lg zerolog.Logger) error {
				if err := database.EnsureManager(db, cfg.AdminUsername, cfg.AdminPassword, lg); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			})
		},
	}
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
