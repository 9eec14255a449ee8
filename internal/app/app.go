package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"syscall"

	"golang.org/x/term"

	"github.com/andy/timekeeper/internal/clock"
	"github.com/andy/timekeeper/internal/config"
	"github.com/andy/timekeeper/internal/crypto"
	"github.com/andy/timekeeper/internal/db"
	"github.com/andy/timekeeper/internal/logger"
	"github.com/andy/timekeeper/internal/repository"
	"github.com/andy/timekeeper/internal/repository/boltrepo"
	"github.com/andy/timekeeper/internal/service"
)

// App is the dependency injection container for all application components
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Clock  clock.Clock

	// Storage
	Store *repository.Store

	// Services
	TimerService service.TimerService
	EntryService service.EntryService
	StatsService service.StatsService

	logCloser io.Closer
}

// NewWithConfig creates an App from cfg, initializing all dependencies.
// It handles:
// 1. Opening the configured store (asking the keyring for the SQLite key)
// 2. Running migrations
// 3. Creating services
func NewWithConfig(ctx context.Context, cfg *config.Config, keyring crypto.Keyring) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Ensure all necessary directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	log, logCloser, err := logger.New(logger.Options{
		Path:       cfg.Log.Path,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := openStore(cfg, keyring)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		store.Close()
		logCloser.Close()
		return nil, err
	}

	clk := clock.System{}
	rate := cfg.DefaultRate()

	log.DebugContext(ctx, "timekeeper started", "driver", cfg.Database.Driver, "user_id", cfg.User.ID)

	return &App{
		Config:       cfg,
		Logger:       log,
		Clock:        clk,
		Store:        store,
		TimerService: service.NewTimerService(store.Timers, store.Audit, clk, rate, log),
		EntryService: service.NewEntryService(store.Entries, store.Audit, clk, rate, log),
		StatsService: service.NewStatsService(store.Entries, store.Audit, clk, loc, log),
		logCloser:    logCloser,
	}, nil
}

func openStore(cfg *config.Config, keyring crypto.Keyring) (*repository.Store, error) {
	if cfg.Database.Driver == config.DriverBolt {
		store, err := boltrepo.NewStore(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store, nil
	}

	password, err := databaseKey(keyring)
	if err != nil {
		return nil, err
	}

	// Open the database with encryption
	database, err := db.Open(cfg.Database.Path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run migrations to ensure schema is up to date
	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repository.NewSQLiteStore(database), nil
}

// databaseKey returns the stored key, prompting for a new one on first run
func databaseKey(keyring crypto.Keyring) (string, error) {
	password, err := keyring.GetKey()
	if err == nil {
		return password, nil
	}
	if !errors.Is(err, crypto.ErrNoKey) {
		return "", err
	}

	// No key exists, prompt user to set one
	fmt.Println("Setting up database encryption for the first time...")
	password, err = promptForPassword()
	if err != nil {
		return "", fmt.Errorf("failed to set password: %w", err)
	}

	// Store the key in keyring
	if err := keyring.SetKey(password); err != nil {
		return "", fmt.Errorf("failed to store encryption key: %w", err)
	}

	return password, nil
}

// Close cleanly shuts down the application
func (a *App) Close() error {
	var errs []error
	if a.Store != nil && a.Store.Close != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}

// UserID returns the identity every operation runs as
func (a *App) UserID() string {
	return a.Config.User.ID
}

// promptForPassword prompts user for a new database password (first run)
// This should be called when keyring has no stored key
func promptForPassword() (string, error) {
	fmt.Println()
	fmt.Println("Your timesheets will be encrypted with a password.")
	fmt.Println("This password will be stored securely in your system keyring.")
	fmt.Println()
	fmt.Print("Enter a password for database encryption: ")

	// Read password securely (no echo)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}

	// Confirm password
	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // New line after confirmation
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	// Check if passwords match
	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}

	fmt.Println()
	fmt.Println("✓ Database encryption configured successfully")
	fmt.Println()

	return string(password), nil
}

// SaveConfig saves the current configuration to path, or the default config
// path when path is empty
func (a *App) SaveConfig(path string) error {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return a.Config.Save(path)
}
