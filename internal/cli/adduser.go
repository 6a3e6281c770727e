package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/jordankuhns/readwise-twos-sync/internal/config"
	"github.com/jordankuhns/readwise-twos-sync/internal/crypto"
	"github.com/jordankuhns/readwise-twos-sync/internal/database"
	"github.com/jordankuhns/readwise-twos-sync/internal/database/credentials"
	"github.com/jordankuhns/readwise-twos-sync/internal/database/users"
	"github.com/jordankuhns/readwise-twos-sync/internal/entities"
)

// AddUserCommand registers a user and stores their credentials, reading the
// tokens from the environment so they never appear in shell history.
type AddUserCommand struct {
	DatabasePath string
	Email        string
	Name         string
	SyncTime     string
	Frequency    string
	DaysBack     int
}

// NewAddUserCommand creates a new AddUserCommand.
func NewAddUserCommand() *AddUserCommand {
	return &AddUserCommand{}
}

// ParseFlags parses command line flags.
func (cmd *AddUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("adduser", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.Email, "email", "", "User email (required)")
	fs.StringVar(&cmd.Name, "name", "", "Display name")
	fs.StringVar(&cmd.SyncTime, "sync-time", "09:00", "Daily sync time, HH:MM 24h")
	fs.StringVar(&cmd.Frequency, "frequency", "daily", "Sync frequency: daily or weekly")
	fs.IntVar(&cmd.DaysBack, "days-back", 7, "Bootstrap window in days for the first sync")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s adduser -email <email> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a user and store their API credentials (encrypted).\n\n")
		fmt.Fprintf(os.Stderr, "Requires ENCRYPTION_KEY plus the credential environment variables\n")
		fmt.Fprintf(os.Stderr, "(READWISE_TOKEN, TWOS_USER_ID/TWOS_TOKEN, CAPACITIES_*).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Email == "" {
		return fmt.Errorf("-email is required")
	}

	frequency := entities.SyncFrequency(cmd.Frequency)
	if frequency != entities.SyncFrequencyDaily && frequency != entities.SyncFrequencyWeekly {
		return fmt.Errorf("frequency must be daily or weekly, got %q", cmd.Frequency)
	}

	return nil
}

// Run executes the adduser command.
func (cmd *AddUserCommand) Run() error {
	cfg := config.NewConfig()

	if cfg.Crypto.Key == "" {
		return fmt.Errorf("ENCRYPTION_KEY is not set; generate one with the 'genkey' subcommand")
	}
	encryptor, err := crypto.NewEncryptorFromBase64(cfg.Crypto.Key)
	if err != nil {
		return fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
	}

	if cfg.Readwise.Token == "" {
		return fmt.Errorf("READWISE_TOKEN is not set")
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	userRepo := users.NewRepository(db.DB)
	user, err := userRepo.CreateUser(cmd.Email, cmd.Name)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.SyncTime = cmd.SyncTime
	user.SyncFrequency = entities.SyncFrequency(cmd.Frequency)
	user.SyncDaysBack = cmd.DaysBack
	if err := userRepo.UpdateUser(user); err != nil {
		return fmt.Errorf("failed to save sync settings: %w", err)
	}

	credRepo := credentials.NewRepository(db.DB, encryptor)
	err = credRepo.Save(user.ID, credentials.Bundle{
		ReadwiseToken:            cfg.Readwise.Token,
		TwosUserID:               cfg.Twos.UserID,
		TwosToken:                cfg.Twos.Token,
		CapacitiesToken:          cfg.Capacities.Token,
		CapacitiesSpaceID:        cfg.Capacities.SpaceID,
		CapacitiesStructureID:    cfg.Capacities.StructureID,
		CapacitiesTextPropertyID: cfg.Capacities.TextPropertyID,
	})
	if err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("Created user %d (%s), syncing %s at %s\n", user.ID, user.Email, user.SyncFrequency, user.SyncTime)
	return nil
}
