// Package cli implements the flag-based subcommands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jordankuhns/readwise-twos-sync/internal/config"
	"github.com/jordankuhns/readwise-twos-sync/internal/database"
	"github.com/jordankuhns/readwise-twos-sync/internal/database/syncruns"
	"github.com/jordankuhns/readwise-twos-sync/internal/database/syncstate"
	"github.com/jordankuhns/readwise-twos-sync/internal/destinations"
	"github.com/jordankuhns/readwise-twos-sync/internal/entities"
	"github.com/jordankuhns/readwise-twos-sync/internal/readwise"
	"github.com/jordankuhns/readwise-twos-sync/internal/syncer"
)

// localUserID keys the watermark and run history for env-credential runs,
// which have no stored user record.
const localUserID = 1

// SyncCommand performs a one-shot sync using credentials from the
// environment. The watermark is persisted in the database so repeated
// invocations stay incremental.
type SyncCommand struct {
	DatabasePath string
	DaysBack     int
}

// NewSyncCommand creates a new SyncCommand.
func NewSyncCommand() *SyncCommand {
	return &SyncCommand{}
}

// ParseFlags parses command line flags.
func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.IntVar(&cmd.DaysBack, "days-back", 7, "Bootstrap window in days when no watermark exists yet")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Sync Readwise highlights to the configured destinations.\n\n")
		fmt.Fprintf(os.Stderr, "Credentials come from the environment:\n")
		fmt.Fprintf(os.Stderr, "  READWISE_TOKEN               (required)\n")
		fmt.Fprintf(os.Stderr, "  TWOS_USER_ID, TWOS_TOKEN     (enables the Twos destination)\n")
		fmt.Fprintf(os.Stderr, "  CAPACITIES_TOKEN, CAPACITIES_SPACE_ID\n")
		fmt.Fprintf(os.Stderr, "                               (enables the Capacities destination)\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the sync command.
func (cmd *SyncCommand) Run() error {
	cfg := config.NewConfig()

	if cfg.Readwise.Token == "" {
		return fmt.Errorf("READWISE_TOKEN is not set")
	}

	var dests []destinations.Client
	if cfg.Twos.UserID != "" && cfg.Twos.Token != "" {
		dests = append(dests, destinations.NewTwosClient(cfg.Twos.UserID, cfg.Twos.Token))
	}
	if cfg.Capacities.Token != "" && cfg.Capacities.SpaceID != "" {
		dests = append(dests, destinations.NewCapacitiesClient(
			cfg.Capacities.Token,
			cfg.Capacities.SpaceID,
			cfg.Capacities.StructureID,
			cfg.Capacities.TextPropertyID,
		))
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var source syncer.SourceClient
	if cfg.Readwise.BaseURL != "" {
		source = readwise.NewClientWithBaseURL(cfg.Readwise.BaseURL)
	} else {
		source = readwise.NewClient()
	}

	engine := syncer.New(source, dests, cliStateStore{
		watermarks: syncstate.NewRepository(db.DB),
		runs:       syncruns.NewRepository(db.DB),
	})

	result, err := engine.Sync(context.Background(), syncer.Params{
		UserID:        localUserID,
		ReadwiseToken: cfg.Readwise.Token,
		DaysBack:      cmd.DaysBack,
	})
	if err != nil {
		return err
	}

	fmt.Println(result.Message)
	return nil
}

// cliStateStore joins the two repositories into the engine's state contract.
type cliStateStore struct {
	watermarks *syncstate.Repository
	runs       *syncruns.Repository
}

func (s cliStateStore) GetWatermark(userID uint) (string, error) {
	return s.watermarks.GetWatermark(userID)
}

func (s cliStateStore) SetWatermark(userID uint, timestamp string) error {
	return s.watermarks.SetWatermark(userID, timestamp)
}

func (s cliStateStore) AppendRun(run *entities.SyncRun) error {
	return s.runs.AppendRun(run)
}
