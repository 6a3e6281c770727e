package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/jordankuhns/readwise-twos-sync/internal/crypto"
)

// GenKeyCommand prints a fresh base64-encoded AES-256 key.
type GenKeyCommand struct{}

// NewGenKeyCommand creates a new GenKeyCommand.
func NewGenKeyCommand() *GenKeyCommand {
	return &GenKeyCommand{}
}

// ParseFlags parses command line flags.
func (cmd *GenKeyCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("genkey", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s genkey\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate an encryption key for the ENCRYPTION_KEY environment variable.\n")
	}
	return fs.Parse(args)
}

// Run executes the genkey command.
func (cmd *GenKeyCommand) Run() error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}
