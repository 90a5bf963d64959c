package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// Commonly used command line flags.
var (
	apiFlag = &cli.StringFlag{
		Name:    "api",
		Usage:   "base URL of the quest API server",
		Value:   "http://localhost:8080",
		EnvVars: []string{"QUEST_API"},
	}
	keyFlag = &cli.StringFlag{
		Name:    "key",
		Usage:   "hex-encoded secp256k1 private key of the player",
		EnvVars: []string{"QUEST_KEY"},
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "questctl",
		Usage: "play the encrypted quest from the command line",
		Flags: []cli.Flag{apiFlag, keyFlag},
		Commands: []*cli.Command{
			commandKeygen,
			commandAddresses,
			commandTasks,
			commandJoin,
			commandClaim,
			commandDecryptMask,
		},
	}
}

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
