package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"encrypted-quest-backend/internal/apiclient"
	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/models"
	"encrypted-quest-backend/internal/quest"
	"encrypted-quest-backend/internal/relayer"
)

var (
	taskFlag = &cli.IntFlag{
		Name:     "task",
		Usage:    fmt.Sprintf("task to claim (1..%d)", models.TaskCount),
		Required: true,
	}
	balanceFlag = &cli.BoolFlag{
		Name:  "balance",
		Usage: "also decrypt the COIN balance",
	}
)

var commandKeygen = &cli.Command{
	Name:  "keygen",
	Usage: "generate a new player key",
	Action: func(c *cli.Context) error {
		signer, err := keys.GenerateSigner()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Address:     %s\n", signer.Address().Hex())
		fmt.Fprintf(c.App.Writer, "Private key: %s\n", signer.PrivateKeyHex())
		return nil
	},
}

var commandAddresses = &cli.Command{
	Name:  "addresses",
	Usage: "print the deployed contract addresses",
	Action: func(c *cli.Context) error {
		api := apiclient.New(c.String(apiFlag.Name))
		d, err := api.Deployment(c.Context)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(c.App.Writer, "TaskGame:      %s\n", d.TaskGame.Hex())
		fmt.Fprintf(c.App.Writer, "Coin:          %s\n", d.Coin.Hex())
		fmt.Fprintf(c.App.Writer, "InputVerifier: %s\n", d.InputVerifier.Hex())
		fmt.Fprintf(c.App.Writer, "ChainID:       %d\n", d.ChainID)
		return nil
	},
}

var commandTasks = &cli.Command{
	Name:  "tasks",
	Usage: "list the quest board",
	Action: func(c *cli.Context) error {
		api := apiclient.New(c.String(apiFlag.Name))
		tasks, err := api.GetTasks(c.Context)
		if err != nil {
			return fail(err)
		}
		for _, t := range tasks {
			fmt.Fprintf(c.App.Writer, "%d. %s (%s COIN)\n", t.ID, t.Name, models.FormatCoin(t.Reward))
		}
		return nil
	},
}

var commandJoin = &cli.Command{
	Name:  "join",
	Usage: "join the quest",
	Action: func(c *cli.Context) error {
		client, err := connect(c, false)
		if err != nil {
			return fail(err)
		}
		receipt, err := client.Join(c.Context)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(c.App.Writer, "Joined in %s (block %d)\n", receipt.TxHash, receipt.Block)
		return nil
	},
}

var commandClaim = &cli.Command{
	Name:  "claim",
	Usage: "submit an encrypted claim for a task",
	Flags: []cli.Flag{taskFlag},
	Action: func(c *cli.Context) error {
		task := c.Int(taskFlag.Name)
		if err := models.ValidateTaskID(task, models.TaskCount); err != nil {
			return fail(err)
		}
		client, err := connect(c, true)
		if err != nil {
			return fail(err)
		}
		receipt, err := client.Claim(c.Context, task)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(c.App.Writer, "Claim submitted in %s (block %d)\n", receipt.TxHash, receipt.Block)
		return nil
	},
}

var commandDecryptMask = &cli.Command{
	Name:  "decrypt-mask",
	Usage: "decrypt your task progress",
	Flags: []cli.Flag{balanceFlag},
	Action: func(c *cli.Context) error {
		client, err := connect(c, true)
		if err != nil {
			return fail(err)
		}
		progress, err := client.DecryptProgress(c.Context, c.Bool(balanceFlag.Name))
		if err != nil {
			return fail(err)
		}
		for _, tp := range progress.Tasks {
			fmt.Fprintf(c.App.Writer, "Task %d: %s\n", tp.Task.ID, tp.Status)
		}
		if progress.HasBalance {
			fmt.Fprintf(c.App.Writer, "Balance: %s COIN\n", models.FormatCoin(progress.Balance))
		}
		return nil
	},
}

// connect signs in with --key and returns a quest client. withRelayer also
// fetches the network key for encryption and decryption.
func connect(c *cli.Context, withRelayer bool) (*quest.Client, error) {
	if c.String(keyFlag.Name) == "" {
		return nil, fmt.Errorf("--key is required")
	}
	signer, err := keys.SignerFromHex(c.String(keyFlag.Name))
	if err != nil {
		return nil, err
	}

	api := apiclient.New(c.String(apiFlag.Name))
	if _, err := api.Login(c.Context, signer); err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(c.App.ErrWriter)
	log.SetLevel(logrus.WarnLevel)

	client := quest.NewClient(api, relayer.New(api), signer, log)
	if withRelayer {
		if err := client.Init(c.Context); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// playerError prints the player-facing message and keeps the cause for
// errors.Is.
type playerError struct {
	err error
}

func (e *playerError) Error() string { return quest.Message(e.err) }

func (e *playerError) Unwrap() error { return e.err }

func fail(err error) error {
	return &playerError{err: err}
}
