package models

import "fmt"

const (
	// CoinDecimals is the fixed-point precision of COIN amounts.
	CoinDecimals = 6

	// MaxTasks is bounded by the width of the encrypted completion mask.
	MaxTasks = 64

	coinUnit uint64 = 1_000_000
)

type Task struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Reward      uint64 `json:"reward"`
}

// Bit is the mask bit recording completion of the task.
func (t Task) Bit() uint64 {
	return uint64(1) << uint(t.ID-1)
}

// DefaultTasks is the quest board deployed with the game.
var DefaultTasks = []Task{
	{ID: 1, Name: "Scout the Ruins", Description: "Map the collapsed halls beneath the old observatory.", Reward: 100 * coinUnit},
	{ID: 2, Name: "Silence the Beacon", Description: "Disable the signal fire before the raiders see it.", Reward: 150 * coinUnit},
	{ID: 3, Name: "Recover the Ledger", Description: "Retrieve the sealed merchant ledger from the flooded vault.", Reward: 200 * coinUnit},
	{ID: 4, Name: "Escort the Cartographer", Description: "Keep the cartographer alive across the ashen pass.", Reward: 250 * coinUnit},
	{ID: 5, Name: "Breach the Cipher Gate", Description: "Open the gate that guards the COIN vault.", Reward: 300 * coinUnit},
}

// TaskCount is the number of tasks on the default board.
var TaskCount = len(DefaultTasks)

func ValidateTasks(tasks []Task) error {
	if len(tasks) == 0 {
		return fmt.Errorf("at least one task is required")
	}
	if len(tasks) > MaxTasks {
		return fmt.Errorf("at most %d tasks fit the completion mask, got %d", MaxTasks, len(tasks))
	}
	for i, t := range tasks {
		if t.ID != i+1 {
			return fmt.Errorf("task %d has id %d, ids must be 1..N in order", i+1, t.ID)
		}
		if t.Name == "" {
			return fmt.Errorf("task %d has no name", t.ID)
		}
	}
	return nil
}

func ValidateTaskID(id, count int) error {
	if id < 1 || id > count {
		return fmt.Errorf("%w: task identifier must be between 1 and %d", ErrInvalidTaskID, count)
	}
	return nil
}
