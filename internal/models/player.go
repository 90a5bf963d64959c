package models

// PlayerRecord is the ledger state kept per address. Joined is the only
// plaintext field.
type PlayerRecord struct {
	Address       Address `json:"address"`
	Joined        bool    `json:"joined"`
	TaskMask      Handle  `json:"task_mask"`
	BalanceHandle Handle  `json:"balance_handle"`
	JoinedBlock   uint64  `json:"joined_block"`
}

// Deployment lists the contract addresses of a running quest.
type Deployment struct {
	TaskGame      Address `json:"task_game"`
	Coin          Address `json:"coin"`
	InputVerifier Address `json:"input_verifier"`
	ChainID       uint64  `json:"chain_id"`
}

type CoinMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type TaskStatus string

const (
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusPending   TaskStatus = "pending"
)

type TaskProgress struct {
	Task   Task       `json:"task"`
	Status TaskStatus `json:"status"`
}

// Progress is the decrypted view of a player's quest.
type Progress struct {
	Address    Address        `json:"address"`
	Mask       uint64         `json:"mask"`
	Balance    uint64         `json:"balance"`
	HasBalance bool           `json:"has_balance"`
	Tasks      []TaskProgress `json:"tasks"`
}

// NewProgress expands a decrypted mask into per-task statuses.
func NewProgress(addr Address, tasks []Task, mask uint64) *Progress {
	p := &Progress{Address: addr, Mask: mask}
	for _, t := range tasks {
		status := TaskStatusPending
		if mask&t.Bit() != 0 {
			status = TaskStatusCompleted
		}
		p.Tasks = append(p.Tasks, TaskProgress{Task: t, Status: status})
	}
	return p
}
