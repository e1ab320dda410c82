package domain

// DefaultRefillerID is recorded when a refill does not name its refiller
const DefaultRefillerID = "REF-001"

// SellCommand asks the upstream to record a sale and decrement stock
type SellCommand struct {
	CommandID string  `json:"command_id,omitempty"`
	MachineID string  `json:"machineId"`
	ProductID string  `json:"productId"`
	Quantity  int     `json:"qty"`
	Price     float64 `json:"price"`
}

// RefillCommand asks the upstream to record a refill and increment stock
type RefillCommand struct {
	CommandID  string `json:"command_id,omitempty"`
	MachineID  string `json:"machineId"`
	ProductID  string `json:"productId"`
	Quantity   int    `json:"qty"`
	RefillerID string `json:"refillerId,omitempty"`
}

// CommandResult reports the outcome of a mutating command
type CommandResult struct {
	CommandID       string `json:"command_id"`
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
	SnapshotVersion uint64 `json:"snapshot_version"`
}
