package domain

import "strings"

// MachineStatus is the operating status reported for a machine
type MachineStatus string

const (
	MachineActive   MachineStatus = "Active"
	MachineInactive MachineStatus = "Inactive"
	MachineCritical MachineStatus = "Critical"
)

// POStatus is the delivery/payment status of a purchase order
type POStatus string

const (
	PODelivered POStatus = "Delivered"
	POPending   POStatus = "Pending"
	POInTransit POStatus = "In Transit"
)

// StockStatus classifies a stock position against its reorder level
type StockStatus string

const (
	StockSafe     StockStatus = "Safe"
	StockLow      StockStatus = "Low"
	StockCritical StockStatus = "Critical"
)

var machineStatuses = map[string]MachineStatus{
	"active":   MachineActive,
	"inactive": MachineInactive,
	"critical": MachineCritical,
}

var poStatuses = map[string]POStatus{
	"delivered":  PODelivered,
	"pending":    POPending,
	"in transit": POInTransit,
	"intransit":  POInTransit,
	"in_transit": POInTransit,
}

// ParseMachineStatus maps a label to a known status (case-insensitive).
// Unknown labels are kept verbatim.
func ParseMachineStatus(label string) MachineStatus {
	label = strings.TrimSpace(label)
	if s, ok := machineStatuses[strings.ToLower(label)]; ok {
		return s
	}

	return MachineStatus(label)
}

// ParsePOStatus maps a label to a known PO status. Empty labels default to Delivered,
// unknown labels are kept verbatim.
func ParsePOStatus(label string) POStatus {
	label = strings.TrimSpace(label)
	if label == "" {
		return PODelivered
	}
	if s, ok := poStatuses[strings.ToLower(label)]; ok {
		return s
	}

	return POStatus(label)
}
