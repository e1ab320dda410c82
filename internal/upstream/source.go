// Package upstream talks to the system of record behind the dashboard: it pulls the full
// raw dataset and forwards sell/refill commands. Several backends are available (HTTP,
// spreadsheet workbook on disk/S3/Drive, postgres); all satisfy Source.
package upstream

import (
	"context"
	"errors"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
)

var (
	// ErrInsufficientStock is returned when a sale asks for more units than the machine holds
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockRowNotFound is returned when a sale targets a product the machine does not stock
	ErrStockRowNotFound = errors.New("item not found")
	// ErrReadOnly is returned by sources that cannot accept commands
	ErrReadOnly = errors.New("upstream is read-only")
)

// Source is the upstream system of record
type Source interface {
	// Kind names the backend, e.g. "http" or "workbook"
	Kind() string

	// Pull returns the full raw dataset
	Pull(ctx context.Context) (*domain.RawDataset, error)

	// Sell records a sale and decrements stock
	Sell(ctx context.Context, cmd domain.SellCommand) error

	// Refill records a refill and increments (or creates) the stock row
	Refill(ctx context.Context, cmd domain.RefillCommand) error
}
