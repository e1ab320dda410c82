package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/normalize"
	"github.com/andresuchdata/vendbees/backend-go/internal/repository"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
)

var (
	// ErrInvalidCommand is returned for a sell/refill command that fails validation
	ErrInvalidCommand = errors.New("invalid command")
	// ErrNotStarted is returned when stopping a controller that is not running
	ErrNotStarted = errors.New("controller not started")
	// ErrAlreadyStarted is returned when starting a controller twice
	ErrAlreadyStarted = errors.New("controller already started")
)

// Controller keeps the reconciliation store in sync with the upstream source.
// It pulls on a fixed interval and right after every sell/refill command. Pulls never
// overlap: a caller arriving while a pull runs waits for it, and if another caller has
// already started a pull after the request was made, that pull's result is shared.
type Controller struct {
	source     upstream.Source
	normalizer *normalize.Normalizer
	store      *repository.ReconciliationStore
	cfg        Config
	now        func() time.Time

	pull      *semaphore.Weighted
	requested atomic.Uint64 // refresh requests issued
	covered   uint64        // requests covered by the last finished pull, guarded by pull
	lastErr   error         // outcome of the last finished pull, guarded by pull
	revision  string        // revision of the dataset behind the current snapshot, guarded by pull

	refreshing atomic.Bool
	kick       chan struct{}

	mu        sync.RWMutex
	status    Status
	listeners []Listener
	alive     context.Context // cancelled by Stop; aborts an in-flight pull

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewController wires a controller. The store starts with whatever it already holds.
func NewController(source upstream.Source, store *repository.ReconciliationStore, cfg Config) *Controller {
	return &Controller{
		source:     source,
		normalizer: normalize.New(),
		store:      store,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
		pull:       semaphore.NewWeighted(1),
		kick:       make(chan struct{}, 1),
		status: Status{
			State:  StateIdle,
			Source: source.Kind(),
		},
	}
}

// OnRefresh registers a listener called after every pull attempt.
// Listeners run on the refreshing goroutine and must not block.
func (c *Controller) OnRefresh(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Store returns the store the controller writes to
func (c *Controller) Store() *repository.ReconciliationStore {
	return c.store
}

// Start pulls once synchronously, then keeps refreshing in the background until Stop
// is called or ctx is cancelled. A failed first pull is logged, not returned: the
// controller keeps retrying on the interval.
func (c *Controller) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.cancel != nil {
		return ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.alive = loopCtx
	c.mu.Unlock()

	if err := c.Refresh(loopCtx); err != nil {
		log.Warn().Err(err).Str("source", c.source.Kind()).Msg("sync: initial pull failed, serving empty snapshot")
	}

	c.cancel = cancel
	c.done = make(chan struct{})
	go c.loop(loopCtx, c.done)

	log.Info().
		Str("source", c.source.Kind()).
		Dur("interval", c.cfg.Interval).
		Msg("sync: controller started")
	return nil
}

// Stop cancels the background refresh and waits for it to exit
func (c *Controller) Stop() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.cancel == nil {
		return ErrNotStarted
	}

	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
	c.mu.Lock()
	c.alive = nil
	c.mu.Unlock()

	log.Info().Msg("sync: controller stopped")
	return nil
}

func (c *Controller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.kick:
			// a command just forced a pull; restart the interval from now
			ticker.Reset(c.cfg.Interval)
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				log.Debug().Err(err).Msg("sync: periodic pull failed")
			}
		}
	}
}

// Refresh pulls the full dataset, normalizes it and swaps it into the store.
// On failure the previous snapshot stays current and the error is returned.
// ctx bounds only the wait for an in-flight pull: once this call starts a pull, the
// pull runs to completion (or PullTimeout) even if the caller goes away, because its
// result is shared with every coalesced waiter. Stop aborts it.
func (c *Controller) Refresh(ctx context.Context) error {
	ticket := c.requested.Add(1)

	if err := c.pull.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for in-flight pull: %w", err)
	}
	defer c.pull.Release(1)

	if c.covered >= ticket {
		return c.lastErr
	}

	covers := c.requested.Load()
	err := c.refresh(ctx)
	c.covered = covers
	c.lastErr = err
	return err
}

func (c *Controller) refresh(ctx context.Context) error {
	c.refreshing.Store(true)
	defer c.refreshing.Store(false)

	started := c.now()
	pullCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.PullTimeout)
	defer cancel()
	alive := c.aliveContext()
	stop := context.AfterFunc(alive, cancel)
	defer stop()

	outcome := RefreshOutcome{}
	raw, err := c.source.Pull(pullCtx)
	if err == nil && raw == nil {
		err = errors.New("upstream returned no dataset")
	}
	switch {
	case err != nil && alive.Err() != nil && !errors.Is(pullCtx.Err(), context.DeadlineExceeded):
		// stopping is not an upstream failure; leave status and listeners alone
		return fmt.Errorf("pull aborted, controller stopping: %w", alive.Err())
	case err != nil:
		if errors.Is(pullCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("pull timed out after %s: %w", c.cfg.PullTimeout, err)
		}
		outcome.Err = fmt.Errorf("pulling from %s: %w", c.source.Kind(), err)
	case raw.Revision != "" && raw.Revision == c.revision && c.store.Version() > 0:
		outcome.Snapshot = c.store.Current()
		outcome.Unchanged = true
	default:
		collections, report := c.normalizer.Normalize(*raw)
		outcome.Report = report
		outcome.Snapshot = c.store.ReplaceAll(collections, domain.SnapshotMeta{
			PulledAt:        c.now(),
			Source:          c.source.Kind(),
			UpstreamMetrics: raw.Metrics,
		})
		c.revision = raw.Revision
	}
	outcome.Duration = c.now().Sub(started)

	c.record(started, outcome)
	c.notify(outcome)

	if outcome.Err != nil {
		return outcome.Err
	}

	if outcome.Unchanged {
		log.Debug().
			Uint64("version", outcome.Snapshot.Version).
			Str("revision", c.revision).
			Msg("sync: upstream unchanged, snapshot kept")
		return nil
	}
	if dropped := outcome.Report.TotalDropped(); dropped > 0 {
		log.Debug().
			Int("dropped", dropped).
			Interface("dropped_by_kind", outcome.Report.Dropped).
			Msg("sync: malformed records dropped")
	}
	log.Debug().
		Uint64("version", outcome.Snapshot.Version).
		Dur("duration", outcome.Duration).
		Msg("sync: snapshot replaced")
	return nil
}

func (c *Controller) aliveContext() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.alive == nil {
		return context.Background()
	}
	return c.alive
}

func (c *Controller) record(started time.Time, o RefreshOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	attempted := started
	c.status.LastAttemptAt = &attempted
	c.status.LastDuration = o.Duration.String()
	c.status.Refreshes++

	if o.Err != nil {
		c.status.Failures++
		c.status.ConsecutiveFailures++
		c.status.Connected = false
		c.status.LastError = o.Err.Error()
		if c.status.ConsecutiveFailures == 1 {
			log.Warn().Err(o.Err).Msg("sync: upstream unreachable, keeping last snapshot")
		}
		return
	}

	if c.status.ConsecutiveFailures > 0 {
		log.Info().Int("failures", c.status.ConsecutiveFailures).Msg("sync: upstream reachable again")
	}
	succeeded := c.now()
	c.status.LastSuccessAt = &succeeded
	c.status.ConsecutiveFailures = 0
	c.status.Connected = true
	c.status.LastError = ""
}

func (c *Controller) notify(o RefreshOutcome) {
	c.mu.RLock()
	listeners := c.listeners
	c.mu.RUnlock()

	for _, l := range listeners {
		l(o)
	}
}

// Status returns a copy of the current connectivity state
func (c *Controller) Status() Status {
	c.mu.RLock()
	s := c.status
	c.mu.RUnlock()

	s.State = StateIdle
	if c.refreshing.Load() {
		s.State = StateRefreshing
	}
	s.SnapshotVersion = c.store.Version()
	return s
}

// Sell forwards a sale to the upstream and then forces a refresh, whether or not the
// upstream accepted it. Local state changes only through that refresh.
func (c *Controller) Sell(ctx context.Context, cmd domain.SellCommand) (domain.CommandResult, error) {
	cmd.MachineID = strings.TrimSpace(cmd.MachineID)
	cmd.ProductID = strings.TrimSpace(cmd.ProductID)
	if cmd.CommandID == "" {
		cmd.CommandID = uuid.NewString()
	}
	if err := validateTarget(cmd.MachineID, cmd.ProductID, cmd.Quantity); err != nil {
		return failed(cmd.CommandID, c.store.Version(), err), err
	}
	if cmd.Price < 0 {
		err := fmt.Errorf("%w: price must not be negative", ErrInvalidCommand)
		return failed(cmd.CommandID, c.store.Version(), err), err
	}

	err := c.forward(ctx, "sell", cmd.CommandID, func(ctx context.Context) error {
		return c.source.Sell(ctx, cmd)
	})
	return c.afterCommand(ctx, cmd.CommandID, err)
}

// Refill forwards a refill to the upstream and then forces a refresh
func (c *Controller) Refill(ctx context.Context, cmd domain.RefillCommand) (domain.CommandResult, error) {
	cmd.MachineID = strings.TrimSpace(cmd.MachineID)
	cmd.ProductID = strings.TrimSpace(cmd.ProductID)
	if cmd.CommandID == "" {
		cmd.CommandID = uuid.NewString()
	}
	if cmd.RefillerID == "" {
		cmd.RefillerID = domain.DefaultRefillerID
	}
	if err := validateTarget(cmd.MachineID, cmd.ProductID, cmd.Quantity); err != nil {
		return failed(cmd.CommandID, c.store.Version(), err), err
	}

	err := c.forward(ctx, "refill", cmd.CommandID, func(ctx context.Context) error {
		return c.source.Refill(ctx, cmd)
	})
	return c.afterCommand(ctx, cmd.CommandID, err)
}

func (c *Controller) forward(ctx context.Context, name, commandID string, send func(context.Context) error) error {
	cmdCtx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	if err := send(cmdCtx); err != nil {
		log.Warn().Err(err).Str("command", name).Str("command_id", commandID).Msg("sync: upstream rejected command")
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Info().Str("command", name).Str("command_id", commandID).Msg("sync: command accepted")
	return nil
}

func (c *Controller) afterCommand(ctx context.Context, commandID string, cmdErr error) (domain.CommandResult, error) {
	select {
	case c.kick <- struct{}{}:
	default:
	}

	if err := c.Refresh(ctx); err != nil {
		log.Warn().Err(err).Str("command_id", commandID).Msg("sync: refresh after command failed")
	}

	if cmdErr != nil {
		return failed(commandID, c.store.Version(), cmdErr), cmdErr
	}
	return domain.CommandResult{
		CommandID:       commandID,
		Success:         true,
		SnapshotVersion: c.store.Version(),
	}, nil
}

func validateTarget(machineID, productID string, qty int) error {
	switch {
	case machineID == "":
		return fmt.Errorf("%w: machine id is required", ErrInvalidCommand)
	case productID == "":
		return fmt.Errorf("%w: product id is required", ErrInvalidCommand)
	case qty <= 0:
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidCommand)
	}
	return nil
}

func failed(commandID string, version uint64, err error) domain.CommandResult {
	return domain.CommandResult{
		CommandID:       commandID,
		Success:         false,
		Error:           err.Error(),
		SnapshotVersion: version,
	}
}
