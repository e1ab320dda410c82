package upstream

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
)

// WorkbookSource serves the inventory workbook held in a Blob. Pulls re-parse the
// workbook only when the blob fingerprint changed. Commands rewrite the workbook and are
// serialized so two edits never interleave.
type WorkbookSource struct {
	blob Blob
	now  func() time.Time
	loc  *time.Location

	mu          sync.Mutex
	cached      *domain.RawDataset
	fingerprint string
	generation  uint64 // bumped on every parse
}

// WorkbookOption configures a WorkbookSource
type WorkbookOption func(*WorkbookSource)

// WithWorkbookClock sets the clock used to date log rows
func WithWorkbookClock(now func() time.Time, loc *time.Location) WorkbookOption {
	return func(s *WorkbookSource) {
		if now != nil {
			s.now = now
		}
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewWorkbookSource creates a source over blob
func NewWorkbookSource(blob Blob, opts ...WorkbookOption) *WorkbookSource {
	s := &WorkbookSource{
		blob: blob,
		now:  time.Now,
		loc:  time.Local,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *WorkbookSource) Kind() string { return "workbook" }

// Blob returns the underlying blob
func (s *WorkbookSource) Blob() Blob { return s.blob }

// Pull returns the parsed workbook. The caller owns the returned dataset's top-level
// fields but must not modify the records.
func (s *WorkbookSource) Pull(ctx context.Context) (*domain.RawDataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		fp, err := s.blob.Fingerprint(ctx)
		if err != nil {
			return nil, err
		}
		if fp != "" && fp == s.fingerprint {
			return shallowCopy(s.cached), nil
		}
	}

	data, fp, err := s.blob.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	ds, err := ParseWorkbook(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.blob.Name(), err)
	}

	log.Debug().Str("blob", s.blob.Name()).Str("fingerprint", fp).Msg("workbook: reloaded")
	s.generation++
	ds.Revision = fmt.Sprintf("%s#%d", s.blob.Name(), s.generation)
	s.cached = ds
	s.fingerprint = fp
	return shallowCopy(ds), nil
}

func (s *WorkbookSource) Sell(ctx context.Context, cmd domain.SellCommand) error {
	return s.edit(ctx, func(f *excelize.File, day string) error {
		return applySell(f, cmd, day)
	})
}

func (s *WorkbookSource) Refill(ctx context.Context, cmd domain.RefillCommand) error {
	return s.edit(ctx, func(f *excelize.File, day string) error {
		return applyRefill(f, cmd, day)
	})
}

func (s *WorkbookSource) edit(ctx context.Context, apply func(*excelize.File, string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, _, err := s.blob.Fetch(ctx)
	if err != nil {
		return err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to open workbook %s: %w", s.blob.Name(), err)
	}
	defer f.Close()

	if err := apply(f, s.now().In(s.loc).Format("2006-01-02")); err != nil {
		return err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("failed to serialize workbook: %w", err)
	}
	if err := s.blob.Store(ctx, buf.Bytes()); err != nil {
		return err
	}

	s.cached = nil
	s.fingerprint = ""
	return nil
}

func shallowCopy(ds *domain.RawDataset) *domain.RawDataset {
	out := *ds
	out.Metrics = nil
	return &out
}
