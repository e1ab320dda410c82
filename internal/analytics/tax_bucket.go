package analytics

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/andresuchdata/vendbees/backend-go/internal/normalize"
)

// RateEpsilon is the tolerance used when comparing a product's tax rate to a bucket
const RateEpsilon = 0.001

// ErrUnknownTaxBucket is returned for a bucket label that is neither known nor numeric
var ErrUnknownTaxBucket = errors.New("unknown tax bucket")

// TaxBucket selects products by GST rate. The zero value matches everything.
type TaxBucket struct {
	Label string  `json:"label"`
	Rate  float64 `json:"rate"`
	All   bool    `json:"all"`
}

// Matches reports whether a normalized tax rate belongs to the bucket
func (b TaxBucket) Matches(rate float64) bool {
	if b.All || b.Label == "" {
		return true
	}
	return math.Abs(rate-b.Rate) < RateEpsilon
}

// BucketTable is the ordered set of selectable tax buckets
type BucketTable struct {
	buckets []TaxBucket
	byLabel map[string]TaxBucket
}

// DefaultBuckets returns the GST slabs offered by the dashboard
func DefaultBuckets() *BucketTable {
	return NewBucketTable([]TaxBucket{
		{Label: "All", All: true},
		{Label: "None", Rate: 0},
		{Label: "Exempted", Rate: 0},
		{Label: "GST @ 0%", Rate: 0},
		{Label: "GST @ 5%", Rate: 0.05},
		{Label: "GST @ 12%", Rate: 0.12},
		{Label: "GST @ 18%", Rate: 0.18},
		{Label: "GST @ 28%", Rate: 0.28},
		{Label: "GST @ 40%", Rate: 0.40},
	})
}

// NewBucketTable builds a table from buckets in display order
func NewBucketTable(buckets []TaxBucket) *BucketTable {
	t := &BucketTable{
		buckets: buckets,
		byLabel: make(map[string]TaxBucket, len(buckets)),
	}
	for _, b := range buckets {
		t.byLabel[strings.ToLower(b.Label)] = b
	}
	return t
}

// List returns the buckets in display order
func (t *BucketTable) List() []TaxBucket {
	out := make([]TaxBucket, len(t.buckets))
	copy(out, t.buckets)
	return out
}

// Parse resolves a bucket by label (case-insensitive). Numeric labels such as "18",
// "18%" or "0.18" are accepted and normalized like product tax rates.
func (t *BucketTable) Parse(label string) (TaxBucket, error) {
	label = strings.TrimSpace(label)
	if IsAll(label) {
		return TaxBucket{Label: "All", All: true}, nil
	}
	if b, ok := t.byLabel[strings.ToLower(label)]; ok {
		return b, nil
	}
	if !strings.ContainsAny(label, "0123456789") {
		return TaxBucket{}, fmt.Errorf("%w: %q", ErrUnknownTaxBucket, label)
	}
	return TaxBucket{Label: label, Rate: normalize.NormalizeTaxRate(label)}, nil
}
