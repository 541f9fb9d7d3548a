package instrument

import (
	"context"
	"errors"
	"time"
)

// Store is the system of record for submitted instruments.
// Insert is transactional: a UniverseID is only ever returned for a committed row.
// The remaining methods are read-only queries backing the dashboard.
type Store interface {
	Insert(ctx context.Context, fields Fields) (Record, error)
	Get(ctx context.Context, universeID int64) (Record, error)
	Latest(ctx context.Context, limit int) ([]Record, error)
	CountByPreRisk(ctx context.Context) ([]RiskCount, error)
	SearchByCUSIP(ctx context.Context, cusip string) ([]Record, error)
}

var ErrNotFound = errors.New("instrument not found")

// Fields are the caller-supplied columns of an instrument row.
type Fields struct {
	PreRisk string `json:"pre_risk" yaml:"pre_risk"`
	OnRisk  string `json:"on_risk" yaml:"on_risk"`
	CUSIP   string `json:"cusip" yaml:"cusip"`
	ISIN    string `json:"isin" yaml:"isin"`
}

type Record struct {
	UniverseID int64 `json:"universe_id"`
	Fields
	CreatedAt time.Time `json:"created_at"`
}

type RiskCount struct {
	PreRisk string `json:"pre_risk"`
	Count   int64  `json:"count"`
}

const (
	DefaultTable  = "oc_details"
	DefaultLatest = 10
	MaxLatest     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLatest
	}
	if limit > MaxLatest {
		return MaxLatest
	}
	return limit
}
