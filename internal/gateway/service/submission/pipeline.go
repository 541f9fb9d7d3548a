package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"instrumentsync/internal/gateway/repository/instrument"
)

// RecordStore is the part of the system of record the pipeline writes to.
type RecordStore interface {
	Insert(ctx context.Context, fields instrument.Fields) (instrument.Record, error)
	Get(ctx context.Context, universeID int64) (instrument.Record, error)
}

// ObjectStore receives the derived artifacts.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) error
}

type Result struct {
	UniverseID int64    `json:"universe_id"`
	Keys       []string `json:"keys,omitempty"`
}

// Pipeline inserts a record, then mirrors each field to the object store.
// The insert always completes before any upload starts, and uploads never
// undo it.
type Pipeline struct {
	records       RecordStore
	objects       ObjectStore
	logger        *zap.Logger
	uploadTimeout time.Duration
	strict        bool
}

type Option func(*Pipeline)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithUploadTimeout bounds each individual put. Zero means the caller's
// context is the only deadline.
func WithUploadTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.uploadTimeout = d }
}

// WithStrictIdentifiers enables CUSIP/ISIN check digit validation.
func WithStrictIdentifiers(strict bool) Option {
	return func(p *Pipeline) { p.strict = strict }
}

func New(records RecordStore, objects ObjectStore, opts ...Option) (*Pipeline, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is nil")
	}
	if objects == nil {
		return nil, fmt.Errorf("object store is nil")
	}
	p := &Pipeline{
		records: records,
		objects: objects,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Submit validates in, commits it, and uploads the four derived artifacts.
//
// On *PartialUploadError the returned Result still carries the committed
// UniverseID. Validation and persistence failures return a zero Result.
func (p *Pipeline) Submit(ctx context.Context, in Input) (Result, error) {
	if err := Validate(in, p.strict); err != nil {
		return Result{}, err
	}

	rec, err := p.records.Insert(ctx, in.fields())
	if err != nil {
		p.logger.Warn("instrument insert failed", zap.Error(err))
		return Result{}, &PersistenceError{Reason: persistenceReason(err), Err: err}
	}
	log := p.logger.With(zap.Int64("universe_id", rec.UniverseID))
	log.Info("instrument committed")

	artifacts := Derive(rec.UniverseID, rec.Fields)
	res := Result{UniverseID: rec.UniverseID, Keys: keysOf(artifacts)}
	if failed := p.upload(ctx, artifacts); len(failed) > 0 {
		err := &PartialUploadError{UniverseID: rec.UniverseID, Failed: failed}
		log.Warn("artifact upload incomplete", zap.Strings("failed_keys", err.FailedKeys()))
		return res, err
	}
	log.Info("artifacts uploaded", zap.Int("count", len(artifacts)))
	return res, nil
}

// RetryUploads re-puts artifacts for an already committed record. An empty
// keys slice retries all four. It never inserts.
func (p *Pipeline) RetryUploads(ctx context.Context, universeID int64, keys []string) (Result, error) {
	if universeID <= 0 {
		return Result{}, &ValidationError{Fields: []string{"universe_id"}, Reason: "must be positive"}
	}
	fields, err := retryFields(universeID, keys)
	if err != nil {
		return Result{}, err
	}

	rec, err := p.records.Get(ctx, universeID)
	if err != nil {
		reason := persistenceReason(err)
		if errors.Is(err, instrument.ErrNotFound) {
			reason = ReasonNotFound
		}
		return Result{}, &PersistenceError{Reason: reason, Err: err}
	}

	artifacts := make([]Artifact, 0, len(fields))
	for _, f := range fields {
		artifacts = append(artifacts, deriveOne(rec.UniverseID, f, rec.Fields))
	}
	log := p.logger.With(zap.Int64("universe_id", universeID))
	res := Result{UniverseID: universeID, Keys: keysOf(artifacts)}
	if failed := p.upload(ctx, artifacts); len(failed) > 0 {
		err := &PartialUploadError{UniverseID: universeID, Failed: failed}
		log.Warn("artifact retry incomplete", zap.Strings("failed_keys", err.FailedKeys()))
		return res, err
	}
	log.Info("artifacts re-uploaded", zap.Strings("keys", res.Keys))
	return res, nil
}

// upload puts every artifact concurrently and waits for all of them. A failed
// put does not cancel its siblings. Failures come back in artifact order.
func (p *Pipeline) upload(ctx context.Context, artifacts []Artifact) []*UploadError {
	outcomes := make([]*UploadError, len(artifacts))
	var g errgroup.Group
	for i, a := range artifacts {
		g.Go(func() error {
			outcomes[i] = p.put(ctx, a)
			return nil
		})
	}
	_ = g.Wait() // outcomes carry the errors

	failed := make([]*UploadError, 0, len(outcomes))
	for _, o := range outcomes {
		if o != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

func (p *Pipeline) put(ctx context.Context, a Artifact) *UploadError {
	if p.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.uploadTimeout)
		defer cancel()
	}
	if err := p.objects.Put(ctx, a.Key, a.Body); err != nil {
		return &UploadError{Key: a.Key, Field: a.Field, Err: err}
	}
	return nil
}

func retryFields(universeID int64, keys []string) ([]Field, error) {
	if len(keys) == 0 {
		return Fields(), nil
	}
	want := make(map[Field]bool, len(keys))
	var bad []string
	for _, key := range keys {
		id, field, err := ParseKey(key)
		if err != nil || id != universeID {
			bad = append(bad, strings.TrimSpace(key))
			continue
		}
		want[field] = true
	}
	if len(bad) > 0 {
		return nil, &ValidationError{
			Fields: bad,
			Reason: fmt.Sprintf("not an artifact key of universe %d", universeID),
		}
	}
	out := make([]Field, 0, len(want))
	for _, f := range fieldOrder {
		if want[f] {
			out = append(out, f)
		}
	}
	return out, nil
}

func persistenceReason(err error) string {
	if instrument.IsConstraintViolation(err) {
		return ReasonConstraint
	}
	return ReasonConnectivity
}

func keysOf(artifacts []Artifact) []string {
	out := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, a.Key)
	}
	return out
}
