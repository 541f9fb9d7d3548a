package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"instrumentsync/internal/gateway/repository/instrument"
	"instrumentsync/internal/gateway/service/submission"
)

// Submitter is the write side: one request maps to one pipeline call.
type Submitter interface {
	Submit(ctx context.Context, in submission.Input) (submission.Result, error)
	RetryUploads(ctx context.Context, universeID int64, keys []string) (submission.Result, error)
}

// InstrumentReader serves the dashboard. Queries only, no side effects.
type InstrumentReader interface {
	Latest(ctx context.Context, limit int) ([]instrument.Record, error)
	CountByPreRisk(ctx context.Context) ([]instrument.RiskCount, error)
	SearchByCUSIP(ctx context.Context, cusip string) ([]instrument.Record, error)
}

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, body any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}
