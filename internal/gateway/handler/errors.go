package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"instrumentsync/internal/gateway/service/submission"
)

type errorResponse struct {
	Status     string   `json:"status"`
	Kind       string   `json:"kind"`
	Error      string   `json:"error"`
	Reason     string   `json:"reason,omitempty"`
	Fields     []string `json:"fields,omitempty"`
	UniverseID int64    `json:"universe_id,omitempty"`
	FailedKeys []string `json:"failed_keys,omitempty"`
}

// writeServiceError maps the submission error taxonomy onto HTTP. A partial
// upload is not a failure of the request as a whole: the record exists, so it
// is reported as 207 with the keys to retry.
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}
	var (
		verr *submission.ValidationError
		perr *submission.PersistenceError
		part *submission.PartialUploadError
	)
	switch {
	case errors.As(err, &part):
		writeJSON(w, http.StatusMultiStatus, errorResponse{
			Status:     "partial_upload",
			Kind:       string(submission.KindPartialUpload),
			Error:      err.Error(),
			UniverseID: part.UniverseID,
			FailedKeys: part.FailedKeys(),
		}, logger)

	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status: "error",
			Kind:   string(submission.KindValidation),
			Error:  err.Error(),
			Reason: verr.Reason,
			Fields: verr.Fields,
		}, logger)

	case errors.As(err, &perr):
		status := http.StatusServiceUnavailable
		switch perr.Reason {
		case submission.ReasonConstraint:
			status = http.StatusConflict
		case submission.ReasonNotFound:
			status = http.StatusNotFound
		}
		logger.Error("record store failure", zap.String("reason", perr.Reason), zap.Error(perr.Err))
		writeJSON(w, status, errorResponse{
			Status: "error",
			Kind:   string(submission.KindPersistence),
			Error:  "record was not saved",
			Reason: perr.Reason,
		}, logger)

	default:
		logger.Error("unhandled service error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Status: "error",
			Kind:   "internal",
			Error:  "internal error",
		}, logger)
	}
}

func writeBadRequest(w http.ResponseWriter, msg string, logger *zap.Logger) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Status: "error",
		Kind:   string(submission.KindValidation),
		Error:  msg,
	}, logger)
}
