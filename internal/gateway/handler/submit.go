package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"instrumentsync/internal/gateway/service/submission"
)

type SubmitHandler struct {
	pipeline Submitter
	logger   *zap.Logger
}

func NewSubmitHandler(pipeline Submitter, logger *zap.Logger) *SubmitHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmitHandler{pipeline: pipeline, logger: logger}
}

type submitResponse struct {
	Status     string   `json:"status"`
	UniverseID int64    `json:"universe_id"`
	Keys       []string `json:"keys,omitempty"`
}

// HandleSubmit accepts a JSON or form-encoded instrument.
func (h *SubmitHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(w, r)
	if err != nil {
		writeBadRequest(w, err.Error(), h.logger)
		return
	}
	res, err := h.pipeline.Submit(r.Context(), in)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Status: "success", UniverseID: res.UniverseID}, h.logger)
}

// HandleRetry re-uploads artifacts of a committed record. The optional body
// {"keys": [...]} limits the retry to those keys.
func (h *SubmitHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("universe_id")), 10, 64)
	if err != nil {
		writeBadRequest(w, "universe_id must be an integer", h.logger)
		return
	}
	var body struct {
		Keys []string `json:"keys"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid json body", h.logger)
		return
	}
	res, err := h.pipeline.RetryUploads(r.Context(), id, body.Keys)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Status: "success", UniverseID: res.UniverseID, Keys: res.Keys}, h.logger)
}

func decodeInput(w http.ResponseWriter, r *http.Request) (submission.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var in submission.Input

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return submission.Input{}, errors.New("invalid json body")
		}
		return in, nil
	}
	if err := r.ParseForm(); err != nil {
		return submission.Input{}, errors.New("invalid form body")
	}
	in.PreRisk = r.PostForm.Get("pre_risk")
	in.OnRisk = r.PostForm.Get("on_risk")
	in.CUSIP = r.PostForm.Get("cusip")
	in.ISIN = r.PostForm.Get("isin")
	return in, nil
}
