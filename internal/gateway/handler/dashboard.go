package handler

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"instrumentsync/internal/gateway/repository/instrument"
)

type DashboardHandler struct {
	reader InstrumentReader
	logger *zap.Logger
}

func NewDashboardHandler(reader InstrumentReader, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{reader: reader, logger: logger}
}

func (h *DashboardHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	limit := instrument.DefaultLatest
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer", h.logger)
			return
		}
		limit = n
	}
	records, err := h.reader.Latest(r.Context(), limit)
	if err != nil {
		h.readFailed(w, "latest", err)
		return
	}
	writeJSON(w, http.StatusOK, records, h.logger)
}

func (h *DashboardHandler) HandleCountPreRisk(w http.ResponseWriter, r *http.Request) {
	counts, err := h.reader.CountByPreRisk(r.Context())
	if err != nil {
		h.readFailed(w, "count", err)
		return
	}
	writeJSON(w, http.StatusOK, counts, h.logger)
}

func (h *DashboardHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	cusip := strings.TrimSpace(r.URL.Query().Get("cusip"))
	if cusip == "" {
		writeBadRequest(w, "cusip is required", h.logger)
		return
	}
	records, err := h.reader.SearchByCUSIP(r.Context(), cusip)
	if err != nil {
		h.readFailed(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, records, h.logger)
}

func (h *DashboardHandler) readFailed(w http.ResponseWriter, query string, err error) {
	h.logger.Error("dashboard query failed", zap.String("query", query), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Status: "error",
		Kind:   "internal",
		Error:  "failed to fetch " + query,
	}, h.logger)
}
