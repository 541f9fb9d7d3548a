package server

import (
	"net/http"

	"go.uber.org/zap"

	"instrumentsync/internal/gateway/handler"
	"instrumentsync/internal/gateway/middleware"
)

func NewMux(
	submitHandler *handler.SubmitHandler,
	dashboardHandler *handler.DashboardHandler,
	logger *zap.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /submit", submitHandler.HandleSubmit)
	mux.HandleFunc("POST /submit/{universe_id}/retry", submitHandler.HandleRetry)

	mux.HandleFunc("GET /api/latest", dashboardHandler.HandleLatest)
	mux.HandleFunc("GET /api/count-pre-risk", dashboardHandler.HandleCountPreRisk)
	mux.HandleFunc("GET /api/search", dashboardHandler.HandleSearch)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Middleware
	return middleware.CORS(middleware.RequestLog(logger, middleware.Recover(logger, mux)))
}
