package processing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recording-orchestrator/internal/platform/metrics"
)

// identityHeader names the header carrying the invoking identity. The API
// gateway in front of this service authenticates the caller and forwards the
// verified identity here.
const identityHeader = "X-Host-Identity"

// Handler exposes the processing endpoints over HTTP using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler over the given Service. metrics may be nil to
// disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// StartProcessing handles POST /sessions/{session_id}/processing.
func (h *Handler) StartProcessing(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	identity := r.Header.Get(identityHeader)
	if identity == "" {
		writeError(w, http.StatusUnauthorized, "missing "+identityHeader+" header")
		return
	}

	result, err := h.svc.StartProcessing(r.Context(), sessionID, identity)
	if err != nil {
		h.writeProcessingError(w, sessionID, err)
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

// Status handles GET /sessions/{session_id}/processing.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	res, err := h.svc.ProcessingStatus(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error("processing status failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeProcessingError(w http.ResponseWriter, sessionID string, err error) {
	var (
		inProgress *AttemptInProgressError
		stability  *StabilityTimeoutError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrNoRecording):
		status = http.StatusNotFound
	case errors.As(err, &inProgress):
		status = http.StatusConflict
	case errors.As(err, &stability):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		h.log.Error("start processing failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
	} else {
		h.log.Info("start processing rejected",
			slog.String("session_id", sessionID),
			slog.Int("status", status),
			slog.String("error", err.Error()))
	}

	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
