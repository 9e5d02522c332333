package prediction

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pulmoprobe/platform/pkg/analytics/dashboard"
	"github.com/pulmoprobe/platform/pkg/analytics/report"
	"github.com/pulmoprobe/platform/pkg/common/logger"
	"github.com/pulmoprobe/platform/pkg/common/models"
	"github.com/pulmoprobe/platform/pkg/features"
)

type HTTPHandler struct {
	service *Service
	engine  *dashboard.Engine
	maxBody int64
}

func NewHTTPHandler(service *Service, engine *dashboard.Engine, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, engine: engine, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/predictions", h.handleSubmit).Methods(http.MethodPost)
	router.HandleFunc("/predictions", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/predictions/{id}", h.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/dashboard", h.handleDashboard).Methods(http.MethodGet)
	router.HandleFunc("/report.csv", h.handleReport).Methods(http.MethodGet)
	router.HandleFunc("/schema", h.handleSchema).Methods(http.MethodGet)
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (h *HTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var in models.RawInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		logger.Log.WithError(err).Warn("invalid prediction payload")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	record, err := h.service.Submit(r.Context(), in)
	if err != nil {
		var ve *features.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: ve.Field})
			return
		}
		logger.Log.WithError(err).Error("failed to process prediction")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Ledger().Snapshot())
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	record, ok := h.service.Ledger().Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "prediction not found"})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *HTTPHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Compute(h.service.Ledger().Snapshot()))
}

func (h *HTTPHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, h.service.Ledger().Snapshot()); err != nil {
		logger.Log.WithError(err).Error("failed to build report")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to build report"})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *HTTPHandler) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Schema())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Warn("failed to write response")
	}
}
