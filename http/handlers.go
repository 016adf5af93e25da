// Package http exposes the prediction pipeline over a small JSON API.
package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gradecast/db"
	"gradecast/ml"
	"gradecast/monitoring"
	"gradecast/schema"
)

// PredictionService is the boundary to the inference core. The concrete
// implementation is ml.Service.
type PredictionService interface {
	Predict(rec schema.Record) (*ml.Prediction, []schema.Warning, error)
	Bundle() *ml.Bundle
	Schema() *schema.Schema
}

var (
	service PredictionService
	stream  *monitoring.Hub
	logger  = zap.NewNop()

	// Seams for tests.
	savePrediction   = db.SavePrediction
	queryPredictions = db.QueryRecentPredictions
)

func SetPredictionService(s PredictionService) { service = s }
func SetStream(h *monitoring.Hub)              { stream = h }
func SetLogger(l *zap.Logger)                  { logger = l }

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/predict", handlePredict)
	mux.HandleFunc("GET /api/features", handleFeatures)
	mux.HandleFunc("GET /api/model", handleModel)
	mux.HandleFunc("GET /api/predictions", handlePredictions)
	mux.HandleFunc("GET /api/ws", handleStream)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type predictResponse struct {
	RequestID     string             `json:"request_id"`
	Label         string             `json:"label"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Warnings      []schema.Warning   `json:"warnings,omitempty"`
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	if service == nil {
		respondError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}

	var rec schema.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "request body is not a JSON object")
		return
	}

	start := time.Now()
	pred, warnings, err := service.Predict(rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	latency := time.Since(start)

	requestID := GetRequestID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if err := savePrediction(db.PredictionRecord{
		ID:         requestID,
		Input:      rec,
		Label:      pred.Label,
		Confidence: pred.Confidence,
		LatencyMs:  float64(latency.Microseconds()) / 1000,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		logger.Warn("failed to audit prediction", zap.String("request_id", requestID), zap.Error(err))
	}

	if stream != nil {
		stream.Publish(monitoring.PredictionEvent{
			ID:            requestID,
			Label:         pred.Label,
			Confidence:    pred.Confidence,
			Probabilities: pred.Probabilities,
			LatencyMs:     float64(latency.Microseconds()) / 1000,
			Timestamp:     time.Now().UTC(),
		})
	}

	respondJSON(w, http.StatusOK, predictResponse{
		RequestID:     requestID,
		Label:         pred.Label,
		Confidence:    pred.Confidence,
		Probabilities: pred.Probabilities,
		Warnings:      warnings,
	})
}

type featuresResponse struct {
	Numerical   []schema.NumericFeature `json:"numerical_features"`
	Categorical map[string][]string     `json:"categorical_features"`
	Boolean     map[string][2]string    `json:"boolean_features"`
}

// handleFeatures describes the schema so clients can build valid requests.
func handleFeatures(w http.ResponseWriter, r *http.Request) {
	if service == nil {
		respondError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	s := service.Schema()

	resp := featuresResponse{
		Numerical:   s.Numeric,
		Categorical: make(map[string][]string, len(s.Categorical)),
		Boolean:     make(map[string][2]string, len(s.Boolean)),
	}
	for _, f := range s.Categorical {
		resp.Categorical[f.Name] = f.Levels
	}
	for _, f := range s.Boolean {
		resp.Boolean[f.Name] = [2]string{f.TrueToken, f.FalseToken}
	}
	respondJSON(w, http.StatusOK, resp)
}

func handleModel(w http.ResponseWriter, r *http.Request) {
	if service == nil {
		respondError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	bundle := service.Bundle()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"schema_version": bundle.SchemaVersion,
		"trained_at":     bundle.TrainedAt,
		"classes":        bundle.Classes,
		"column_count":   len(bundle.FeatureNames),
		"n_estimators":   bundle.Forest.NEstimators,
	})
}

func handlePredictions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	records, err := queryPredictions(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": records})
}

func handleStream(w http.ResponseWriter, r *http.Request) {
	if stream == nil {
		respondError(w, http.StatusServiceUnavailable, "stream not enabled")
		return
	}
	stream.HandleWebSocket(w, r)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
