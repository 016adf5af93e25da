package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gradecast/ml"
	"gradecast/schema"
)

// writeError maps core error types onto HTTP statuses. Input problems are
// the caller's to fix (4xx); configuration and integrity problems are ours
// (5xx) and are logged loudly, never smoothed over.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *schema.ValidationError
	var encodingErr *ml.EncodingError
	var configErr *ml.ConfigurationError
	var integrityErr *ml.ModelIntegrityError

	switch {
	case errors.As(err, &validationErr), errors.As(err, &encodingErr):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &configErr):
		logger.Error("serving with inconsistent artifacts",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &integrityErr):
		logger.Error("classifier output failed integrity check",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
