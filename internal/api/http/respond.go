package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mind-engage/moyenne/internal/catalog"
	"github.com/mind-engage/moyenne/internal/grading"
	"github.com/mind-engage/moyenne/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrSemesterNotFound),
		errors.Is(err, catalog.ErrSemesterNotFound),
		errors.Is(err, grading.ErrModuleNotFound):
		return http.StatusNotFound
	case errors.Is(err, grading.ErrInvalidTarget),
		errors.Is(err, grading.ErrNoFreeModules),
		errors.Is(err, grading.ErrFieldNotApplicable),
		errors.Is(err, grading.ErrGradeOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, grading.ErrUnreachable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNothingToEstimate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}
