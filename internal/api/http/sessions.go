package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/moyenne/internal/catalog"
	"github.com/mind-engage/moyenne/internal/grading"
	"github.com/mind-engage/moyenne/internal/session"
)

type gradeReq struct {
	Field grading.Field `json:"field"`
	Value *float64      `json:"value"` // null clears the slot
}

type targetReq struct {
	Target    *float64 `json:"target"`
	ModuleIDs []string `json:"module_ids"`
}

func (t targetReq) free() grading.ModuleSet { return grading.NewModuleSet(t.ModuleIDs...) }

func decodeTarget(w http.ResponseWriter, r *http.Request) (targetReq, bool) {
	var req targetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	if req.Target == nil {
		http.Error(w, grading.ErrInvalidTarget.Error(), http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func semesterParams(r *http.Request) (sessionID, semesterID string) {
	return strings.TrimSpace(chi.URLParam(r, "sessionID")), strings.TrimSpace(chi.URLParam(r, "semesterID"))
}

// GET /catalog/semesters
func CatalogHandler(c catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.Clone())
	}
}

// GET /catalog/semesters/{semesterID}
func CatalogSemesterHandler(c catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sem, err := c.Semester(strings.TrimSpace(chi.URLParam(r, "semesterID")))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sem)
	}
}

// POST /sessions
func CreateSessionHandler(store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, newSessionView(store.New()))
	}
}

// GET /sessions/{sessionID}
func GetSessionHandler(store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := store.Get(strings.TrimSpace(chi.URLParam(r, "sessionID")))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newSessionView(s))
	}
}

// DELETE /sessions/{sessionID}
func DeleteSessionHandler(store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Delete(strings.TrimSpace(chi.URLParam(r, "sessionID"))); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PUT /sessions/{sessionID}/semesters/{semesterID}/modules/{moduleID}/grades
func SetGradeHandler(store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, semesterID := semesterParams(r)
		moduleID := strings.TrimSpace(chi.URLParam(r, "moduleID"))
		var req gradeReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Field != grading.FieldCC && req.Field != grading.FieldExam {
			http.Error(w, `field must be "cc" or "exam"`, http.StatusBadRequest)
			return
		}
		sem, err := store.SetGrade(sessionID, semesterID, moduleID, req.Field, req.Value)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newSemesterView(sem))
	}
}

// POST /sessions/{sessionID}/semesters/{semesterID}/requirement
func RequirementHandler(store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, semesterID := semesterParams(r)
		req, ok := decodeTarget(w, r)
		if !ok {
			return
		}
		res, err := store.Requirement(sessionID, semesterID, *req.Target, req.free())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// synthesizeResp flags locked modules with a single grade: they count toward
// the target but the semester average scores them as incomplete.
type synthesizeResp struct {
	semesterView
	PartiallyGraded []string `json:"partially_graded,omitempty"`
}

// POST /sessions/{sessionID}/semesters/{semesterID}/synthesize
func SynthesizeHandler(store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, semesterID := semesterParams(r)
		req, ok := decodeTarget(w, r)
		if !ok {
			return
		}
		free := req.free()
		sem, err := store.Synthesize(sessionID, semesterID, *req.Target, free)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, synthesizeResp{
			semesterView:    newSemesterView(sem),
			PartiallyGraded: grading.PartiallyGraded(sem, free),
		})
	}
}

type estimateResp struct {
	Selected []string      `json:"selected"`
	Semester *semesterView `json:"semester,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// POST /sessions/{sessionID}/semesters/{semesterID}/estimate
func EstimateHandler(store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, semesterID := semesterParams(r)
		req, ok := decodeTarget(w, r)
		if !ok {
			return
		}
		est, err := store.Estimate(sessionID, semesterID, *req.Target, req.free())
		if err != nil {
			if len(est.Selected) == 0 {
				writeErr(w, err)
				return
			}
			// the selection is still useful to highlight what was tried
			writeJSON(w, statusFor(err), estimateResp{Selected: est.Selected, Error: err.Error()})
			return
		}
		view := newSemesterView(est.Semester)
		writeJSON(w, http.StatusOK, estimateResp{Selected: est.Selected, Semester: &view})
	}
}
