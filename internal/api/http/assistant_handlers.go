package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mind-engage/moyenne/internal/assistant"
	"github.com/mind-engage/moyenne/internal/grading"
	"github.com/mind-engage/moyenne/internal/session"
)

type reactionReq struct {
	Target    *float64 `json:"target"`
	ModuleIDs []string `json:"module_ids"`
}

type chatReq struct {
	Message string              `json:"message"`
	History []assistant.Message `json:"history"`
}

type textResp struct {
	Text string `json:"text"`
}

// POST /sessions/{sessionID}/semesters/{semesterID}/reaction
//
// The current average is left out until at least one module is graded. A
// target is feasible unless the selected modules make it infeasible.
func ReactionHandler(store *session.Store, a assistant.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, semesterID := semesterParams(r)
		var req reactionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Target != nil && !grading.InRange(*req.Target) {
			http.Error(w, grading.ErrInvalidTarget.Error(), http.StatusBadRequest)
			return
		}
		sem, err := store.Semester(sessionID, semesterID)
		if err != nil {
			writeErr(w, err)
			return
		}

		var current *float64
		if _, ok := grading.GradedAverage(sem); ok {
			avg := grading.SemesterAverage(sem)
			current = &avg
		}
		feasible := true
		if req.Target != nil && len(req.ModuleIDs) > 0 {
			if res, err := grading.Solve(sem, *req.Target, grading.NewModuleSet(req.ModuleIDs...)); err == nil {
				feasible = res.Feasible
			}
		}
		writeJSON(w, http.StatusOK, textResp{Text: a.Reaction(r.Context(), current, req.Target, feasible)})
	}
}

// POST /sessions/{sessionID}/semesters/{semesterID}/chat
func ChatHandler(store *session.Store, a assistant.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, semesterID := semesterParams(r)
		var req chatReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			http.Error(w, "message required", http.StatusBadRequest)
			return
		}
		sem, err := store.Semester(sessionID, semesterID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, textResp{Text: a.Chat(r.Context(), req.Message, req.History, &sem)})
	}
}
