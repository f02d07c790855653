package http

import (
	"time"

	"github.com/mind-engage/moyenne/internal/grading"
	"github.com/mind-engage/moyenne/internal/session"
)

// Averages are nil while incomplete, matching the "--" shown by the UI.

type moduleView struct {
	grading.Module
	Average *float64      `json:"average"`
	Color   grading.Color `json:"color"`
}

type ueView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Coefficient float64       `json:"coefficient"`
	Average     float64       `json:"average"`
	Color       grading.Color `json:"color"`
	Modules     []moduleView  `json:"modules"`
}

type semesterView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Average     float64       `json:"average"`
	Color       grading.Color `json:"color"`
	MissingData []string      `json:"missing_data"`
	UEs         []ueView      `json:"ues"`
}

type sessionView struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Semesters []semesterView `json:"semesters"`
}

func newSemesterView(s grading.Semester) semesterView {
	avg := grading.SemesterAverage(s)
	v := semesterView{
		ID:          s.ID,
		Name:        s.Name,
		Average:     avg,
		Color:       grading.ColorOf(&avg),
		MissingData: grading.MissingData(s).IDs(s),
		UEs:         make([]ueView, 0, len(s.UEs)),
	}
	for _, ue := range s.UEs {
		ueAvg := grading.UEAverage(ue)
		uv := ueView{
			ID:          ue.ID,
			Name:        ue.Name,
			Coefficient: ue.Coefficient,
			Average:     ueAvg,
			Color:       grading.ColorOf(&ueAvg),
			Modules:     make([]moduleView, 0, len(ue.Modules)),
		}
		for _, m := range ue.Modules {
			mv := moduleView{Module: m}
			if a, ok := grading.ModuleAverage(m); ok {
				mv.Average = &a
			}
			mv.Color = grading.ColorOf(mv.Average)
			uv.Modules = append(uv.Modules, mv)
		}
		v.UEs = append(v.UEs, uv)
	}
	return v
}

func newSessionView(s session.Session) sessionView {
	v := sessionView{ID: s.ID, CreatedAt: s.CreatedAt, Semesters: make([]semesterView, 0, len(s.Semesters))}
	for _, sem := range s.Semesters {
		v.Semesters = append(v.Semesters, newSemesterView(sem))
	}
	return v
}
