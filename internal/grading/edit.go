package grading

import (
	"fmt"
	"math"
)

// SetGrade returns a copy of s with one slot of one module replaced. A nil
// value clears the slot. s itself is never modified.
func SetGrade(s Semester, moduleID string, f Field, v *float64) (Semester, error) {
	ui, mi, ok := s.FindModule(moduleID)
	if !ok {
		return Semester{}, fmt.Errorf("%w: %s", ErrModuleNotFound, moduleID)
	}
	if !s.UEs[ui].Modules[mi].HasField(f) {
		return Semester{}, fmt.Errorf("%w: %q on %s", ErrFieldNotApplicable, f, moduleID)
	}
	if v != nil && !InRange(*v) {
		return Semester{}, fmt.Errorf("%w: %v", ErrGradeOutOfRange, *v)
	}
	out := s.Clone()
	out.UEs[ui].Modules[mi].setGrade(f, cloneGrade(v))
	return out, nil
}

// InRange reports whether v is a legal grade.
func InRange(v float64) bool {
	return !math.IsNaN(v) && v >= MinGrade && v <= MaxGrade
}

func validTarget(target float64) bool { return InRange(target) }
