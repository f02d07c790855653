package grading

import "errors"

var (
	// ErrInvalidTarget: the target average is NaN or outside [0,20].
	ErrInvalidTarget = errors.New("target average must be a number between 0 and 20")
	// ErrNoFreeModules: the free-module selection is empty or matches nothing.
	ErrNoFreeModules = errors.New("no module selected")
	// ErrUnreachable: the synthesizer could not build grades for the target.
	ErrUnreachable = errors.New("objective not reachable with current selection")

	ErrModuleNotFound     = errors.New("module not found")
	ErrFieldNotApplicable = errors.New("field does not apply to this module type")
	ErrGradeOutOfRange    = errors.New("grade must be between 0 and 20")
)
