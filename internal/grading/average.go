package grading

// ModuleAverage returns the weighted average of a module's slots. The second
// return is false when any slot of the module's scheme is missing: there is
// no partial credit for a half-graded module.
func ModuleAverage(m Module) (float64, bool) {
	avg := 0.0
	for _, s := range SchemeFor(m.Type).Slots {
		g := m.Grade(s.Field)
		if g == nil {
			return 0, false
		}
		avg += s.Fraction * *g
	}
	return avg, true
}

// UEAverage is the coefficient-weighted mean of the UE's module averages.
// An incomplete module still counts in the denominator with a zero score, so
// ungraded work pulls the average down instead of being ignored.
func UEAverage(ue UE) float64 {
	weighted, total := 0.0, 0.0
	for _, m := range ue.Modules {
		total += m.Coefficient
		if avg, ok := ModuleAverage(m); ok {
			weighted += avg * m.Coefficient
		}
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// SemesterAverage is the UE-coefficient-weighted mean of the UE averages.
func SemesterAverage(s Semester) float64 {
	weighted, total := 0.0, 0.0
	for _, ue := range s.UEs {
		total += ue.Coefficient
		weighted += UEAverage(ue) * ue.Coefficient
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// GradedAverage averages only what has been graded: incomplete modules are
// left out of their UE and UEs without any graded module are left out of the
// semester. ok is false when nothing is graded at all.
func GradedAverage(s Semester) (avg float64, ok bool) {
	weighted, total := 0.0, 0.0
	for _, ue := range s.UEs {
		ueWeighted, ueCoeff := 0.0, 0.0
		for _, m := range ue.Modules {
			if a, graded := ModuleAverage(m); graded {
				ueWeighted += a * m.Coefficient
				ueCoeff += m.Coefficient
			}
		}
		if ueCoeff > 0 {
			weighted += ueWeighted / ueCoeff * ue.Coefficient
			total += ue.Coefficient
		}
	}
	if total <= 0 {
		return 0, false
	}
	return weighted / total, true
}

// MissingData returns the modules that still have an empty slot.
func MissingData(s Semester) ModuleSet {
	out := ModuleSet{}
	for _, ue := range s.UEs {
		for _, m := range ue.Modules {
			if _, ok := ModuleAverage(m); !ok {
				out.Add(m.ID)
			}
		}
	}
	return out
}

// Color is the display band of an average.
type Color string

const (
	ColorNeutral Color = "neutral"
	ColorRed     Color = "red"
	ColorOrange  Color = "orange"
	ColorGreen   Color = "green"
)

// ColorOf classifies an average; nil means there is nothing to show.
func ColorOf(avg *float64) Color {
	switch {
	case avg == nil:
		return ColorNeutral
	case *avg < 10:
		return ColorRed
	case *avg < 12:
		return ColorOrange
	default:
		return ColorGreen
	}
}
