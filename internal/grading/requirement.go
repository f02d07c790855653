package grading

// Requirement is the advisory answer to "what do the selected modules need".
// OverallRequired is nil when nothing could be computed.
type Requirement struct {
	Feasible        bool               `json:"feasible"`
	OverallRequired *float64           `json:"overall_required"`
	PerModule       map[string]float64 `json:"per_module"`
}

type openUE struct {
	ue        UE
	selected  []Module
	lockedRaw float64
}

// Solve computes the average the free modules must reach for the semester to
// land on target. UEs without a free module are locked at their current
// average; inside a UE that has free modules, the remaining (locked) modules
// count with their average, or zero when incomplete. Every free module of a
// UE gets the same requirement. Requirements are not clamped: a value above
// 20 or below 0 is reported and makes the result infeasible.
func Solve(s Semester, target float64, free ModuleSet) (Requirement, error) {
	if !validTarget(target) {
		return Requirement{}, ErrInvalidTarget
	}
	if len(free) == 0 {
		return Requirement{}, ErrNoFreeModules
	}

	lockedContribution := 0.0
	var open []openUE
	for _, ue := range s.UEs {
		var selected []Module
		lockedRaw := 0.0
		for _, m := range ue.Modules {
			if free.Has(m.ID) {
				selected = append(selected, m)
				continue
			}
			if avg, ok := ModuleAverage(m); ok {
				lockedRaw += avg * m.Coefficient
			}
		}
		if len(selected) == 0 {
			lockedContribution += UEAverage(ue) * ue.Coefficient
			continue
		}
		open = append(open, openUE{ue: ue, selected: selected, lockedRaw: lockedRaw})
	}

	requiredFromOpen := target*s.TotalCoefficient() - lockedContribution

	openCoeff := 0.0
	for _, o := range open {
		openCoeff += o.ue.Coefficient
	}
	res := Requirement{PerModule: map[string]float64{}}
	var assigned []float64
	if openCoeff == 0 {
		return res, nil
	}
	requiredOpenUEAvg := requiredFromOpen / openCoeff

	for _, o := range open {
		requiredSelectedRaw := requiredOpenUEAvg*o.ue.TotalCoefficient() - o.lockedRaw
		selectedCoeff := 0.0
		for _, m := range o.selected {
			selectedCoeff += m.Coefficient
		}
		if selectedCoeff <= 0 {
			continue
		}
		perModule := requiredSelectedRaw / selectedCoeff
		for _, m := range o.selected {
			res.PerModule[m.ID] = perModule
			assigned = append(assigned, perModule)
		}
	}

	res.Feasible = true
	sum := 0.0
	for _, req := range assigned {
		if req < MinGrade || req > MaxGrade {
			res.Feasible = false
		}
		sum += req
	}
	overall := requiredOpenUEAvg
	if n := len(assigned); n > 0 {
		overall = sum / float64(n)
	}
	res.OverallRequired = &overall
	return res, nil
}
