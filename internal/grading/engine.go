package grading

// SlotSpec is one weighted grade field of a module type.
type SlotSpec struct {
	Field    Field
	Fraction float64
}

// Scheme describes how a module type splits its average across slots.
// Fractions of a scheme sum to 1.
type Scheme struct {
	Slots []SlotSpec
}

var schemes = map[ModuleType]Scheme{
	FullExam: {Slots: []SlotSpec{{Field: FieldExam, Fraction: 1.0}}},
	CCExam: {Slots: []SlotSpec{
		{Field: FieldCC, Fraction: 0.4},
		{Field: FieldExam, Fraction: 0.6},
	}},
}

// SchemeFor routes a module type to its weighting scheme. Unknown types are
// graded like CC+exam modules.
func SchemeFor(t ModuleType) Scheme {
	if s, ok := schemes[t]; ok {
		return s
	}
	return schemes[CCExam]
}

// Grade returns the raw value of a slot; nil when absent or when the field
// does not apply to the module's type.
func (m Module) Grade(f Field) *float64 {
	if !m.HasField(f) {
		return nil
	}
	switch f {
	case FieldCC:
		return m.CC
	case FieldExam:
		return m.Exam
	}
	return nil
}

// HasField reports whether f is one of the module's graded slots.
func (m Module) HasField(f Field) bool {
	for _, s := range SchemeFor(m.Type).Slots {
		if s.Field == f {
			return true
		}
	}
	return false
}

func (m *Module) setGrade(f Field, v *float64) {
	switch f {
	case FieldCC:
		m.CC = v
	case FieldExam:
		m.Exam = v
	}
}
