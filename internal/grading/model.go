package grading

// Grade bounds on the Algerian 0-20 scale.
const (
	MinGrade = 0.0
	MaxGrade = 20.0
)

// ModuleType selects how a module's slots are weighted.
type ModuleType string

const (
	// FullExam modules are graded on the exam alone ("100%").
	FullExam ModuleType = "exam"
	// CCExam modules combine continuous assessment (40%) and exam (60%).
	CCExam ModuleType = "cc_exam"
)

// Valid reports whether t is a known module type.
func (t ModuleType) Valid() bool { return t == FullExam || t == CCExam }

// Field names a grade slot of a module.
type Field string

const (
	FieldCC   Field = "cc"
	FieldExam Field = "exam"
)

// Module is the smallest graded unit. A nil grade is "not entered yet",
// which is not the same thing as a zero.
type Module struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Coefficient float64    `json:"coefficient" yaml:"coefficient"`
	Type        ModuleType `json:"type" yaml:"type"`
	CC          *float64   `json:"cc" yaml:"cc,omitempty"`
	Exam        *float64   `json:"exam" yaml:"exam,omitempty"`
}

// UE is a teaching unit: a coefficient-weighted group of modules. Its
// coefficient is independent of its modules' coefficients.
type UE struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Coefficient float64  `json:"coefficient" yaml:"coefficient"`
	Modules     []Module `json:"modules" yaml:"modules"`
}

type Semester struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	UEs  []UE   `json:"ues" yaml:"ues"`
}

// ModuleSet is a set of module IDs.
type ModuleSet map[string]struct{}

// NewModuleSet builds a set from ids, skipping empty strings.
func NewModuleSet(ids ...string) ModuleSet {
	s := make(ModuleSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s ModuleSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s ModuleSet) Add(id string) { s[id] = struct{}{} }

// IDs returns the members in catalog order when sem is given, which keeps
// API responses stable.
func (s ModuleSet) IDs(sem Semester) []string {
	out := make([]string, 0, len(s))
	for _, ue := range sem.UEs {
		for _, m := range ue.Modules {
			if s.Has(m.ID) {
				out = append(out, m.ID)
			}
		}
	}
	return out
}

// Float returns a pointer to v. Handy for building grades.
func Float(v float64) *float64 { return &v }

func cloneGrade(g *float64) *float64 {
	if g == nil {
		return nil
	}
	v := *g
	return &v
}

// Clone returns a deep copy; mutating the copy never touches s.
func (s Semester) Clone() Semester {
	out := Semester{ID: s.ID, Name: s.Name, UEs: make([]UE, len(s.UEs))}
	for i, ue := range s.UEs {
		nu := UE{ID: ue.ID, Name: ue.Name, Coefficient: ue.Coefficient, Modules: make([]Module, len(ue.Modules))}
		for j, m := range ue.Modules {
			m.CC = cloneGrade(m.CC)
			m.Exam = cloneGrade(m.Exam)
			nu.Modules[j] = m
		}
		out.UEs[i] = nu
	}
	return out
}

// FindModule locates a module by ID, returning its UE and module indexes.
func (s Semester) FindModule(id string) (ueIdx, modIdx int, ok bool) {
	for i, ue := range s.UEs {
		for j, m := range ue.Modules {
			if m.ID == id {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

// TotalCoefficient sums the UE coefficients of the semester.
func (s Semester) TotalCoefficient() float64 {
	total := 0.0
	for _, ue := range s.UEs {
		total += ue.Coefficient
	}
	return total
}

// TotalCoefficient sums the module coefficients of the UE.
func (ue UE) TotalCoefficient() float64 {
	total := 0.0
	for _, m := range ue.Modules {
		total += m.Coefficient
	}
	return total
}
