package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mind-engage/moyenne/internal/config"
	"github.com/mind-engage/moyenne/internal/grading"
)

func TestBuiltinProgram(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	if len(c.Semesters) != 2 {
		t.Fatalf("semesters=%d want 2", len(c.Semesters))
	}
	want := map[string][]float64{"sem3": {9, 6, 5, 6}, "sem4": {9, 6, 5, 5}}
	for _, s := range c.Semesters {
		coefs := want[s.ID]
		if len(s.UEs) != len(coefs) {
			t.Fatalf("%s: ues=%d", s.ID, len(s.UEs))
		}
		for i, ue := range s.UEs {
			if ue.Coefficient != coefs[i] {
				t.Fatalf("%s/%s coefficient=%v want %v", s.ID, ue.ID, ue.Coefficient, coefs[i])
			}
			for _, m := range ue.Modules {
				if m.CC != nil || m.Exam != nil {
					t.Fatalf("%s starts with grades", m.ID)
				}
			}
		}
	}

	sem3, err := c.Semester("sem3")
	if err != nil {
		t.Fatal(err)
	}
	ui, mi, ok := sem3.FindModule("mod-geo-eco")
	if !ok || sem3.UEs[ui].Modules[mi].Type != grading.FullExam {
		t.Fatalf("mod-geo-eco should be exam-only")
	}
	if _, err := c.Semester("sem9"); !errors.Is(err, ErrSemesterNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"empty":          `semesters: []`,
		"duplicate ue":   "semesters:\n- id: s\n  ues:\n  - {id: u, coefficient: 1}\n  - {id: u, coefficient: 1}\n",
		"negative coef":  "semesters:\n- id: s\n  ues:\n  - {id: u, coefficient: -1}\n",
		"unknown type":   "semesters:\n- id: s\n  ues:\n  - id: u\n    coefficient: 1\n    modules:\n    - {id: m, coefficient: 1, type: oral}\n",
		"grade range":    "semesters:\n- id: s\n  ues:\n  - id: u\n    coefficient: 1\n    modules:\n    - {id: m, coefficient: 1, type: exam, exam: 21}\n",
		"duplicate mod":  "semesters:\n- id: s\n  ues:\n  - id: u\n    coefficient: 1\n    modules:\n    - {id: m, coefficient: 1, type: exam}\n  - id: v\n    coefficient: 1\n    modules:\n    - {id: m, coefficient: 1, type: exam}\n",
		"missing sem id": "semesters:\n- name: x\n",
		"not yaml":       "semesters: [",
	}
	for name, doc := range cases {
		if _, err := ParseYAML([]byte(doc)); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: err=%v want ErrInvalid", name, err)
		}
	}
}

func TestValidateAcceptsZeroCoefficient(t *testing.T) {
	doc := "semesters:\n- id: s\n  ues:\n  - id: u\n    coefficient: 0\n    modules:\n    - {id: m, coefficient: 0, type: cc_exam, cc: 12}\n"
	c, err := ParseYAML([]byte(doc))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if got := c.Semesters[0].UEs[0].Modules[0].CC; got == nil || *got != 12 {
		t.Fatalf("preset cc=%v", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	c, _ := ParseYAML([]byte("semesters:\n- id: s\n  ues:\n  - id: u\n    coefficient: 1\n    modules:\n    - {id: m, coefficient: 1, type: exam, exam: 10}\n"))
	cp := c.Clone()
	*cp.Semesters[0].UEs[0].Modules[0].Exam = 5
	if *c.Semesters[0].UEs[0].Modules[0].Exam != 10 {
		t.Fatal("clone shares grade pointers")
	}
}

func TestOpenFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, builtinYAML, 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Open(context.Background(), config.Config{CatalogSource: config.CatalogFile, CatalogPath: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(c.Semesters) != 2 {
		t.Fatalf("semesters=%d", len(c.Semesters))
	}
	if _, err := Open(context.Background(), config.Config{CatalogSource: "ldap"}); err == nil {
		t.Fatal("unknown source should fail")
	}
}
