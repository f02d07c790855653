// Package catalog holds the read-only program structure (semesters, UEs,
// modules with their coefficients and types) that seeds every session.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/moyenne/internal/grading"
)

//go:embed builtin.yaml
var builtinYAML []byte

var (
	ErrInvalid          = errors.New("invalid catalog")
	ErrSemesterNotFound = errors.New("semester not found")
)

type Catalog struct {
	Semesters []grading.Semester `json:"semesters" yaml:"semesters"`
}

// Source loads a catalog.
type Source interface {
	Load(ctx context.Context) (Catalog, error)
}

// Builtin returns the embedded program.
func Builtin() (Catalog, error) {
	return ParseYAML(builtinYAML)
}

// ParseYAML decodes and validates a catalog document.
func ParseYAML(b []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseYAML(b)
}

type BuiltinSource struct{}

func (BuiltinSource) Load(context.Context) (Catalog, error) { return Builtin() }

type FileSource struct{ Path string }

func (f FileSource) Load(context.Context) (Catalog, error) { return LoadFile(f.Path) }

// Validate checks IDs are present and unique per scope, coefficients are
// finite and non-negative, types are known and preset grades are in range.
func (c Catalog) Validate() error {
	if len(c.Semesters) == 0 {
		return fmt.Errorf("%w: no semesters", ErrInvalid)
	}
	semIDs := map[string]bool{}
	for _, s := range c.Semesters {
		if s.ID == "" {
			return fmt.Errorf("%w: semester without id", ErrInvalid)
		}
		if semIDs[s.ID] {
			return fmt.Errorf("%w: duplicate semester %q", ErrInvalid, s.ID)
		}
		semIDs[s.ID] = true

		ueIDs := map[string]bool{}
		modIDs := map[string]bool{}
		for _, ue := range s.UEs {
			if ue.ID == "" {
				return fmt.Errorf("%w: %s: ue without id", ErrInvalid, s.ID)
			}
			if ueIDs[ue.ID] {
				return fmt.Errorf("%w: %s: duplicate ue %q", ErrInvalid, s.ID, ue.ID)
			}
			ueIDs[ue.ID] = true
			if !validCoefficient(ue.Coefficient) {
				return fmt.Errorf("%w: %s/%s: coefficient %v", ErrInvalid, s.ID, ue.ID, ue.Coefficient)
			}
			for _, m := range ue.Modules {
				// module ids are unique across the semester: edits and
				// selections address modules by id alone
				if m.ID == "" {
					return fmt.Errorf("%w: %s/%s: module without id", ErrInvalid, s.ID, ue.ID)
				}
				if modIDs[m.ID] {
					return fmt.Errorf("%w: %s: duplicate module %q", ErrInvalid, s.ID, m.ID)
				}
				modIDs[m.ID] = true
				if !validCoefficient(m.Coefficient) {
					return fmt.Errorf("%w: %s/%s: coefficient %v", ErrInvalid, s.ID, m.ID, m.Coefficient)
				}
				if !m.Type.Valid() {
					return fmt.Errorf("%w: %s/%s: unknown type %q", ErrInvalid, s.ID, m.ID, m.Type)
				}
				for _, g := range []*float64{m.CC, m.Exam} {
					if g != nil && !grading.InRange(*g) {
						return fmt.Errorf("%w: %s/%s: grade %v", ErrInvalid, s.ID, m.ID, *g)
					}
				}
			}
		}
	}
	return nil
}

func validCoefficient(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Clone returns a deep copy so sessions never share grade pointers.
func (c Catalog) Clone() Catalog {
	out := Catalog{Semesters: make([]grading.Semester, len(c.Semesters))}
	for i, s := range c.Semesters {
		out.Semesters[i] = s.Clone()
	}
	return out
}

func (c Catalog) Semester(id string) (grading.Semester, error) {
	for _, s := range c.Semesters {
		if s.ID == id {
			return s.Clone(), nil
		}
	}
	return grading.Semester{}, fmt.Errorf("%w: %s", ErrSemesterNotFound, id)
}
