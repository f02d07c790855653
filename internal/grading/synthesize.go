package grading

import (
	"math"
	"math/rand"
	"time"
)

const (
	// closeTolerance absorbs rounding error on the closing slot.
	closeTolerance = 0.01
	// windowSlack absorbs float error when a window collapses to a point.
	windowSlack = 1e-9
)

type Option func(*synthConfig)

type synthConfig struct {
	attempts int
	newRand  func() *rand.Rand
}

// WithAttempts sets how many shuffled constructions are tried before giving
// up. The default is a single attempt.
func WithAttempts(n int) Option {
	return func(c *synthConfig) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithSeed makes every Synthesize call start from the same seed.
func WithSeed(seed int64) Option {
	return func(c *synthConfig) {
		c.newRand = func() *rand.Rand { return rand.New(rand.NewSource(seed)) }
	}
}

// WithRandSource installs a factory for per-call random generators.
func WithRandSource(f func() *rand.Rand) Option {
	return func(c *synthConfig) {
		if f != nil {
			c.newRand = f
		}
	}
}

// Synthesizer turns a target semester average into concrete CC/exam grades
// for a set of free modules. It holds no state between calls and is safe for
// concurrent use.
type Synthesizer struct {
	cfg synthConfig
}

func NewSynthesizer(opts ...Option) *Synthesizer {
	cfg := synthConfig{
		attempts: 1,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Synthesizer{cfg: cfg}
}

// slot is a grade field with its weight in the unnormalized semester sum
// (coefficient points: UE coefficient times module share times fraction).
type slot struct {
	ue, mod int
	field   Field
	weight  float64
}

// Synthesize returns a copy of s where every slot of the free modules holds a
// grade in [0,20], rounded to 2 decimals, such that the semester average
// equals target up to rounding. Slots of the other modules are left as they
// are and count as zero when empty.
//
// Slots are visited in random order; each draws uniformly from the window
// that still lets the remaining slots reach the target, and the last one
// takes the exact closing value. There is no backtracking: a reachable target
// can still fail on an unlucky order, in which case ErrUnreachable is returned
// after the configured number of attempts. s is never modified.
func (z *Synthesizer) Synthesize(s Semester, target float64, free ModuleSet) (Semester, error) {
	if !validTarget(target) {
		return Semester{}, ErrInvalidTarget
	}
	if len(free) == 0 {
		return Semester{}, ErrNoFreeModules
	}
	totalUECoeff := s.TotalCoefficient()
	if totalUECoeff == 0 {
		return Semester{}, ErrUnreachable
	}

	locked, mutable := decompose(s, free)
	if len(mutable) == 0 {
		return Semester{}, ErrNoFreeModules
	}
	remaining := target*totalUECoeff - locked

	rng := z.cfg.newRand()
	for attempt := 0; attempt < z.cfg.attempts; attempt++ {
		if out, ok := construct(s, mutable, remaining, rng); ok {
			return out, nil
		}
	}
	return Semester{}, ErrUnreachable
}

// PartiallyGraded lists the locked modules that have some but not all of
// their grades. Synthesis counts their entered grades while SemesterAverage
// scores them as zero, so the committed average falls short of the target.
func PartiallyGraded(s Semester, free ModuleSet) []string {
	var out []string
	for _, ue := range s.UEs {
		for _, m := range ue.Modules {
			if free.Has(m.ID) {
				continue
			}
			graded := 0
			slots := SchemeFor(m.Type).Slots
			for _, part := range slots {
				if m.Grade(part.Field) != nil {
					graded++
				}
			}
			if graded > 0 && graded < len(slots) {
				out = append(out, m.ID)
			}
		}
	}
	return out
}

// decompose splits s into the weighted score of locked slots and the list of
// mutable slots.
func decompose(s Semester, free ModuleSet) (locked float64, mutable []slot) {
	for ui, ue := range s.UEs {
		totalModCoeff := ue.TotalCoefficient()
		for mi, m := range ue.Modules {
			modWeight := 0.0
			if totalModCoeff > 0 {
				modWeight = m.Coefficient * ue.Coefficient / totalModCoeff
			}
			isFree := free.Has(m.ID)
			for _, part := range SchemeFor(m.Type).Slots {
				w := modWeight * part.Fraction
				if isFree {
					mutable = append(mutable, slot{ue: ui, mod: mi, field: part.Field, weight: w})
					continue
				}
				if g := m.Grade(part.Field); g != nil {
					locked += *g * w
				}
			}
		}
	}
	return locked, mutable
}

func construct(s Semester, slots []slot, remaining float64, rng *rand.Rand) (Semester, bool) {
	out := s.Clone()
	order := make([]slot, 0, len(slots))
	for _, sl := range slots {
		if sl.weight > 0 {
			order = append(order, sl)
			continue
		}
		// cannot move the sum; any legal value will do
		set(&out, sl, round2(rng.Float64()*MaxGrade))
	}
	if len(order) == 0 {
		return out, math.Abs(remaining) <= closeTolerance
	}
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	accumulated := 0.0
	for i, sl := range order {
		need := remaining - accumulated
		if i == len(order)-1 {
			v := need / sl.weight
			if v < MinGrade-closeTolerance || v > MaxGrade+closeTolerance {
				return Semester{}, false
			}
			set(&out, sl, math.Min(MaxGrade, math.Max(MinGrade, round2(v))))
			break
		}

		restWeights := 0.0
		for _, next := range order[i+1:] {
			restWeights += next.weight
		}
		lo := math.Max(MinGrade, (need-restWeights*MaxGrade)/sl.weight)
		hi := math.Min(MaxGrade, need/sl.weight)
		if lo > hi+windowSlack {
			return Semester{}, false
		}
		hi = math.Max(lo, hi)
		v := draw(lo, hi, rng)
		set(&out, sl, v)
		accumulated += v * sl.weight
	}
	return out, true
}

func set(s *Semester, sl slot, v float64) {
	s.UEs[sl.ue].Modules[sl.mod].setGrade(sl.field, &v)
}

// draw picks a value uniformly in [lo,hi] and rounds it to 2 decimals,
// staying on a grid point inside the window whenever the window holds one.
func draw(lo, hi float64, rng *rand.Rand) float64 {
	v := round2(lo + rng.Float64()*(hi-lo))
	if v > hi {
		v = math.Floor(hi*100) / 100
	}
	if v < lo {
		v = math.Ceil(lo*100) / 100
	}
	return math.Min(MaxGrade, math.Max(MinGrade, v))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
