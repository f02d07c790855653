package session

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/moyenne/internal/catalog"
	"github.com/mind-engage/moyenne/internal/grading"
)

const smallCatalog = `
semesters:
  - id: s1
    name: S1
    ues:
      - id: u
        name: U
        coefficient: 1
        modules:
          - {id: a, name: A, coefficient: 1, type: exam, exam: 0}
          - {id: b, name: B, coefficient: 1, type: exam}
`

func newStore(t *testing.T, doc string) *Store {
	t.Helper()
	var c catalog.Catalog
	var err error
	if doc == "" {
		c, err = catalog.Builtin()
	} else {
		c, err = catalog.ParseYAML([]byte(doc))
	}
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return NewStore(c, grading.NewSynthesizer(grading.WithSeed(1)))
}

func TestNewAndGet(t *testing.T) {
	st := newStore(t, "")
	s := st.New()
	if s.ID == "" || len(s.Semesters) != 2 {
		t.Fatalf("session=%+v", s)
	}
	got, err := st.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Fatal("Get differs from New")
	}
	if _, err := st.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, err := st.Semester(s.ID, "sem9"); !errors.Is(err, ErrSemesterNotFound) {
		t.Fatalf("err=%v", err)
	}
	if err := st.Delete(s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete err=%v", err)
	}
	if err := st.Delete(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err=%v", err)
	}
}

func TestEvictIdle(t *testing.T) {
	st := newStore(t, smallCatalog)
	clock := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	idle, active := st.New(), st.New()
	clock = clock.Add(20 * time.Minute)
	if _, err := st.SetGrade(active.ID, "s1", "b", grading.FieldExam, grading.Float(9)); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(15 * time.Minute)

	if n := st.EvictIdle(0); n != 0 {
		t.Fatalf("ttl 0 evicted %d", n)
	}
	if n := st.EvictIdle(30 * time.Minute); n != 1 {
		t.Fatalf("evicted %d want 1", n)
	}
	if _, err := st.Get(idle.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("idle session still present: err=%v", err)
	}
	if _, err := st.Get(active.ID); err != nil {
		t.Fatalf("active session evicted: %v", err)
	}
}

func TestRunEviction(t *testing.T) {
	st := newStore(t, smallCatalog)
	st.New()
	st.New()

	ctx, cancel := context.WithCancel(context.Background())
	evicted := make(chan int, 4)
	done := make(chan struct{})
	go func() {
		st.RunEviction(ctx, 20*time.Millisecond, func(n int) { evicted <- n })
		close(done)
	}()

	total := 0
	for total < 2 {
		select {
		case n := <-evicted:
			total += n
		case <-time.After(5 * time.Second):
			t.Fatalf("evicted %d of 2", total)
		}
	}
	if st.Len() != 0 {
		t.Fatalf("remaining=%d", st.Len())
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunEviction did not stop")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	st := newStore(t, "")
	a, b := st.New(), st.New()
	if _, err := st.SetGrade(a.ID, "sem3", "mod-analyse-3", grading.FieldCC, grading.Float(15)); err != nil {
		t.Fatalf("SetGrade: %v", err)
	}
	sem, _ := st.Semester(b.ID, "sem3")
	if sem.UEs[0].Modules[0].CC != nil {
		t.Fatal("edit leaked into another session")
	}
}

func TestSetGradeSnapshots(t *testing.T) {
	st := newStore(t, "")
	s := st.New()
	before, _ := st.Semester(s.ID, "sem3")

	after, err := st.SetGrade(s.ID, "sem3", "mod-analyse-3", grading.FieldExam, grading.Float(12.5))
	if err != nil {
		t.Fatalf("SetGrade: %v", err)
	}
	if before.UEs[0].Modules[0].Exam != nil {
		t.Fatal("earlier snapshot changed")
	}
	if got := after.UEs[0].Modules[0].Exam; got == nil || *got != 12.5 {
		t.Fatalf("exam=%v", got)
	}

	// returned snapshots are copies
	*after.UEs[0].Modules[0].Exam = 1
	cur, _ := st.Semester(s.ID, "sem3")
	if *cur.UEs[0].Modules[0].Exam != 12.5 {
		t.Fatal("caller mutated stored snapshot")
	}

	if _, err := st.SetGrade(s.ID, "sem3", "mod-geo-eco", grading.FieldCC, grading.Float(10)); !errors.Is(err, grading.ErrFieldNotApplicable) {
		t.Fatalf("cc on exam-only: err=%v", err)
	}
	if _, err := st.SetGrade(s.ID, "sem3", "mod-analyse-3", grading.FieldCC, grading.Float(20.5)); !errors.Is(err, grading.ErrGradeOutOfRange) {
		t.Fatalf("out of range: err=%v", err)
	}
	if _, err := st.SetGrade(s.ID, "sem3", "ghost", grading.FieldCC, grading.Float(2)); !errors.Is(err, grading.ErrModuleNotFound) {
		t.Fatalf("unknown module: err=%v", err)
	}
}

func TestSynthesizeCommitsOrLeavesUnchanged(t *testing.T) {
	st := newStore(t, smallCatalog)
	s := st.New()
	before, _ := st.Semester(s.ID, "s1")

	if _, err := st.Synthesize(s.ID, "s1", 15, grading.NewModuleSet("b")); !errors.Is(err, grading.ErrUnreachable) {
		t.Fatalf("err=%v want ErrUnreachable", err)
	}
	cur, _ := st.Semester(s.ID, "s1")
	if !reflect.DeepEqual(cur, before) {
		t.Fatal("failed synthesis changed the session")
	}

	out, err := st.Synthesize(s.ID, "s1", 7, grading.NewModuleSet("b"))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := *out.UEs[0].Modules[1].Exam; got != 14 {
		t.Fatalf("b exam=%v want 14", got)
	}
	cur, _ = st.Semester(s.ID, "s1")
	if grading.SemesterAverage(cur) != 7 {
		t.Fatalf("committed average=%v", grading.SemesterAverage(cur))
	}
}

func TestRequirement(t *testing.T) {
	st := newStore(t, smallCatalog)
	s := st.New()
	req, err := st.Requirement(s.ID, "s1", 7, grading.NewModuleSet("b"))
	if err != nil {
		t.Fatalf("Requirement: %v", err)
	}
	if !req.Feasible || req.PerModule["b"] != 14 {
		t.Fatalf("req=%+v", req)
	}
}

func TestEstimateAddsMissingModules(t *testing.T) {
	st := newStore(t, "")
	s := st.New()
	est, err := st.Estimate(s.ID, "sem3", 12, nil)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if len(est.Selected) != 9 {
		t.Fatalf("selected=%v want all 9 modules", est.Selected)
	}
	if got := grading.SemesterAverage(est.Semester); math.Abs(got-12) > 0.01 {
		t.Fatalf("average=%v", got)
	}
	if len(grading.MissingData(est.Semester)) != 0 {
		t.Fatal("estimate left modules without grades")
	}
}

func TestEstimateReportsSelectionOnFailure(t *testing.T) {
	st := newStore(t, smallCatalog)
	s := st.New()
	est, err := st.Estimate(s.ID, "s1", 15, nil)
	if !errors.Is(err, grading.ErrUnreachable) {
		t.Fatalf("err=%v", err)
	}
	if !reflect.DeepEqual(est.Selected, []string{"b"}) {
		t.Fatalf("selected=%v", est.Selected)
	}

	if _, err := st.SetGrade(s.ID, "s1", "b", grading.FieldExam, grading.Float(10)); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Estimate(s.ID, "s1", 15, nil); !errors.Is(err, ErrNothingToEstimate) {
		t.Fatalf("err=%v want ErrNothingToEstimate", err)
	}
}

func TestConcurrentEdits(t *testing.T) {
	st := newStore(t, "")
	s := st.New()
	ids := []string{"mod-analyse-3", "mod-algebre-2", "mod-analyse-fin", "mod-micro-eco-1", "mod-proba-2", "mod-info-3"}
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(id string, v float64) {
			defer wg.Done()
			if _, err := st.SetGrade(s.ID, "sem3", id, grading.FieldCC, grading.Float(v)); err != nil {
				t.Error(err)
			}
		}(id, float64(10+i))
	}
	wg.Wait()
	sem, _ := st.Semester(s.ID, "sem3")
	for i, id := range ids {
		ui, mi, _ := sem.FindModule(id)
		if got := sem.UEs[ui].Modules[mi].CC; got == nil || *got != float64(10+i) {
			t.Fatalf("%s cc=%v", id, got)
		}
	}
}
