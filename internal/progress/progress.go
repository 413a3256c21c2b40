package progress

import (
	"sync"
	"time"
)

// Snapshot is the observable state of one job. Active is false once the
// job has finished or failed, so stale percentages can be told apart from
// live ones.
type Snapshot struct {
	JobID     string    `json:"job_id"`
	Percent   int       `json:"percent"`
	Stage     string    `json:"stage,omitempty"`
	Active    bool      `json:"active"`
	Err       string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker holds progress per job ID.
type Tracker struct {
	mu     sync.RWMutex
	jobs   map[string]*entry
	now    func() time.Time
	nextID int
}

type entry struct {
	snap Snapshot
	subs map[int]chan Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]*entry), now: time.Now}
}

// Begin registers jobID as active at 0% and returns its write handle.
// Beginning an ID again resets it.
func (t *Tracker) Begin(jobID string) *Reporter {
	t.mu.Lock()
	e, ok := t.jobs[jobID]
	if !ok {
		e = &entry{subs: make(map[int]chan Snapshot)}
		t.jobs[jobID] = e
	}
	e.snap = Snapshot{JobID: jobID, Active: true, UpdatedAt: t.now()}
	t.publishLocked(e)
	t.mu.Unlock()
	return &Reporter{t: t, id: jobID}
}

// Attach returns a write handle for a job already begun, without
// resetting it.
func (t *Tracker) Attach(jobID string) *Reporter {
	return &Reporter{t: t, id: jobID}
}

func (t *Tracker) Get(jobID string) (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.jobs[jobID]
	if !ok {
		return Snapshot{}, false
	}
	return e.snap, true
}

// Subscribe streams snapshots of jobID. The current snapshot, if any, is
// delivered first. Slow readers miss intermediate values but always see
// the latest one. The returned func must be called to release the
// subscription.
func (t *Tracker) Subscribe(jobID string) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	t.mu.Lock()
	e, ok := t.jobs[jobID]
	if !ok {
		e = &entry{subs: make(map[int]chan Snapshot)}
		t.jobs[jobID] = e
	}
	id := t.nextID
	t.nextID++
	e.subs[id] = ch
	if !e.snap.UpdatedAt.IsZero() {
		ch <- e.snap
	}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(e.subs, id)
			t.mu.Unlock()
		})
	}
}

// Forget drops a finished job from memory.
func (t *Tracker) Forget(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.jobs[jobID]; ok && len(e.subs) == 0 && !e.snap.Active {
		delete(t.jobs, jobID)
	}
}

func (t *Tracker) update(jobID string, fn func(*Snapshot) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.jobs[jobID]
	if !ok || !e.snap.Active {
		return
	}
	if !fn(&e.snap) {
		return
	}
	e.snap.UpdatedAt = t.now()
	t.publishLocked(e)
}

func (t *Tracker) publishLocked(e *entry) {
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		ch <- e.snap
	}
}

// Reporter is the write side for one job.
type Reporter struct {
	t  *Tracker
	id string
}

func (r *Reporter) JobID() string { return r.id }

// Update records fraction in [0,1]. Values are clamped and never lower the
// current percentage.
func (r *Reporter) Update(fraction float64) {
	if r == nil {
		return
	}
	pct := int(fraction * 100)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	r.t.update(r.id, func(s *Snapshot) bool {
		if pct <= s.Percent {
			return false
		}
		s.Percent = pct
		return true
	})
}

func (r *Reporter) Stage(name string) {
	if r == nil {
		return
	}
	r.t.update(r.id, func(s *Snapshot) bool {
		if s.Stage == name {
			return false
		}
		s.Stage = name
		return true
	})
}

func (r *Reporter) Done() {
	if r == nil {
		return
	}
	r.t.update(r.id, func(s *Snapshot) bool {
		s.Percent = 100
		s.Stage = "done"
		s.Active = false
		return true
	})
}

func (r *Reporter) Fail(err error) {
	if r == nil {
		return
	}
	r.t.update(r.id, func(s *Snapshot) bool {
		s.Stage = "failed"
		s.Active = false
		if err != nil {
			s.Err = err.Error()
		}
		return true
	})
}

// Span maps the progress of output i (0-based) of n onto r, so n
// sequential encodes report one continuous 0..1 range.
func Span(r *Reporter, i, n int) func(float64) {
	if n <= 0 {
		n = 1
	}
	return func(f float64) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		r.Update((float64(i) + f) / float64(n))
	}
}
