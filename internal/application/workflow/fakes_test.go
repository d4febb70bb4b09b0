package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/overtime-claims/internal/application/dispatcher"
	"github.com/garyjia/overtime-claims/internal/application/port"
	"github.com/garyjia/overtime-claims/internal/domain/entity"
	"github.com/garyjia/overtime-claims/internal/domain/event"
	domainwf "github.com/garyjia/overtime-claims/internal/domain/workflow"
)

// memStore is an in-memory stand-in for the sqlite repositories
type memStore struct {
	mu            sync.Mutex
	nextID        int64
	requests      map[int64]entity.OvertimeRequest
	transitions   []entity.TransitionRecord
	resubmissions []entity.ResubmissionHistoryEntry
	employees     map[string]*entity.EmployeeProfile
	holidays      map[string]bool

	// beforeApply lets a test move a row between read and conditional update
	beforeApply func(id int64)
}

func newMemStore() *memStore {
	return &memStore{
		requests:  make(map[int64]entity.OvertimeRequest),
		employees: make(map[string]*entity.EmployeeProfile),
		holidays:  make(map[string]bool),
	}
}

type snapshot struct {
	nextID        int64
	requests      map[int64]entity.OvertimeRequest
	transitions   []entity.TransitionRecord
	resubmissions []entity.ResubmissionHistoryEntry
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	reqs := make(map[int64]entity.OvertimeRequest, len(s.requests))
	for k, v := range s.requests {
		reqs[k] = v
	}
	return snapshot{
		nextID:        s.nextID,
		requests:      reqs,
		transitions:   append([]entity.TransitionRecord(nil), s.transitions...),
		resubmissions: append([]entity.ResubmissionHistoryEntry(nil), s.resubmissions...),
	}
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.requests = snap.requests
	s.transitions = snap.transitions
	s.resubmissions = snap.resubmissions
}

// put stores a request directly, bypassing the engine
func (s *memStore) put(r entity.OvertimeRequest) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		s.nextID++
		r.ID = s.nextID
	} else if r.ID > s.nextID {
		s.nextID = r.ID
	}
	s.requests[r.ID] = r
	return r.ID
}

func (s *memStore) status(id int64) domainwf.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id].Status
}

// memTx snapshots the store and restores it when fn fails
type memTx struct{ store *memStore }

func (m memTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := m.store.snapshot()
	if err := fn(ctx); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

type requestRepo struct{ s *memStore }

func (r requestRepo) Create(ctx context.Context, req *entity.OvertimeRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextID++
	req.ID = r.s.nextID
	r.s.requests[req.ID] = *req
	return nil
}

func (r requestRepo) GetByID(ctx context.Context, id int64) (*entity.OvertimeRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &req, nil
}

func (r requestRepo) List(ctx context.Context, f port.RequestFilter) ([]*entity.OvertimeRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.OvertimeRequest
	for _, req := range r.s.requests {
		req := req
		if f.EmployeeID != "" && req.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		if f.MissingPay && (req.OTAmount != nil || req.Status.IsTerminal()) {
			continue
		}
		out = append(out, &req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Limit > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
		if len(out) > f.Limit {
			out = out[:f.Limit]
		}
	}
	return out, nil
}

func (r requestRepo) ListActiveOnDate(ctx context.Context, employeeID string, date time.Time) ([]*entity.OvertimeRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.OvertimeRequest
	for _, req := range r.s.requests {
		req := req
		if req.EmployeeID == employeeID && req.OTDate.Equal(date) && req.Status != domainwf.StateRejected {
			out = append(out, &req)
		}
	}
	return out, nil
}

func (r requestRepo) SumUsage(ctx context.Context, employeeID string, from, to time.Time, excludeID int64) (float64, float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var hours, amount float64
	for _, req := range r.s.requests {
		if req.EmployeeID != employeeID || req.ID == excludeID || req.Status == domainwf.StateRejected {
			continue
		}
		if req.OTDate.Before(from) || !req.OTDate.Before(to) {
			continue
		}
		hours += req.TotalHours
		if req.OTAmount != nil {
			amount += *req.OTAmount
		}
	}
	return hours, amount, nil
}

func (r requestRepo) ApplyTransition(ctx context.Context, u port.TransitionUpdate) (bool, error) {
	if r.s.beforeApply != nil {
		r.s.beforeApply(u.RequestID)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[u.RequestID]
	if !ok {
		return false, nil
	}
	match := false
	for _, st := range u.FromStates {
		if req.Status == st {
			match = true
		}
	}
	if !match {
		return false, nil
	}

	req.Status = u.To
	at := u.At
	if stamp := req.Stamp(u.Stage); stamp != nil {
		*stamp = entity.StageStamp{ActorID: u.ActorID, At: &at, Remarks: u.Remarks}
	}
	if u.RejectionStage != "" {
		req.RejectionStage = u.RejectionStage
		req.RejectionRemarks = u.RejectionRemarks
	} else if u.ClearRejection {
		req.RejectionStage = ""
		req.RejectionRemarks = ""
	}
	req.UpdatedAt = u.At
	r.s.requests[u.RequestID] = req
	return true, nil
}

func (r requestRepo) UpdatePay(ctx context.Context, u port.PayUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[u.RequestID]
	if !ok || req.Status.IsTerminal() {
		return entity.ErrNotFound
	}
	if !u.KeepPay {
		req.ORP, req.HRP, req.OTAmount = u.ORP, u.HRP, u.OTAmount
	}
	req.FormulaError = u.FormulaError
	req.Violations = u.Violations
	r.s.requests[u.RequestID] = req
	return nil
}

type transitionRepo struct{ s *memStore }

func (t transitionRepo) Create(ctx context.Context, rec *entity.TransitionRecord) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	rec.ID = int64(len(t.s.transitions) + 1)
	t.s.transitions = append(t.s.transitions, *rec)
	return nil
}

func (t transitionRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.TransitionRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []*entity.TransitionRecord
	for _, rec := range t.s.transitions {
		rec := rec
		if rec.RequestID == requestID {
			out = append(out, &rec)
		}
	}
	return out, nil
}

type resubmissionRepo struct{ s *memStore }

func (r resubmissionRepo) Create(ctx context.Context, e *entity.ResubmissionHistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = int64(len(r.s.resubmissions) + 1)
	r.s.resubmissions = append(r.s.resubmissions, *e)
	return nil
}

func (r resubmissionRepo) GetByOriginal(ctx context.Context, id int64) (*entity.ResubmissionHistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.resubmissions {
		e := e
		if e.OriginalRequestID == id {
			return &e, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (r resubmissionRepo) GetBySuccessor(ctx context.Context, id int64) (*entity.ResubmissionHistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.resubmissions {
		e := e
		if e.SuccessorRequestID == id {
			return &e, nil
		}
	}
	return nil, entity.ErrNotFound
}

type employeeRepo struct{ s *memStore }

func (e employeeRepo) GetByID(ctx context.Context, id string) (*entity.EmployeeProfile, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	p, ok := e.s.employees[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type calendar struct{ s *memStore }

func (c calendar) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.holidays[entity.FormatDate(date)], nil
}

type ruleRepo struct{ rules []*entity.EligibilityRule }

func (r *ruleRepo) ListActive(ctx context.Context) ([]*entity.EligibilityRule, error) {
	return r.rules, nil
}

type thresholdRepo struct{ thresholds []*entity.ApprovalThreshold }

func (r *thresholdRepo) ListActive(ctx context.Context) ([]*entity.ApprovalThreshold, error) {
	return r.thresholds, nil
}

type formulaRepo struct {
	mu       sync.Mutex
	formulas map[entity.DayType]*entity.PayFormula
}

func (r *formulaRepo) Get(ctx context.Context, d entity.DayType) (*entity.PayFormula, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.formulas[d]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, entity.ErrNotFound
}

func (r *formulaRepo) List(ctx context.Context) ([]*entity.PayFormula, error) { return nil, nil }

func (r *formulaRepo) Upsert(ctx context.Context, f *entity.PayFormula) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.formulas == nil {
		r.formulas = make(map[entity.DayType]*entity.PayFormula)
	}
	cp := *f
	r.formulas[f.DayType] = &cp
	return nil
}

// recordingDispatcher captures events synchronously
type recordingDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (d *recordingDispatcher) Subscribe(event.Type, dispatcher.Handler)                {}
func (d *recordingDispatcher) SubscribeNamed(event.Type, string, dispatcher.Handler)   {}
func (d *recordingDispatcher) SubscribeMany(string, dispatcher.Handler, ...event.Type) {}
func (d *recordingDispatcher) Unsubscribe(event.Type, string)                          {}
func (d *recordingDispatcher) Subscriptions(event.Type) []dispatcher.Subscription      { return nil }
func (d *recordingDispatcher) Pending() int64                                          { return 0 }
func (d *recordingDispatcher) Close() error                                            { return nil }
func (d *recordingDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	d.DispatchAsync(ctx, evt)
	return nil
}

func (d *recordingDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}

func (d *recordingDispatcher) ofType(t event.Type) []*event.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*event.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
