package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearstone-ma/be-diligence/internal/errors"
	"github.com/clearstone-ma/be-diligence/internal/logger"
	"github.com/clearstone-ma/be-diligence/internal/progress"
	"github.com/clearstone-ma/be-diligence/internal/repository"
)

// memStore is an in-memory implementation of every store interface, shared
// across the store parameters of a service under test so that derived
// document/response counts behave like the SQL joins do.
type memStore struct {
	seq       int
	deals     []*repository.Deal
	stages    []*repository.Stage
	requests  []*repository.Request
	responses []*repository.Response
	documents []*repository.Document
	templates []*repository.Template
	audits    []*repository.AuditEntry
}

func newMemStore() *memStore { return &memStore{} }

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zerolog.Nop()}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// ── DealStore ────────────────────────────────────────────────────────────────

func (m *memStore) Create(ctx context.Context, deal *repository.Deal) error {
	deal.ID = m.nextID("deal")
	deal.CreatedAt = time.Now()
	deal.UpdatedAt = deal.CreatedAt
	m.deals = append(m.deals, deal)
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*repository.Deal, error) {
	for _, d := range m.deals {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, errors.NotFound("deal", id)
}

func (m *memStore) List(ctx context.Context, status *repository.DealStatus, limit, offset int) ([]*repository.Deal, int64, error) {
	out := make([]*repository.Deal, 0)
	for _, d := range m.deals {
		if status == nil || d.Status == *status {
			out = append(out, d)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id string, status repository.DealStatus) error {
	d, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}
	d.Status = status
	return nil
}

func (m *memStore) CountRequests(ctx context.Context, id string) (int64, error) {
	var n int64
	for _, r := range m.requests {
		if r.DealID == id {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	for i, d := range m.deals {
		if d.ID == id {
			m.deals = append(m.deals[:i], m.deals[i+1:]...)
			return nil
		}
	}
	return errors.NotFound("deal", id)
}

// Per-entity wrappers give each store interface its own method set over the
// shared memStore; memStore itself carries the DealStore methods.

type stageStore struct{ *memStore }

func (s stageStore) Create(ctx context.Context, stage *repository.Stage) error {
	stage.ID = s.memStore.nextID("stage")
	stage.CreatedAt = time.Now()
	stage.UpdatedAt = stage.CreatedAt
	s.memStore.stages = append(s.memStore.stages, stage)
	return nil
}

func (s stageStore) GetByID(ctx context.Context, id string) (*repository.Stage, error) {
	for _, st := range s.memStore.stages {
		if st.ID == id {
			return st, nil
		}
	}
	return nil, errors.NotFound("stage", id)
}

func (s stageStore) ListByDeal(ctx context.Context, dealID string, activeOnly bool) ([]*repository.Stage, error) {
	out := make([]*repository.Stage, 0)
	for _, st := range s.memStore.stages {
		if st.DealID != dealID {
			continue
		}
		if activeOnly && !st.IsActive {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s stageStore) Update(ctx context.Context, stage *repository.Stage) error {
	if _, err := s.GetByID(ctx, stage.ID); err != nil {
		return err
	}
	stage.UpdatedAt = time.Now()
	return nil
}

func (s stageStore) Reorder(ctx context.Context, dealID string, stageIDs []string) error {
	for i, id := range stageIDs {
		st, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		st.SortOrder = i + 1
	}
	return nil
}

func (s stageStore) Delete(ctx context.Context, id string) error {
	for i, st := range s.memStore.stages {
		if st.ID == id {
			s.memStore.stages = append(s.memStore.stages[:i], s.memStore.stages[i+1:]...)
			for _, r := range s.memStore.requests {
				if r.StageID != nil && *r.StageID == id {
					r.StageID = nil
				}
			}
			return nil
		}
	}
	return errors.NotFound("stage", id)
}

type requestStore struct{ *memStore }

func (s requestStore) resolve(r *repository.Request) *repository.Request {
	r.DocumentCount = 0
	r.HasResponse = false
	for _, d := range s.memStore.documents {
		if d.RequestID == r.ID {
			r.DocumentCount++
		}
	}
	for _, resp := range s.memStore.responses {
		if resp.RequestID == r.ID {
			r.HasResponse = true
			break
		}
	}
	return r
}

func (s requestStore) Create(ctx context.Context, req *repository.Request) error {
	req.ID = s.memStore.nextID("req")
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	s.memStore.requests = append(s.memStore.requests, req)
	return nil
}

func (s requestStore) CreateBatch(ctx context.Context, reqs []*repository.Request) error {
	for _, r := range reqs {
		if err := s.Create(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (s requestStore) GetByID(ctx context.Context, id string) (*repository.Request, error) {
	for _, r := range s.memStore.requests {
		if r.ID == id {
			return s.resolve(r), nil
		}
	}
	return nil, errors.NotFound("request", id)
}

func (s requestStore) ListByDeal(ctx context.Context, dealID string, filter repository.RequestFilter, limit, offset int) ([]*repository.Request, int64, error) {
	out := make([]*repository.Request, 0)
	for _, r := range s.memStore.requests {
		if r.DealID != dealID {
			continue
		}
		if filter.StageID != nil && (r.StageID == nil || *r.StageID != *filter.StageID) {
			continue
		}
		if filter.Category != nil && r.Category != *filter.Category {
			continue
		}
		if filter.Priority != nil && r.Priority != *filter.Priority {
			continue
		}
		if filter.Approval != nil && r.Approval != *filter.Approval {
			continue
		}
		out = append(out, s.resolve(r))
	}
	return out, int64(len(out)), nil
}

func (s requestStore) UpdateApproval(ctx context.Context, id string, status progress.ApprovalStatus) error {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	r.Approval = status
	return nil
}

func (s requestStore) Approve(ctx context.Context, id string, approvedBy string, notes *string) error {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now()
	r.Approval = progress.ApprovalApproved
	r.ApprovedBy = &approvedBy
	r.ApprovedAt = &now
	r.ApprovalNotes = notes
	return nil
}

func (s requestStore) Reject(ctx context.Context, id, rejectedBy, reason string) error {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	r.Approval = progress.ApprovalRejected
	r.ApprovedBy = nil
	r.ApprovedAt = nil
	r.ApprovalNotes = &reason
	return nil
}

func (s requestStore) AssignStage(ctx context.Context, id string, stageID *string) error {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	r.StageID = stageID
	return nil
}

func (s requestStore) Delete(ctx context.Context, id string) error {
	for i, r := range s.memStore.requests {
		if r.ID == id {
			if r.Approval != progress.ApprovalPending {
				return errors.Conflict("cannot delete a request that is no longer pending")
			}
			s.memStore.requests = append(s.memStore.requests[:i], s.memStore.requests[i+1:]...)
			return nil
		}
	}
	return errors.NotFound("request", id)
}

type responseStore struct{ *memStore }

func (s responseStore) Create(ctx context.Context, resp *repository.Response) error {
	resp.ID = s.memStore.nextID("resp")
	resp.CreatedAt = time.Now()
	s.memStore.responses = append(s.memStore.responses, resp)
	return nil
}

func (s responseStore) ListByRequest(ctx context.Context, requestID string) ([]*repository.Response, error) {
	out := make([]*repository.Response, 0)
	for _, r := range s.memStore.responses {
		if r.RequestID == requestID {
			out = append(out, r)
		}
	}
	return out, nil
}

type documentStore struct{ *memStore }

func (s documentStore) Create(ctx context.Context, doc *repository.Document) error {
	doc.ID = s.memStore.nextID("doc")
	doc.CreatedAt = time.Now()
	s.memStore.documents = append(s.memStore.documents, doc)
	return nil
}

func (s documentStore) ListByRequest(ctx context.Context, requestID string) ([]*repository.Document, error) {
	out := make([]*repository.Document, 0)
	for _, d := range s.memStore.documents {
		if d.RequestID == requestID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s documentStore) Delete(ctx context.Context, id string) error {
	for i, d := range s.memStore.documents {
		if d.ID == id {
			s.memStore.documents = append(s.memStore.documents[:i], s.memStore.documents[i+1:]...)
			return nil
		}
	}
	return errors.NotFound("document", id)
}

type templateStore struct{ *memStore }

func (s templateStore) Create(ctx context.Context, tpl *repository.Template) error {
	tpl.ID = s.memStore.nextID("tpl")
	tpl.CreatedAt = time.Now()
	tpl.UpdatedAt = tpl.CreatedAt
	for _, item := range tpl.Items {
		item.ID = s.memStore.nextID("item")
		item.TemplateID = tpl.ID
	}
	s.memStore.templates = append(s.memStore.templates, tpl)
	return nil
}

func (s templateStore) GetByID(ctx context.Context, id string) (*repository.Template, error) {
	for _, t := range s.memStore.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, errors.NotFound("template", id)
}

func (s templateStore) List(ctx context.Context, activeOnly bool) ([]*repository.Template, error) {
	out := make([]*repository.Template, 0)
	for _, t := range s.memStore.templates {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s templateStore) SetActive(ctx context.Context, id string, active bool) error {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	t.IsActive = active
	return nil
}

type auditStore struct{ *memStore }

func (s auditStore) Append(ctx context.Context, entry *repository.AuditEntry) error {
	entry.ID = s.memStore.nextID("audit")
	entry.PerformedAt = time.Now()
	s.memStore.audits = append(s.memStore.audits, entry)
	return nil
}

func (s auditStore) GetByRequestID(ctx context.Context, requestID string) ([]*repository.AuditEntry, error) {
	out := make([]*repository.AuditEntry, 0)
	for _, e := range s.memStore.audits {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s auditStore) GetByDealID(ctx context.Context, dealID string, limit int) ([]*repository.AuditEntry, error) {
	out := make([]*repository.AuditEntry, 0)
	for _, e := range s.memStore.audits {
		if e.DealID == dealID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ── Event publisher fake ─────────────────────────────────────────────────────

type publishedEvent struct {
	eventType  string
	resourceID string
	dealID     string
	actorID    string
}

type fakePublisher struct {
	events []publishedEvent
}

func (p *fakePublisher) PublishRequestEvent(eventType, requestID, dealID, actorID string, payload map[string]interface{}) {
	p.events = append(p.events, publishedEvent{eventType, requestID, dealID, actorID})
}

func (p *fakePublisher) PublishStageEvent(eventType, stageID, dealID, actorID string, payload map[string]interface{}) {
	p.events = append(p.events, publishedEvent{eventType, stageID, dealID, actorID})
}

func (p *fakePublisher) PublishDealEvent(eventType, dealID, actorID string, payload map[string]interface{}) {
	p.events = append(p.events, publishedEvent{eventType, dealID, dealID, actorID})
}

func (p *fakePublisher) byType(eventType string) []publishedEvent {
	out := make([]publishedEvent, 0)
	for _, e := range p.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
