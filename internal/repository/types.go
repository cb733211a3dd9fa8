package repository

import (
	"time"

	"github.com/clearstone-ma/be-diligence/internal/progress"
)

// ── Deals ────────────────────────────────────────────────────────────────────

// DealStatus is the lifecycle of a deal. Archived is terminal.
type DealStatus string

const (
	DealActive   DealStatus = "active"
	DealOnHold   DealStatus = "on_hold"
	DealClosed   DealStatus = "closed"
	DealArchived DealStatus = "archived"
)

// Deal is a transaction under diligence; it owns requests and stages.
type Deal struct {
	ID            string
	Name          string
	Code          string
	Status        DealStatus
	TargetCompany *string
	Description   *string
	CreatedBy     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ── Stages ───────────────────────────────────────────────────────────────────

// Stage is an ordered workflow phase within a deal. CompletionThreshold is
// the percent of the previous stage's requests that must be accepted before
// this stage unlocks.
type Stage struct {
	ID                  string
	DealID              string
	Name                string
	Description         *string
	SortOrder           int
	CompletionThreshold int
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ── Requests ─────────────────────────────────────────────────────────────────

// Request is one diligence item tracked against a deal. DocumentCount and
// HasResponse are derived by the list/get queries from the documents and
// responses tables; they are never stored on the row. DerivedStatus is
// computed in the service layer from the progress engine.
type Request struct {
	ID            string
	DealID        string
	StageID       *string
	Category      progress.Category
	Priority      progress.Priority
	Title         string
	Description   *string
	Approval      progress.ApprovalStatus
	DueDate       *string
	ApprovedBy    *string
	ApprovedAt    *time.Time
	ApprovalNotes *string
	CreatedBy     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	DocumentCount int
	HasResponse   bool
	DerivedStatus progress.Status
}

// RequestFilter narrows List queries. Nil fields are not applied.
type RequestFilter struct {
	StageID  *string
	Category *progress.Category
	Priority *progress.Priority
	Approval *progress.ApprovalStatus
}

// ── Responses and documents ──────────────────────────────────────────────────

// Response is a text answer submitted against a request.
type Response struct {
	ID          string
	RequestID   string
	Body        string
	SubmittedBy string
	CreatedAt   time.Time
}

// Document is the metadata row for an uploaded file. File bytes live in
// object storage keyed by StorageKey; this service only tracks metadata.
type Document struct {
	ID          string
	RequestID   string
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
	UploadedBy  string
	CreatedAt   time.Time
}

// ── Templates ────────────────────────────────────────────────────────────────

// Template is a reusable questionnaire applied to deals to create requests
// in bulk.
type Template struct {
	ID          string
	Name        string
	Description *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Items       []*TemplateItem
}

// TemplateItem is one request blueprint within a template.
type TemplateItem struct {
	ID          string
	TemplateID  string
	Category    progress.Category
	Priority    progress.Priority
	Title       string
	Description *string
	SortOrder   int
}

// ── Audit log ────────────────────────────────────────────────────────────────

// AuditEntry is one immutable record of a request lifecycle action.
type AuditEntry struct {
	ID             string
	RequestID      string
	DealID         string
	Action         string // submitted | approved | rejected | reopened | stage_assigned | created | deleted
	PerformedBy    string
	PerformedAt    time.Time
	ApprovalBefore *string
	ApprovalAfter  *string
	Metadata       map[string]interface{}
}
