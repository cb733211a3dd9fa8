package progress

import "fmt"

// ── Stored enums ─────────────────────────────────────────────────────────────

// ApprovalStatus is the persisted lifecycle field on a diligence request.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalSubmitted ApprovalStatus = "submitted"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
)

// ParseApprovalStatus validates a raw status string from the boundary.
func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	switch ApprovalStatus(s) {
	case ApprovalPending, ApprovalSubmitted, ApprovalApproved, ApprovalRejected:
		return ApprovalStatus(s), nil
	default:
		return "", fmt.Errorf("unknown approval status: %q", s)
	}
}

// Category is the fixed diligence category enumeration.
type Category string

const (
	CategoryFinancial     Category = "financial"
	CategoryLegal         Category = "legal"
	CategoryOperations    Category = "operations"
	CategoryHR            Category = "hr"
	CategoryIT            Category = "it"
	CategoryEnvironmental Category = "environmental"
	CategoryCommercial    Category = "commercial"
	CategoryOther         Category = "other"
)

// ParseCategory validates a raw category string from the boundary.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryFinancial, CategoryLegal, CategoryOperations, CategoryHR,
		CategoryIT, CategoryEnvironmental, CategoryCommercial, CategoryOther:
		return Category(s), nil
	default:
		return "", fmt.Errorf("unknown category: %q", s)
	}
}

// Priority ranks a request.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority validates a raw priority string from the boundary.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s), nil
	default:
		return "", fmt.Errorf("unknown priority: %q", s)
	}
}

// ── Derived types ────────────────────────────────────────────────────────────

// Status is the derived lifecycle label for a request. It is never persisted;
// it is recomputed from the stored fields on every read.
type Status string

const (
	StatusIncomplete    Status = "incomplete"
	StatusReviewPending Status = "review_pending"
	StatusAccepted      Status = "accepted"
)

// Item is the engine's read-only view of a single request. DocumentCount and
// HasResponse are observations resolved by the store at fetch time; the
// engine never infers them from partial data.
type Item struct {
	ID            string
	Category      Category
	StageID       *string // nil = unassigned
	Approval      ApprovalStatus
	DocumentCount int
	HasResponse   bool
}

// GroupProgress is one aggregation bucket. Ephemeral: recomputed on every
// pass over the current request set, never stored.
type GroupProgress struct {
	Key        string `json:"group_key"`
	Total      int    `json:"total"`
	Completed  int    `json:"completed"`
	Percentage int    `json:"percentage"`
}

// StageRef is the slice of a stage the gate evaluator needs.
type StageRef struct {
	ID                  string
	SortOrder           int
	CompletionThreshold int // percent of the previous stage required, 0-100
}
