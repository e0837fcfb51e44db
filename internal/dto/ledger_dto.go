package dto

import (
	"time"

	"github.com/marketbay/audit-api/internal/models"
)

// LedgerAppendRequest captures the payload recorded when a collaborator
// performs a sensitive operation.
type LedgerAppendRequest struct {
	Action       string                 `json:"action" validate:"required,min=3,max=255"`
	Severity     string                 `json:"severity" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	ActorType    string                 `json:"actor_type" validate:"omitempty,oneof=admin system"`
	TargetUserID *uint                  `json:"target_user_id"`
	IsBulk       bool                   `json:"is_bulk"`
	Reason       string                 `json:"reason" validate:"omitempty,max=2000"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// LedgerListRequest defines filters for listing ledger records.
type LedgerListRequest struct {
	Page         int
	PageSize     int
	Action       string
	Severity     string `validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	ActorType    string `validate:"omitempty,oneof=admin system"`
	IsBulk       *bool
	Archived     *bool
	AdminID      *uint
	TargetUserID *uint
	From         *time.Time
	To           *time.Time
}

// BulkArchiveRequest selects records for bulk archival.
type BulkArchiveRequest struct {
	RecordIDs []uint `json:"record_ids" validate:"required,min=1,dive,gt=0"`
}

// LedgerRecordResponse serializes a ledger record for API consumers.
type LedgerRecordResponse struct {
	ID           uint                   `json:"id"`
	RecordRef    string                 `json:"record_ref"`
	AdminID      *uint                  `json:"admin_id,omitempty"`
	TargetUserID *uint                  `json:"target_user_id,omitempty"`
	Action       string                 `json:"action"`
	Severity     string                 `json:"severity"`
	Reason       string                 `json:"reason,omitempty"`
	ActorType    string                 `json:"actor_type"`
	IsBulk       bool                   `json:"is_bulk"`
	IsArchived   bool                   `json:"is_archived"`
	IPAddress    string                 `json:"ip_address,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// LedgerListResponse wraps a paginated ledger view.
type LedgerListResponse struct {
	Items      []LedgerRecordResponse `json:"items"`
	Pagination PaginationMeta         `json:"pagination"`
}

// NewLedgerRecordResponse converts a ledger model into a DTO.
func NewLedgerRecordResponse(record models.ActivityRecord) LedgerRecordResponse {
	var metadata map[string]interface{}
	if len(record.Metadata) > 0 {
		metadata = record.Metadata
	}

	return LedgerRecordResponse{
		ID:           record.ID,
		RecordRef:    record.RecordRef,
		AdminID:      record.AdminID,
		TargetUserID: record.TargetUserID,
		Action:       record.Action,
		Severity:     record.Severity,
		Reason:       record.Reason,
		ActorType:    record.ActorType,
		IsBulk:       record.IsBulk,
		IsArchived:   record.IsArchived,
		IPAddress:    record.IPAddress,
		UserAgent:    record.UserAgent,
		Metadata:     metadata,
		CreatedAt:    record.CreatedAt,
	}
}
