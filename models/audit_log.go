package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionPushQueue           AuditAction = "push-queue"
	AuditActionBroadcastExchange   AuditAction = "broadcast-exchange"
	AuditActionCheckSync           AuditAction = "check-sync"
	AuditActionNumbersNotInBifrost AuditAction = "get-numbers-not-in-bifrost"
	AuditActionNumbersNotInCache   AuditAction = "get-numbers-not-in-number-cache"
	AuditActionGenerateSignedURL   AuditAction = "generate-signed-url"
	AuditActionGetCallDetails      AuditAction = "get-call-details"
	AuditActionListPractices       AuditAction = "list-practices"
	AuditActionExportCallDetails   AuditAction = "export-call-details"
)

// AuditLog represents an append-only audit trail entry.
// Payload holds the request payload (never the response) as JSON text.
type AuditLog struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Action    AuditAction     `json:"action" db:"action"`
	Region    string          `json:"region" db:"region"`
	Payload   json.RawMessage `json:"payload,omitempty" db:"payload"`
	DoneBy    string          `json:"doneBy" db:"done_by"`
	RequestID string          `json:"requestId" db:"request_id"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`

	// Username is populated by listing queries only.
	Username string `json:"username,omitempty" db:"-"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction, region string) *AuditLog {
	return &AuditLog{
		ID:        uuid.New(),
		Action:    action,
		Region:    region,
		CreatedAt: time.Now().UTC(),
	}
}

// WithPrincipal records who performed the action. Email is preferred,
// falling back to the principal id when the session carries no email.
func (a *AuditLog) WithPrincipal(p *Principal) *AuditLog {
	if p == nil {
		return a
	}
	a.DoneBy = p.Identifier()
	return a
}

// WithRequestID sets the correlation id shared with the backend call
func (a *AuditLog) WithRequestID(requestID string) *AuditLog {
	a.RequestID = requestID
	return a
}

// WithPayload serializes the request payload
func (a *AuditLog) WithPayload(payload interface{}) *AuditLog {
	if payload == nil {
		return a
	}
	if raw, ok := payload.(json.RawMessage); ok {
		a.Payload = raw
		return a
	}
	if data, err := json.Marshal(payload); err == nil {
		a.Payload = data
	}
	return a
}

// AuditLogFilter narrows an audit log listing
type AuditLogFilter struct {
	Page           int
	Limit          int
	SortBy         string // createdAt or username
	SortOrder      string // asc or desc
	SearchUsername string
	Region         string
	Action         string
}

// Offset returns the row offset for the requested page
func (f AuditLogFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination describes a page of results
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes the page count for total rows
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// AuditLogPage is a page of audit logs
type AuditLogPage struct {
	Data       []*AuditLog `json:"data"`
	Pagination Pagination  `json:"pagination"`
}
