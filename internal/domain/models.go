// Package domain defines the data model of the relay: pending user messages,
// admin responses, and their attachments. The types double as GORM models for
// the optional SQLite-backed store and as JSON payloads on the wire, so field
// tags carry both mappings.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Roles produced by identity resolution. There is no verification step: a
// name equal to the configured admin name yields RoleAdmin, anything else
// RoleRegular.
const (
	RoleRegular = "regular"
	RoleAdmin   = "admin"
)

// TargetAll is the broadcast sentinel for AdminResponse.TargetUserID. A
// response addressed to TargetAll is visible to every regular user.
const TargetAll = "all"

// StatusPending is the only live status of a queued message. Marking a
// message responded evicts it from the queue rather than archiving it, so no
// "responded" rows ever exist in a store.
const StatusPending = "pending"

// Attachment references an uploaded file owned by a message or response.
// The binary payload itself lives in the blob store (uploads directory) under
// StorageKey; Attachment values only carry the correlation metadata.
//
// Fields:
//   - StorageKey: server-generated unique file name, stable retrieval key.
//   - OriginalName: the client-supplied file name, display only.
//   - Size: payload length in bytes as written to the blob store.
type Attachment struct {
	StorageKey   string `json:"filename"`
	OriginalName string `json:"originalname"`
	Size         int64  `json:"size"`
}

// PendingMessage is a regular user's submission awaiting an admin reply.
// IDs are strictly increasing in insertion order (wall-clock derived), so
// sorting by ID recovers submission order.
//
// Text may be empty when attachments are present; a submission with neither
// is rejected at the HTTP layer.
type PendingMessage struct {
	ID          int64          `json:"id"         gorm:"primaryKey;autoIncrement:false"`
	UserID      string         `json:"userId"     gorm:"type:varchar(64);not null;index:idx_pending_user"`
	Username    string         `json:"username"   gorm:"type:varchar(255);not null"`
	Text        string         `json:"message"    gorm:"type:text"`
	Attachments []Attachment   `json:"files,omitempty" gorm:"serializer:json"`
	CreatedAt   time.Time      `json:"timestamp"`
	Status      string         `json:"status"     gorm:"type:varchar(16);not null;default:'pending'"`
	DeletedAt   gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for PendingMessage.
func (PendingMessage) TableName() string { return "pending_messages" }

// AdminResponse is an admin reply, either broadcast (TargetUserID ==
// TargetAll) or directed at exactly one user. Responses are append-only and
// immutable for the lifetime of the store; delivery state lives entirely on
// the client, which dedups by ID.
type AdminResponse struct {
	ID            int64        `json:"id"             gorm:"primaryKey;autoIncrement:false"`
	AdminUsername string       `json:"adminUsername"  gorm:"type:varchar(255);not null"`
	Text          string       `json:"response"       gorm:"type:text"`
	Attachments   []Attachment `json:"files,omitempty" gorm:"serializer:json"`
	TargetUserID  string       `json:"targetUserId"   gorm:"type:varchar(64);not null;index:idx_response_target"`
	CreatedAt     time.Time    `json:"timestamp"`
}

// TableName returns the database table name for AdminResponse.
func (AdminResponse) TableName() string { return "admin_responses" }

// VisibleTo reports whether the response should be delivered to userID.
// Equality on the client-supplied id is intentional: the server keeps no
// per-user read cursor and no identity proof.
func (r AdminResponse) VisibleTo(userID string) bool {
	return r.TargetUserID == TargetAll || r.TargetUserID == userID
}

// Identity is the result of resolving a display name: the name echoed back
// plus the role it maps to.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"-"`
	IsAdmin  bool   `json:"isAdmin"`
}

// History entry roles as rendered by the client mirror. "bot" marks
// synthesized entries (welcome text, waiting notice, delivered responses)
// to match how a regular user sees admin replies.
const (
	EntryUser  = "user"
	EntryAdmin = "admin"
	EntryBot   = "bot"
)

// ChatHistoryEntry is one rendered line of a client's local conversation
// mirror. ResponseID is set only for entries sourced from an AdminResponse
// and is the key the reconciler dedups on; locally originated entries leave
// it zero.
type ChatHistoryEntry struct {
	Role       string      `json:"type"`
	Text       string      `json:"content"`
	ResponseID int64       `json:"responseId,omitempty"`
	Attachment *Attachment `json:"fileData,omitempty"`
}
