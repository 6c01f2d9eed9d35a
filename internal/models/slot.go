package models

import "time"

// SlotStatus represents the lifecycle state of a schedule slot.
type SlotStatus string

const (
	SlotPending    SlotStatus = "pending"
	SlotProcessing SlotStatus = "processing"
	SlotSent       SlotStatus = "sent"
	SlotFailed     SlotStatus = "failed"
)

// Slot is one planned or executed publish event. ScheduledAt never moves
// once the slot exists; regeneration deletes and recreates pending slots
// instead. CursorAfter records the planner's rotation cursor immediately
// after this slot was assigned, so dispatch can persist fairness state.
type Slot struct {
	ID          int64      `json:"id"`
	PostID      int64      `json:"post_id"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Status      SlotStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	CursorAfter int        `json:"cursor_after"`
	Preferred   bool       `json:"preferred"`
	CreatedAt   time.Time  `json:"created_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
}

// ClaimedSlot is a slot joined with the post content and company snapshot
// needed to deliver it, as returned by the claim query.
type ClaimedSlot struct {
	Slot
	PostTitle   string `json:"post_title"`
	PostBody    string `json:"post_body"`
	CompanyID   int64  `json:"company_id"`
	CompanyName string `json:"company_name"`
}
