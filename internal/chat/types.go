// Package chat implements the conversational state machine. The server
// keeps no session store: every request carries the client's full history
// and any pending selection, and the current state is derived from that
// payload alone.
package chat

import (
	"time"

	"github.com/frontdesk-ai/frontdesk/internal/schedule"
)

// SlotPick is a structured slot selection from the widget.
type SlotPick struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Email string    `json:"email,omitempty"`
}

// HistoryMessage is one prior turn, resubmitted by the client.
type HistoryMessage struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// TurnRequest is one conversational turn. Exactly one of Message,
// SlotPick, or Email is the primary input; History, Pending, Date, and
// Page carry the client-held state the server is stateless about.
type TurnRequest struct {
	SessionID string           `json:"session_id"`
	Message   string           `json:"message,omitempty"`
	SlotPick  *SlotPick        `json:"slot_pick,omitempty"`
	Email     string           `json:"email,omitempty"`
	History   []HistoryMessage `json:"history,omitempty"`
	Pending   *SlotPick        `json:"pending,omitempty"`
	Date      string           `json:"date,omitempty"` // YYYY-MM-DD in the configured zone
	Page      int              `json:"page,omitempty"`
}

// ResponseKind tags the closed response union.
type ResponseKind string

const (
	KindText   ResponseKind = "text"
	KindSlots  ResponseKind = "slots"
	KindBooked ResponseKind = "booked"
	KindAction ResponseKind = "action"
	KindError  ResponseKind = "error"
)

// TurnResponse is the single response variant emitted per input. The union
// is the complete contract any channel adapter must render.
type TurnResponse struct {
	Kind ResponseKind `json:"kind"`

	// KindText, KindError, and the caption accompanying KindSlots.
	Text string `json:"text,omitempty"`

	// KindSlots
	Date  string          `json:"date,omitempty"`
	Slots []schedule.Slot `json:"slots,omitempty"`

	// KindBooked
	When     string `json:"when,omitempty"`
	MeetLink string `json:"meet_link,omitempty"`

	// KindAction
	Action string `json:"action,omitempty"`
	URL    string `json:"url,omitempty"`
}

func textResponse(text string) TurnResponse {
	return TurnResponse{Kind: KindText, Text: text}
}

func slotsResponse(date string, slots []schedule.Slot, caption string) TurnResponse {
	return TurnResponse{Kind: KindSlots, Date: date, Slots: slots, Text: caption}
}

func bookedResponse(when, meetLink string) TurnResponse {
	return TurnResponse{Kind: KindBooked, When: when, MeetLink: meetLink}
}

func openURLResponse(url string) TurnResponse {
	return TurnResponse{Kind: KindAction, Action: "open_url", URL: url}
}

func errorResponse(text string) TurnResponse {
	return TurnResponse{Kind: KindError, Text: text}
}
