package events

import (
	"encoding/json"
	"time"
)

// Event types emitted over the SSE stream. The external UI uses these to know
// which cached records to refetch.
const (
	ProfessorCreated = "professor_created"
	ProfessorDeleted = "professor_deleted"
	SourcePageAdded  = "source_page_added"
	CardGenerated    = "card_generated"
	DraftCreated     = "draft_created"
	StatusChanged    = "status_changed"
	ReplyDetected    = "reply_detected"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, typ string, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   1,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// ProfessorEvent is the common payload: which professor changed.
func ProfessorEvent(reqID, typ string, professorID int64) string {
	return MakeEvent(reqID, typ, map[string]any{"professor_id": professorID})
}
