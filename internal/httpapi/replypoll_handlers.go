package httpapi

import (
	"net/http"
	"time"
)

// ReplyPollStatus mirrors the last run of the IMAP reply scan.
type ReplyPollStatus struct {
	LastRunAt   string `json:"last_run_at"`
	LastOkAt    string `json:"last_ok_at"`
	LastError   string `json:"last_error"`
	LastMatched int    `json:"last_matched"`
	Running     bool   `json:"running"`
}

type ReplyPollHandler struct {
	Deps
}

func (h ReplyPollHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, _ := h.ReplyPollState.Load().(ReplyPollStatus)
	writeJSON(w, st)
}

// Run triggers one poll cycle out of band of the schedule.
func (h ReplyPollHandler) Run(w http.ResponseWriter, r *http.Request) {
	st, _ := h.ReplyPollState.Load().(ReplyPollStatus)
	if st.Running {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	h.ReplyPollState.Store(ReplyPollStatus{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	go func() {
		matched, err := h.RunReplyPoll()

		now := time.Now().Format(time.RFC3339)
		next, _ := h.ReplyPollState.Load().(ReplyPollStatus)
		next.Running = false
		next.LastRunAt = now
		next.LastMatched = matched
		if err != nil {
			next.LastError = err.Error()
		} else {
			next.LastError = ""
			next.LastOkAt = now
		}
		h.ReplyPollState.Store(next)
	}()

	writeJSON(w, map[string]any{"ok": true})
}
