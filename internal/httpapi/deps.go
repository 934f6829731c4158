package httpapi

import (
	"database/sql"
	"sync/atomic"
	"time"

	"profreach-engine/internal/avatar"
	"profreach-engine/internal/card"
	"profreach-engine/internal/config"
	"profreach-engine/internal/emaildraft"
	"profreach-engine/internal/events"
	"profreach-engine/internal/ingest"
	"profreach-engine/internal/llm"
	"profreach-engine/internal/search"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	// Atomic stores
	CfgVal         *atomic.Value // stores config.Config
	ReplyPollState *atomic.Value // stores httpapi.ReplyPollStatus

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	TokenTTL time.Duration

	Ingest *ingest.Service
	Cards  *card.Service
	Drafts *emaildraft.Service
	Search *search.Client
	Avatar *avatar.Service
	LLM    *llm.Client

	// Reply-poll entrypoint (inject for testability)
	RunReplyPoll func() (matched int, err error)
}

func (d Deps) currentConfig() config.Config {
	if v := d.CfgVal.Load(); v != nil {
		return v.(config.Config)
	}
	return config.Default()
}
