package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate fills gaps with defaults and flags nonsense values.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	def := Default()

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Auth.TokenTTLHours <= 0 {
		out.Auth.TokenTTLHours = def.Auth.TokenTTLHours
	}

	if out.Fetch.TimeoutSeconds <= 0 {
		out.Fetch.TimeoutSeconds = def.Fetch.TimeoutSeconds
	}
	if out.Fetch.HostReqPerSec <= 0 {
		out.Fetch.HostReqPerSec = def.Fetch.HostReqPerSec
	} else if out.Fetch.HostReqPerSec > 10 {
		res.addWarn("fetch.host_req_per_sec is very high (%.1f) and may get the engine blocked.", out.Fetch.HostReqPerSec)
	}
	if out.Fetch.HostBurst <= 0 {
		out.Fetch.HostBurst = def.Fetch.HostBurst
	}

	if out.Search.MaxResults <= 0 {
		out.Search.MaxResults = def.Search.MaxResults
	} else if out.Search.MaxResults > 20 {
		res.addWarn("search.max_results above 20 slows down candidate parsing.")
	}

	if out.Followup.AfterDays <= 0 {
		out.Followup.AfterDays = def.Followup.AfterDays
	}
	if out.Followup.RecomputeHours <= 0 {
		out.Followup.RecomputeHours = def.Followup.RecomputeHours
	}

	if out.LLM.Enabled {
		if strings.TrimSpace(out.LLM.OllamaURL) == "" {
			out.LLM.OllamaURL = def.LLM.OllamaURL
		}
		if strings.TrimSpace(out.LLM.Model) == "" {
			out.LLM.Model = def.LLM.Model
		}
		if strings.TrimSpace(out.LLM.VisionModel) == "" {
			out.LLM.VisionModel = def.LLM.VisionModel
		}
	}

	// reply polling required fields (password not here; it's in the keychain)
	if out.ReplyPoll.Enabled {
		if strings.TrimSpace(out.ReplyPoll.IMAPHost) == "" {
			res.addErr("reply_poll.imap_host is required when reply_poll.enabled=true")
		}
		if out.ReplyPoll.IMAPPort == 0 {
			res.addErr("reply_poll.imap_port is required when reply_poll.enabled=true")
		}
		if strings.TrimSpace(out.ReplyPoll.Username) == "" {
			res.addErr("reply_poll.username is required when reply_poll.enabled=true")
		}
		if strings.TrimSpace(out.ReplyPoll.Mailbox) == "" {
			out.ReplyPoll.Mailbox = def.ReplyPoll.Mailbox
		}
		if out.ReplyPoll.PollSeconds <= 0 {
			out.ReplyPoll.PollSeconds = def.ReplyPoll.PollSeconds
		} else if out.ReplyPoll.PollSeconds < 60 {
			res.addWarn("reply_poll.poll_seconds is very low (%d) and may trip IMAP rate limits.", out.ReplyPoll.PollSeconds)
		}
		if out.ReplyPoll.MaxPerCycle <= 0 {
			out.ReplyPoll.MaxPerCycle = def.ReplyPoll.MaxPerCycle
		}
	}

	return out, res
}
