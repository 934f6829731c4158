package replypoll

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/emersion/go-imap/v2"

	"profreach-engine/internal/config"
	"profreach-engine/internal/events"
	"profreach-engine/internal/secrets"
	"profreach-engine/internal/store"
	"profreach-engine/pkg/domain"
)

// RunOnce polls the configured mailbox for unseen mail and advances any
// professor in Sent whose reply it can attribute. Matched messages are marked
// seen; everything else is left untouched for the next cycle.
func RunOnce(ctx context.Context, db *sql.DB, cfg config.Config, hub *events.Hub) (matched int, err error) {
	if !cfg.ReplyPoll.Enabled {
		return 0, nil
	}
	if cfg.ReplyPoll.IMAPHost == "" || cfg.ReplyPoll.Username == "" {
		return 0, errors.New("reply_poll enabled but missing imap_host/username")
	}

	waiting, err := store.AwaitingReply(ctx, db)
	if err != nil {
		return 0, err
	}
	if len(waiting) == 0 {
		return 0, nil
	}

	password, err := secrets.GetIMAPPassword(secrets.IMAPKeyringAccount(cfg))
	if err != nil {
		return 0, err
	}

	addr := fmt.Sprintf("%s:%d", cfg.ReplyPoll.IMAPHost, cfg.ReplyPoll.IMAPPort)
	c, err := dialAndLogin(ctx, addr, cfg.ReplyPoll.Username, password)
	if err != nil {
		return 0, err
	}
	defer logoutAndClose(c)

	if err := selectMailbox(c, cfg.ReplyPoll.Mailbox); err != nil {
		return 0, err
	}

	msgs, err := fetchUnseen(ctx, c, cfg.ReplyPoll.MaxPerCycle)
	if err != nil {
		return 0, err
	}

	var seen []imap.UID
	for _, m := range msgs {
		prof := matchProfessor(waiting, m)
		if prof == nil {
			continue
		}

		if _, err := store.UpdateStatus(ctx, db, prof.ID, domain.StatusReplied); err != nil {
			log.Printf("[replypoll] advance prof=%d failed: %v", prof.ID, err)
			continue
		}
		if err := store.SetFollowup(ctx, db, prof.ID, false); err != nil {
			log.Printf("[replypoll] clear followup prof=%d failed: %v", prof.ID, err)
		}

		matched++
		seen = append(seen, m.UID)
		log.Printf("[replypoll] reply detected prof=%d from=%s subject=%q", prof.ID, m.FromAddr, m.Subject)
		if hub != nil {
			hub.Publish(events.ProfessorEvent("", events.ReplyDetected, prof.ID))
		}
	}

	if err := markSeen(c, seen); err != nil {
		log.Printf("[replypoll] mark seen failed: %v", err)
	}
	return matched, nil
}

// matchProfessor attributes a message to at most one waiting professor.
// A sender domain equal to the professor's website host is the strong
// signal; the professor's last name in the sender display name is the weak
// one and requires the full name to appear in name or subject.
func matchProfessor(waiting []domain.Professor, m inboundMail) *domain.Professor {
	fromDomain := ""
	if i := strings.LastIndex(m.FromAddr, "@"); i >= 0 {
		fromDomain = m.FromAddr[i+1:]
	}

	for i := range waiting {
		p := &waiting[i]

		if fromDomain != "" && hostOf(p.WebsiteURL) != "" && strings.HasSuffix(hostOf(p.WebsiteURL), fromDomain) {
			return p
		}

		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		if containsFold(m.FromName, name) || containsFold(m.Subject, name) {
			return p
		}
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
