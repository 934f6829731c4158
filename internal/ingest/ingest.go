package ingest

import (
	"context"
	"database/sql"
	"log"

	"profreach-engine/internal/avatar"
	"profreach-engine/internal/store"
	"profreach-engine/pkg/domain"
)

// Service runs one ingestion: fetch the page, extract text, append the
// SourcePage. Fetch failures become fetch_status=failed rows, not errors;
// the caller only sees an error when persistence itself breaks.
type Service struct {
	DB      *sql.DB
	Fetcher *Fetcher
}

func (s *Service) Run(ctx context.Context, professorID int64, url string) (domain.SourcePage, error) {
	res := s.Fetcher.Fetch(ctx, url)

	page := domain.SourcePage{
		ProfessorID: professorID,
		SourceURL:   res.SourceURL,
	}
	if res.Failed {
		page.FetchStatus = domain.FetchFailed
		page.ErrorMsg = res.ErrorMsg
		log.Printf("[ingest] fetch failed prof=%d url=%s err=%s", professorID, url, res.ErrorMsg)
	} else {
		page.FetchStatus = domain.FetchSuccess
		page.RawText = ExtractText(res.RawHTML, res.SourceURL)
		log.Printf("[ingest] ok prof=%d url=%s chars=%d", professorID, url, len(page.RawText))
	}

	saved, err := store.InsertSourcePage(ctx, s.DB, page)
	if err != nil {
		return domain.SourcePage{}, err
	}

	// Backfill the avatar from the page's best image candidate if the
	// professor doesn't have one yet.
	if !res.Failed {
		if cands := avatar.CandidatesFromHTML(res.RawHTML, res.SourceURL); len(cands) > 0 {
			if err := store.BackfillAvatar(ctx, s.DB, professorID, cands[0]); err != nil {
				log.Printf("[ingest] avatar backfill failed prof=%d err=%v", professorID, err)
			}
		}
	}

	return saved, nil
}
