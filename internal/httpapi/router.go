package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Auth
	ah := AuthHandler{Deps: d}
	mux.HandleFunc("/users/", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Register,
	}))
	mux.HandleFunc("/token", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Token,
	}))
	mux.HandleFunc("/logout", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Logout,
	}))

	// Professors
	ph := ProfessorsHandler{Deps: d}
	eh := EnrichHandler{Deps: d}
	mux.HandleFunc("/professors/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/professors/" {
			switch r.Method {
			case http.MethodGet:
				d.authed(ph.List)(w, r)
			case http.MethodPost:
				d.authed(ph.Create)(w, r)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		id, action, ok := professorPath(r.URL.Path)
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		withID := func(h func(http.ResponseWriter, *http.Request, int64, int64)) http.HandlerFunc {
			return d.authed(func(w http.ResponseWriter, r *http.Request, userID int64) {
				h(w, r, userID, id)
			})
		}

		switch action {
		case "":
			switch r.Method {
			case http.MethodGet:
				withID(ph.Get)(w, r)
			case http.MethodPatch:
				withID(ph.Patch)(w, r)
			case http.MethodDelete:
				withID(ph.Delete)(w, r)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
		case "status":
			if r.Method != http.MethodPatch {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			withID(ph.PatchStatus)(w, r)
		case "generate-card":
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			withID(eh.GenerateCard)(w, r)
		case "generate-email":
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			withID(eh.GenerateEmail)(w, r)
		default:
			http.NotFound(w, r)
		}
	})

	// Enrichment + discovery
	mux.HandleFunc("/ingest", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: d.authed(eh.Ingest),
	}))

	sh := SearchHandler{Deps: d}
	mux.HandleFunc("/search_professors", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: d.authed(sh.SearchProfessors),
	}))
	mux.HandleFunc("/parse_search_result", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: d.authed(sh.ParseSearchResult),
	}))
	mux.HandleFunc("/extract_avatar", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: d.authed(sh.ExtractAvatar),
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: d.tokenGuard(ch.Get),
		http.MethodPut: d.tokenGuard(ch.Put),
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: d.tokenGuard(ch.Path),
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: d.tokenGuard(ch.Validate),
	}))

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sech := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/imap", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: d.tokenGuard(sech.SetIMAPPassword),
	}))

	// Reply poll
	rh := ReplyPollHandler{Deps: d}
	mux.HandleFunc("/replypoll/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: d.tokenGuard(rh.Status),
	}))
	mux.HandleFunc("/replypoll/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: d.tokenGuard(rh.Run),
	}))

	// SSE events
	evh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: d.tokenGuard(evh.ServeSSE),
	}))

	// Maintenance
	dbh := DBHandler{DB: d.DB}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: d.tokenGuard(dbh.Checkpoint),
	}))

	hh := HealthHandler{}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	return mux
}
