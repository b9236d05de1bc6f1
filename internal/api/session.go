package api

import (
	"net/http"
	"strings"

	"voyageai/pkg/apisession"
	"voyageai/pkg/itinerary"
)

// SessionHeader identifies the client's planning session.
const SessionHeader = "X-Session-ID"

// sessionQueryParam carries the session for websocket clients, which cannot set headers.
const sessionQueryParam = "session"

const maxSessionIDLen = 128

// Sessions maps session IDs to their orchestrator.
type Sessions = apisession.Store[itinerary.Orchestrator]

func sessionIDFrom(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get(sessionQueryParam))
	}
	return id
}

// orchestratorFor resolves the request's session, writing a 400 when it is missing.
func orchestratorFor(sessions *Sessions, w http.ResponseWriter, r *http.Request) (*itinerary.Orchestrator, bool) {
	id := sessionIDFrom(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing "+SessionHeader+" header")
		return nil, false
	}
	if len(id) > maxSessionIDLen {
		writeError(w, http.StatusBadRequest, codeBadRequest, "session id is too long")
		return nil, false
	}
	return sessions.Get(id), true
}
