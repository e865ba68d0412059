package api

import (
	"net/http"

	"formgate/internal/auth"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Browsers enforce auth via the bearer token; the feed carries
		// no sensitive payloads beyond status changes.
		return true
	},
}

// wsHandler upgrades an authenticated recruiter connection and attaches
// it to the org's live invitation status feed.
func (d Dependencies) wsHandler(w http.ResponseWriter, r *http.Request) {
	if d.Hub == nil {
		http.Error(w, "Live feed not available", http.StatusServiceUnavailable)
		return
	}

	orgID := auth.GetOrgID(r.Context())
	if orgID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.Log.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	d.Hub.Register(conn, orgID)
	d.Log.Info("Recruiter feed connected", zap.String("org_id", orgID))
}
