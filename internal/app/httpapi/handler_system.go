package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/R3E-Network/tracker/internal/app/audit"
	"github.com/R3E-Network/tracker/internal/app/health"
	"github.com/R3E-Network/tracker/internal/events"
	"github.com/R3E-Network/tracker/internal/httputil"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsBuffer     = 64
)

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	report := h.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != health.StatusOK {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, report)
}

// eventFilter builds a filter from ?projectId= and ?type=.
func eventFilter(r *http.Request) events.Filter {
	q := r.URL.Query()
	projectID := strings.TrimSpace(q.Get("projectId"))
	eventType := events.EventType(strings.TrimSpace(q.Get("type")))
	if projectID == "" && eventType == "" {
		return nil
	}
	return func(e events.Event) bool {
		if projectID != "" && e.ProjectID != projectID {
			return false
		}
		if eventType != "" && e.Type != eventType {
			return false
		}
		return true
	}
}

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.app.Events.RecentMatching(limit(r, 50, 1000), eventFilter(r)))
}

// streamEvents upgrades to a websocket and pushes every matching event as a
// JSON text frame. Slow clients drop events rather than block publishers.
func (h *handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return h.cors.Allows(r.Header.Get("Origin"))
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.WithContext(r.Context()).WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	feed := make(chan events.Event, wsBuffer)
	unsubscribe := h.app.Events.SubscribeFiltered(eventFilter(r), func(e events.Event) {
		select {
		case feed <- e:
		default:
		}
	})
	defer unsubscribe()

	// The read loop only services control frames and notices disconnects.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case e := <-feed:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	n := limit(r, 100, 1000)
	if h.opts.AuditStore != nil {
		entries, err := h.opts.AuditStore.Recent(r.Context(), n)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, entries)
		return
	}
	entries := []audit.Entry{}
	if h.opts.Audit != nil {
		entries = h.opts.Audit.Recent(n)
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}
