package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/splax/cubedash/internal/dashboard"
)

const (
	wsReadLimit    = 4096
	wsWriteTimeout = 10 * time.Second
	wsIdleTimeout  = 10 * time.Minute
)

// wsRequest is one selection change sent by the page.
type wsRequest struct {
	Metric string `json:"metric"`
	From   string `json:"from"`
	To     string `json:"to"`
	Grain  string `json:"grain"`
}

func (m wsRequest) values() url.Values {
	v := url.Values{}
	v.Set("metric", m.Metric)
	v.Set("from", m.From)
	v.Set("to", m.To)
	v.Set("grain", m.Grain)
	return v
}

type wsResponse struct {
	Panel  *dashboard.Panel `json:"panel,omitempty"`
	Error  string           `json:"error,omitempty"`
	Status int              `json:"status"`
}

// handleWS re-renders a panel for every selection message, one at a time.
func (r *Router) handleWS(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		var msg wsRequest
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, websocket.ErrReadLimit) {
				r.logger.Debug("websocket read ended", "error", err)
			}
			return
		}

		resp := r.renderMessage(req, msg)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			r.logger.Warn("websocket send failed", "error", err)
			return
		}
	}
}

// renderMessage charges each selection like a GET of /api/series would.
func (r *Router) renderMessage(req *http.Request, msg wsRequest) wsResponse {
	sel, err := dashboard.ParseSelection(msg.values())
	if err != nil {
		return wsResponse{Error: err.Error(), Status: http.StatusBadRequest}
	}
	if receipt := r.spend(req, "/ws", sel); !receipt.Allowed {
		return wsResponse{Error: "query budget exhausted for this window", Status: http.StatusTooManyRequests}
	}
	panel, err := r.svc.Render(req.Context(), sel)
	if err != nil {
		return wsResponse{Error: err.Error(), Status: dashboard.StatusFor(err)}
	}
	return wsResponse{Panel: panel, Status: http.StatusOK}
}
