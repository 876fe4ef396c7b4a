package httpx

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/splax/cubedash/internal/dashboard"
)

// Budget meters Cube work per client in fixed windows. Every render spends
// its selection's cost; once a window's units are gone further renders are
// refused until it resets.
type Budget interface {
	Spend(ctx context.Context, client string, cost int) Receipt
	Close() error
}

// Receipt is the outcome of one Spend.
type Receipt struct {
	Allowed bool
	Limit   int
	Spent   int
	Resets  time.Time
}

// Remaining is what is left of the window, never negative.
func (r Receipt) Remaining() int {
	return max(r.Limit-r.Spent, 0)
}

// unmetered is returned when no limit is configured or the ledger is down.
var unmetered = Receipt{Allowed: true}

// memoryBudget keeps one window per client in process.
type memoryBudget struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	ledger map[string]budgetWindow
	spends int
}

type budgetWindow struct {
	spent  int
	resets time.Time
}

// pruneEvery bounds how often expired windows are dropped from the ledger.
const pruneEvery = 512

// NewMemoryBudget grants limit units per client per window. A non-positive
// limit disables metering.
func NewMemoryBudget(limit int, window time.Duration) Budget {
	if window <= 0 {
		window = time.Minute
	}
	return &memoryBudget{
		limit:  limit,
		window: window,
		now:    time.Now,
		ledger: make(map[string]budgetWindow),
	}
}

// Spend charges cost to client. The first spend in a fresh window always
// succeeds, so a selection dearer than the whole limit can still run once
// per window.
func (b *memoryBudget) Spend(_ context.Context, client string, cost int) Receipt {
	if b.limit <= 0 {
		return unmetered
	}
	cost = max(cost, 1)
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.spends++
	if b.spends%pruneEvery == 0 {
		b.prune(now)
	}

	w := b.ledger[client]
	if !now.Before(w.resets) {
		w = budgetWindow{resets: now.Add(b.window)}
	}
	if w.spent > 0 && w.spent+cost > b.limit {
		return Receipt{Limit: b.limit, Spent: w.spent, Resets: w.resets}
	}
	w.spent += cost
	b.ledger[client] = w
	return Receipt{Allowed: true, Limit: b.limit, Spent: w.spent, Resets: w.resets}
}

func (b *memoryBudget) prune(now time.Time) {
	for client, w := range b.ledger {
		if !now.Before(w.resets) {
			delete(b.ledger, client)
		}
	}
}

func (b *memoryBudget) Close() error { return nil }

// budgetClient identifies the caller by transport address. Forwarded headers
// are client controlled and only logged.
func budgetClient(req *http.Request) string {
	if host := remoteHost(req); host != "" {
		return host
	}
	return "unknown"
}

func remoteHost(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// charge spends sel's cost for the caller of req and reports the receipt in
// response headers. It writes the 429 itself when the budget is exhausted.
func (r *Router) charge(w http.ResponseWriter, req *http.Request, route string, sel dashboard.Selection) bool {
	receipt := r.spend(req, route, sel)
	if receipt.Limit > 0 {
		h := w.Header()
		h.Set("X-Query-Budget-Limit", strconv.Itoa(receipt.Limit))
		h.Set("X-Query-Budget-Remaining", strconv.Itoa(receipt.Remaining()))
		h.Set("X-Query-Budget-Reset", strconv.FormatInt(receipt.Resets.Unix(), 10))
	}
	if receipt.Allowed {
		return true
	}
	retry := int(time.Until(receipt.Resets).Seconds()) + 1
	w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
	writeError(w, http.StatusTooManyRequests, "query budget exhausted for this window")
	return false
}

func (r *Router) spend(req *http.Request, route string, sel dashboard.Selection) Receipt {
	cost := sel.Cost()
	receipt := r.budget.Spend(req.Context(), budgetClient(req), cost)
	if receipt.Allowed {
		r.metrics.spent(sel.Grain, cost)
	} else {
		r.metrics.refused(route, sel.Grain)
	}
	return receipt
}

// metered charges GET renders of the page before they reach Cube. Requests
// whose selection does not parse go through uncharged; they fail before any
// query runs.
func (r *Router) metered(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodGet {
			if sel, err := dashboard.ParseSelection(req.URL.Query()); err == nil {
				if !r.charge(w, req, route, sel) {
					return
				}
			}
		}
		next(w, req)
	}
}
