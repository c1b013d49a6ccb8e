package http

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/microburst-monitor/internal/domain"
	"github.com/couchcryptid/microburst-monitor/internal/session"
	"github.com/couchcryptid/microburst-monitor/internal/store"
	"github.com/couchcryptid/microburst-monitor/internal/synthetic"
)

// StatusReporter reports the state of the running session.
type StatusReporter interface {
	Status() session.Status
}

// ContinentView pairs a continent filter value with its map view.
type ContinentView struct {
	Name string         `json:"name"`
	View domain.MapView `json:"view"`
}

// ActiveResponse is the body of GET /api/detections/active.
type ActiveResponse struct {
	Now        time.Time          `json:"now"`
	Window     string             `json:"window"`
	Detections []domain.Detection `json:"detections"`
}

// API serves read-only views of the detection store and the simulated
// instruments.
type API struct {
	store        *store.Store
	instruments  *synthetic.Instruments
	status       StatusReporter
	activeWindow time.Duration
	clock        clockwork.Clock
	logger       *slog.Logger
}

// NewAPI creates the API handlers. activeWindow is used when a request does
// not pass ?window=.
func NewAPI(st *store.Store, instruments *synthetic.Instruments, status StatusReporter, activeWindow time.Duration,
	clock clockwork.Clock, logger *slog.Logger,
) *API {
	return &API{
		store:        st,
		instruments:  instruments,
		status:       status,
		activeWindow: activeWindow,
		clock:        clock,
		logger:       logger,
	}
}

// Register adds the /api routes to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/detections", a.handleDetections)
	mux.HandleFunc("GET /api/detections/active", a.handleActive)
	mux.HandleFunc("GET /api/stats", a.handleStats)
	mux.HandleFunc("GET /api/continents", a.handleContinents)
	mux.HandleFunc("GET /api/instruments", a.handleInstruments)
	mux.HandleFunc("GET /api/status", a.handleStatus)
}

func (a *API) handleDetections(w http.ResponseWriter, r *http.Request) {
	f, ok := a.filter(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, a.store.Query(f))
}

func (a *API) handleActive(w http.ResponseWriter, r *http.Request) {
	f, ok := a.filter(w, r)
	if !ok {
		return
	}

	window := a.activeWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := parseWindow(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration such as 15m or a number of seconds")
			return
		}
		window = d
	}
	if window <= 0 {
		window = store.DefaultActiveWindow
	}

	now := a.clock.Now()
	sharedobs.WriteJSON(w, http.StatusOK, ActiveResponse{
		Now:        now,
		Window:     window.String(),
		Detections: a.store.ActiveSubset(f, now, window),
	})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	f, ok := a.filter(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, a.store.StatsBySeverity(f))
}

func (a *API) handleContinents(w http.ResponseWriter, _ *http.Request) {
	views := make([]ContinentView, 0, len(domain.Continents)+1)
	views = append(views, ContinentView{Name: domain.All, View: domain.Continent(domain.All).View()})
	for _, c := range domain.Continents {
		views = append(views, ContinentView{Name: string(c), View: c.View()})
	}
	sharedobs.WriteJSON(w, http.StatusOK, views)
}

func (a *API) handleInstruments(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, a.instruments.Snapshot())
}

func (a *API) handleStatus(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, a.status.Status())
}

// filter parses the continent, severity and method query parameters. On
// failure it writes a 400 and returns false.
func (a *API) filter(w http.ResponseWriter, r *http.Request) (domain.Filter, bool) {
	q := r.URL.Query()
	f, err := domain.ParseFilter(q.Get("continent"), q.Get("severity"), q.Get("method"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return domain.Filter{}, false
		}
		a.logger.Error("parse filter", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return domain.Filter{}, false
	}
	return f, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}

// parseWindow accepts a Go duration ("15m") or a bare number of seconds ("900").
func parseWindow(raw string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if secs <= 0 || secs > int64(math.MaxInt64/time.Second) {
			return 0, fmt.Errorf("window %d seconds out of range", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}
