package web

import (
	"bufio"
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"holidayd/internal/auth"
	"holidayd/internal/banner"
	"holidayd/internal/config"
	"holidayd/internal/holiday"
	appLog "holidayd/internal/log"
	"holidayd/internal/messaging"
	"holidayd/internal/model"
	"holidayd/internal/reminder"
	"holidayd/internal/scheduler"
)

const maxRequestBody = 64 << 10

// Server exposes the reminder service over HTTP: the message channel, page
// visits, the week's holidays, the ICS export and the live banner page.
type Server struct {
	cfg     *config.Config
	svc     *reminder.Service
	surface *banner.MemorySurface
	hub     *Hub
	jobs    Jobs
	mux     *http.ServeMux
	limiter *rate.Limiter
}

// Jobs is the scheduler surface exposed under /api/jobs.
type Jobs interface {
	RunNow(name string) error
	Entries() []scheduler.Entry
}

// NewServer constructs a new Server. surface must be the memory surface the
// service's presenter mounts into; hub may be nil.
func NewServer(cfg *config.Config, svc *reminder.Service, surface *banner.MemorySurface, hub *Hub) *Server {
	if hub == nil {
		hub = NewHub()
	}
	hub.OnAttach(svc.AttachPage)
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		surface: surface,
		hub:     hub,
		mux:     http.NewServeMux(),
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 40),
	}
	s.registerRoutes()
	return s
}

// SetJobs exposes the scheduled jobs under /api/jobs.
func (s *Server) SetJobs(j Jobs) {
	s.jobs = j
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return requestLog(h)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	ba := s.cfg.BasicAuth
	return ba.Username != "" && (ba.Password != "" || ba.PasswordHash != "")
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	ba := *s.cfg.BasicAuth

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, ba.Username) || !checkPassword(p, ba) {
			w.Header().Set("WWW-Authenticate", `Basic realm="holidayd", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func checkPassword(p string, ba config.BasicAuthConfig) bool {
	if ba.PasswordHash != "" {
		ok, err := auth.VerifyPassword(p, ba.PasswordHash)
		if err != nil {
			appLog.Error("basic auth: bad password_hash in config", err)
			return false
		}
		return ok
	}
	return secureCompare(p, ba.Password)
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/message", s.limited(s.handleMessage))
	s.mux.HandleFunc("POST /api/visit", s.limited(s.handleVisit))
	s.mux.HandleFunc("GET /api/holidays/week", s.handleWeek)
	s.mux.HandleFunc("GET /api/holidays.ics", s.handleICS)
	s.mux.HandleFunc("GET /api/banner", s.handleBannerState)
	s.mux.HandleFunc("POST /api/banner/close", s.handleBannerClose)
	s.mux.HandleFunc("GET /banner", s.handleBannerPage)
	s.mux.HandleFunc("GET /ws", s.hub.ServeWS)
	s.mux.HandleFunc("GET /api/jobs", s.handleJobs)
	s.mux.HandleFunc("POST /api/jobs/{name}", s.limited(s.handleRunJob))
}

func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		h(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleMessage is the popup's message channel.
//
// POST /api/message {"action":"getHolidays"}
//
// Handler errors come back as 200 {"error":...}; a missing receiver is
// 409 with the user-facing alert text.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messaging.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	resp, err := s.svc.Router().Send(r.Context(), req)
	if err != nil {
		if errors.Is(err, messaging.ErrNoReceiver) {
			writeError(w, http.StatusConflict, s.svc.NoReceiverAlert())
			return
		}
		appLog.Error("api message failed", err, "action", req.Action)
		writeError(w, http.StatusInternalServerError, "message failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type visitRequest struct {
	URL string `json:"url"`
}

// handleVisit is the page-load hook.
//
// POST /api/visit {"url":"https://timesheet.com/..."}
func (s *Server) handleVisit(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.svc.Visit(r.Context(), req.URL)
	if err != nil {
		appLog.Error("api visit failed", err, "url", req.URL)
		writeError(w, http.StatusInternalServerError, "failed to present banner")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Popup(r.Context()))
}

// handleICS exports holidays as an iCalendar file.
//
// GET /api/holidays.ics          the current week
// GET /api/holidays.ics?year=N   the whole year N
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		name     string
		holidays []model.Holiday
	)
	if y := r.URL.Query().Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil || year < 1900 || year > 2200 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		res := s.svc.Year(ctx, year)
		name = fmt.Sprintf("Public holidays %s %d", res.Region, year)
		holidays = res.Holidays
	} else {
		rep := s.svc.Week(ctx)
		name = fmt.Sprintf("Public holidays %s week %s", rep.Region, rep.Week.String())
		holidays = rep.Holidays
	}

	var buf bytes.Buffer
	if err := holiday.WriteICS(&buf, name, holidays, s.svc.Now()); err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="holidays.ics"`)
	_, _ = w.Write(buf.Bytes())
}

type bannerResponse struct {
	State    banner.State   `json:"state"`
	Kind     banner.Kind    `json:"kind,omitempty"`
	Title    string         `json:"title,omitempty"`
	Subtitle string         `json:"subtitle,omitempty"`
	Entries  []banner.Entry `json:"entries,omitempty"`
	Test     bool           `json:"test,omitempty"`
	Pages    int            `json:"pages"`
}

func (s *Server) handleBannerState(w http.ResponseWriter, _ *http.Request) {
	st, n := s.svc.Banner()
	resp := bannerResponse{State: st, Pages: s.hub.Clients()}
	if n != nil {
		resp.Kind = n.Kind
		resp.Title = n.Title()
		resp.Subtitle = n.Subtitle()
		resp.Entries = n.Entries()
		resp.Test = n.Test
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBannerClose(w http.ResponseWriter, _ *http.Request) {
	s.svc.CloseBanner()
	st, _ := s.svc.Banner()
	writeJSON(w, http.StatusOK, bannerResponse{State: st, Pages: s.hub.Clients()})
}

// handleBannerPage renders the banner as a standalone page that stays in
// sync over /ws.
func (s *Server) handleBannerPage(w http.ResponseWriter, _ *http.Request) {
	var (
		n      *banner.Notice
		fading bool
	)
	if cur, f, ok := s.surface.Current(); ok {
		n, fading = &cur, f
	}

	var buf bytes.Buffer
	if err := banner.RenderPage(&buf, n, fading); err != nil {
		appLog.Error("banner page render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render banner")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	if s.jobs == nil {
		writeJSON(w, http.StatusOK, []scheduler.Entry{})
		return
	}
	writeJSON(w, http.StatusOK, s.jobs.Entries())
}

// handleRunJob runs a scheduled job immediately and waits for it.
//
// POST /api/jobs/sweep
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if s.jobs == nil {
		writeError(w, http.StatusNotFound, "no jobs scheduled")
		return
	}
	if err := s.jobs.RunNow(name); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ran": name})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// requestLog tags each request with an id and logs its outcome.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(started),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
