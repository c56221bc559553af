package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"lexdraft/internal/metrics"
	"lexdraft/internal/session"
	"lexdraft/internal/tone"
)

// CookieName carries the visitor's session id.
const CookieName = "lexdraft_session"

//go:embed templates/index.html
var templateFiles embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFiles, "templates/index.html"))

// Server is the browser front end for the drafting workflow. Each visitor
// gets an isolated session keyed by cookie.
type Server struct {
	drafter  session.Drafter
	sessions *session.Store
	log      *zap.Logger
	metrics  *metrics.Metrics
	port     int
	model    string
}

type Option func(*Server)

// WithMetrics exposes /metrics and counts requests.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithModel is reported by /api/status.
func WithModel(model string) Option {
	return func(s *Server) { s.model = model }
}

func NewServer(d session.Drafter, store *session.Store, port int, opts ...Option) *Server {
	if port == 0 {
		port = 8501
	}
	s := &Server{
		drafter:  d,
		sessions: store,
		log:      zap.NewNop(),
		port:     port,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed mux, wrapped with request accounting.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /submit", s.handleSubmitForm)
	mux.HandleFunc("POST /draft", s.handleDraftForm)

	mux.HandleFunc("GET /api/tones", s.handleTones)
	mux.HandleFunc("POST /api/suggest", s.handleSuggest)
	mux.HandleFunc("POST /api/draft", s.handleDraft)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s.instrument(mux)
}

// routeLabel is the mux pattern that serves r, or "other" when none does,
// so metric labels stay bounded.
func routeLabel(mux *http.ServeMux, r *http.Request) string {
	if _, pattern := mux.Handler(r); pattern != "" {
		return pattern
	}
	return "other"
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sessions.CleanupLoop(ctx, time.Minute)
	go func() {
		<-ctx.Done()
		s.log.Info("shutting down web ui")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting web ui", zap.String("url", fmt.Sprintf("http://localhost:%d", s.port)))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webui server error: %w", err)
	}
	return nil
}

type pageData struct {
	session.Snapshot
	Tones []string
	Error string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	s.render(w, http.StatusOK, sess.Snapshot(), "")
}

func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	email := r.FormValue("email")
	snap, err := sess.Apply(r.Context(), s.drafter, session.Submit{Email: email})
	if err != nil {
		s.log.Warn("tone suggestion failed", zap.String("session", sess.ID), zap.Error(err))
		// Keep what was pasted in the field.
		snap.EmailText = email
		s.render(w, statusFor(err), snap, "Could not analyze the email: "+err.Error())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDraftForm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	snap, err := sess.ApplyAll(r.Context(), s.drafter, draftCommands(
		r.FormValue("tone"), r.FormValue("notes"), r.FormValue("signature"),
	)...)
	if err != nil {
		s.log.Warn("draft failed", zap.String("session", sess.ID), zap.Error(err))
		s.render(w, statusFor(err), snap, "Could not draft a reply: "+err.Error())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type toneResponse struct {
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
}

func (s *Server) handleTones(w http.ResponseWriter, _ *http.Request) {
	entries := tone.Catalog()
	out := make([]toneResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toneResponse{Name: e.Name, Instruction: e.Instruction})
	}
	writeJSON(w, http.StatusOK, out)
}

type SuggestRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	sess := s.sessionFor(w, r)
	snap, err := sess.Apply(r.Context(), s.drafter, session.Submit{Email: req.Email})
	if err != nil {
		s.log.Warn("tone suggestion failed", zap.String("session", sess.ID), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DraftRequest carries the composer fields. Tone falls back to the
// session's current selection when empty.
type DraftRequest struct {
	Tone      string `json:"tone"`
	Notes     string `json:"notes"`
	Signature string `json:"signature"`
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	sess := s.sessionFor(w, r)
	snap, err := sess.ApplyAll(r.Context(), s.drafter, draftCommands(req.Tone, req.Notes, req.Signature)...)
	if err != nil {
		s.log.Warn("draft failed", zap.String("session", sess.ID), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionFor(w, r).Snapshot())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "online",
		"time":     time.Now().Format(time.RFC3339),
		"model":    s.model,
		"sessions": s.sessions.Len(),
	})
}

func draftCommands(toneName, notes, signature string) []session.Command {
	cmds := make([]session.Command, 0, 4)
	if toneName != "" {
		cmds = append(cmds, session.SelectTone{Name: toneName})
	}
	return append(cmds,
		session.EditNotes{Text: notes},
		session.EditSignature{Text: signature},
		session.Generate{},
	)
}

func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(CookieName); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

func (s *Server) render(w http.ResponseWriter, code int, snap session.Snapshot, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	data := pageData{Snapshot: snap, Tones: tone.Names(), Error: errMsg}
	if err := pageTmpl.Execute(w, data); err != nil {
		s.log.Error("render page", zap.Error(err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tone.ErrUnknownTone):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotSubmitted):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := routeLabel(mux, r)
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		mux.ServeHTTP(rec, r)

		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("code", rec.code),
			zap.Duration("took", time.Since(start)),
		)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, rec.code)
		}
	})
}
