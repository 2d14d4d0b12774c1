// Package mock provides an in-memory fake of the Idea service for local runs
// and tests.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/idea"
	"github.com/google/uuid"
)

// Server is a fake Idea service. It implements http.Handler so it can be
// mounted on httptest servers as well as served on a port.
type Server struct {
	router   *Router
	store    *Store
	port     int
	delay    time.Duration
	verbose  bool
	email    string
	password string
	token    string
	logins   atomic.Int64
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithVerbose enables request logging
func WithVerbose(verbose bool) Option {
	return func(s *Server) {
		s.verbose = verbose
	}
}

// WithCredentials restricts login to one email and password. Without it
// any non-empty pair is accepted.
func WithCredentials(email, password string) Option {
	return func(s *Server) {
		s.email = email
		s.password = password
	}
}

// WithToken fixes the access token issued on login
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// NewServer creates a fake service with an empty store
func NewServer(opts ...Option) *Server {
	s := &Server{
		router: NewRouter(),
		store:  NewStore(),
		port:   5000,
		token:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.AddRoute(&Route{Method: http.MethodPost, Path: idea.PathAuthentication, Name: "login", Handler: s.handleLogin, Public: true})
	s.router.AddRoute(&Route{Method: http.MethodPost, Path: idea.PathCreate, Name: "create", Handler: s.handleCreate})
	s.router.AddRoute(&Route{Method: http.MethodGet, Path: idea.PathAll, Name: "all", Handler: s.handleAll})
	s.router.AddRoute(&Route{Method: http.MethodPut, Path: idea.PathEdit, Name: "edit", Handler: s.handleEdit})
	s.router.AddRoute(&Route{Method: http.MethodDelete, Path: idea.PathDelete, Name: "delete", Handler: s.handleDelete})
	s.router.AddRoute(&Route{Method: http.MethodGet, Path: "/", Name: "health", Handler: s.handleHealth, Public: true})
}

// Token returns the access token issued by the login endpoint
func (s *Server) Token() string {
	return s.token
}

// Store exposes the backing store
func (s *Server) Store() *Store {
	return s.store
}

// Logins returns the number of successful logins served
func (s *Server) Logins() int {
	return int(s.logins.Load())
}

// GetRoutes returns all registered routes
func (s *Server) GetRoutes() []*Route {
	return s.router.routes
}

// StartWithContext serves until ctx is done, then shuts down gracefully
func (s *Server) StartWithContext(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("Mock Idea service starting on http://localhost:%d", s.port)
	log.Printf("Routes loaded: %d", len(s.router.routes))
	if s.verbose {
		for _, route := range s.router.routes {
			log.Printf("  %s %s (%s)", route.Method, route.Path, route.Name)
		}
	}

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	s.serve(rec, r)

	if s.verbose {
		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.RequestURI(), rec.status, time.Since(start))
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	route, pathKnown := s.router.Match(r.Method, r.URL.Path)
	if route == nil {
		if pathKnown {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		http.NotFound(w, r)
		return
	}

	if !route.Public && !s.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	route.Handler(w, r)
}

func (s *Server) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	return ok && token != "" && token == s.token
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds idea.Credentials
	if err := decodeBody(r, &creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": err.Error()})
		return
	}

	if creds.Email == "" || creds.Password == "" || !s.credentialsMatch(creds) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Invalid email or password!"})
		return
	}

	s.logins.Add(1)
	writeJSON(w, http.StatusOK, map[string]string{
		"email":       creds.Email,
		"accessToken": s.token,
	})
}

func (s *Server) credentialsMatch(creds idea.Credentials) bool {
	if s.email == "" && s.password == "" {
		return true
	}
	return creds.Email == s.email && creds.Password == s.password
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.readIdea(w, r)
	if !ok {
		return
	}

	created := s.store.Create(payload.Title, payload.Description, deref(payload.URL))
	writeJSON(w, http.StatusOK, map[string]any{
		"msg":  idea.MsgCreated,
		"idea": created,
	})
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.All())
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.readIdea(w, r)
	if !ok {
		return
	}

	id := r.URL.Query().Get(idea.QueryIdeaID)
	if !s.store.Update(id, payload.Title, payload.Description, deref(payload.URL)) {
		writeJSON(w, http.StatusBadRequest, idea.MsgNoSuchIdea)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": idea.MsgEdited})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(idea.QueryIdeaID)
	if !s.store.Delete(id) {
		writeJSON(w, http.StatusBadRequest, idea.MsgNoSuchIdea)
		return
	}
	writeJSON(w, http.StatusOK, idea.MsgDeleted)
}

// readIdea decodes and validates an idea payload, writing a 400 response
// when it is unusable.
func (s *Server) readIdea(w http.ResponseWriter, r *http.Request) (idea.IdeaDTO, bool) {
	var payload idea.IdeaDTO
	if err := decodeBody(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": err.Error()})
		return payload, false
	}

	if errs := validateIdea(payload); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"title":  "One or more validation errors occurred.",
			"status": http.StatusBadRequest,
			"errors": errs,
		})
		return payload, false
	}
	return payload, true
}

func validateIdea(payload idea.IdeaDTO) map[string][]string {
	errs := make(map[string][]string)
	if strings.TrimSpace(payload.Title) == "" {
		errs["Title"] = []string{"The Title field is required."}
	}
	if strings.TrimSpace(payload.Description) == "" {
		errs["Description"] = []string{"The Description field is required."}
	}
	return errs
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("mock: failed to encode response: %v", err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
