package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"budget/internal/auth"
	"budget/internal/log"
	"budget/internal/session"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the record store can be reached.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{
		"sessions":           s.sessions.Len(),
		"rate_limit_clients": s.limiter.ActiveClients(),
	}

	if err := s.ledger.Ready(ctx); err != nil {
		checks["record_store"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["record_store"] = "ok"
	}

	suspicious, blocked := s.detector.Counts()
	checks["security"] = map[string]any{"suspicious": suspicious, "blocked": blocked}
	checks["requests"] = s.tracer.TotalRequests()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.sessions.Get(r); ok && sess.Authenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, NewHTMXResponse(), "login", loginView{page: page{Title: "Sign in"}})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAuth)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	username := formValue(r.PostForm, "username")
	password := r.PostForm.Get("password")

	if err := s.users.Verify(username, password); err != nil {
		logger.WarnContext(r.Context(), "Login failed",
			log.FieldOperation, log.OpLogin,
			log.FieldClientIP, s.detector.ExtractClientIP(r))
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnauthorized), "login", loginView{
			page:  page{Title: "Sign in"},
			Error: auth.ErrInvalidCredentials.Error(),
			Login: username,
		})
		return
	}

	s.sessions.Login(w, r, username)
	logger.InfoContext(r.Context(), "Login succeeded",
		log.FieldOperation, log.OpLogin,
		log.FieldUsername, username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout ends the session. Staged records are discarded with it.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.sessions.Get(r); ok {
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "Logout",
			log.FieldOperation, log.OpLogout,
			log.FieldUsername, sess.Username())
	}
	s.sessions.Destroy(w, r)
	redirect(w, r, "/login")
}

type sessionKey struct{}

// requireAuth lets authenticated sessions through and sends everyone else
// to the login page.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Get(r)
		if !ok || !sess.Authenticated() {
			if isHTMX(r) {
				NewHTMXResponse().Status(http.StatusUnauthorized).Redirect("/login").Write(w)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		s.sessions.Touch(w, sess)
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUsername, sess.Username()))
		next(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the session requireAuth stored in ctx.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}

func (s *Server) page(r *http.Request, title, active string) page {
	p := page{Title: title, Active: active}
	if sess := sessionFrom(r.Context()); sess != nil {
		p.Username = sess.Username()
	}
	return p
}

// render writes a full page or partial, logging template failures.
func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	b.Render(s.templates, name, data)
	if err := b.RenderErr(); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
	}
	b.Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
