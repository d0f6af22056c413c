// internal/session/registry.go
package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/forgeqa/testforge/api/schemas"
	"github.com/forgeqa/testforge/internal/browser"
	"github.com/forgeqa/testforge/internal/config"
)

const cleanupGracePeriod = 10 * time.Second

// Registry is the lifecycle authority for all live sessions. It owns the
// identifier-to-session map and the idle reaper. Registries are
// constructed explicitly and injected; there is no ambient singleton.
type Registry struct {
	driver browser.Driver
	cfg    config.SessionConfig
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry on top of a browser driver.
func NewRegistry(driver browser.Driver, cfg config.SessionConfig, logger *zap.Logger) *Registry {
	return &Registry{
		driver:   driver,
		cfg:      cfg,
		logger:   logger.Named("session_registry"),
		sessions: make(map[string]*Session),
	}
}

// Create opens a new browser page, navigates it to targetURL waiting for
// the network to go idle, and registers it under a fresh identifier. Any
// failure after the page is allocated releases it before the error
// propagates; a failed Create never leaks a browser page.
func (r *Registry) Create(ctx context.Context, targetURL string) (*schemas.CreateSessionResponse, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, schemas.NewClientError("url must be an absolute http(s) URL, got %q", targetURL)
	}

	page, err := r.driver.NewPage(ctx)
	if err != nil {
		return nil, &schemas.BrowserLaunchError{Err: err}
	}

	events := NewEventLog(r.cfg.EventLogSize)
	page.Observe(events)

	info, err := page.Navigate(ctx, targetURL, r.cfg.NavigationTimeout)
	if err != nil {
		r.releasePage(page)
		return nil, &schemas.NavigationError{URL: targetURL, Err: err}
	}
	if info.Status >= 400 {
		r.releasePage(page)
		return nil, &schemas.NavigationError{URL: targetURL, Status: info.Status}
	}

	resp := &schemas.CreateSessionResponse{
		SessionID: uuid.New().String(),
		Title:     info.Title,
		ActualURL: info.URL,
	}

	if r.cfg.CaptureScreenshot {
		if shot, err := page.Screenshot(ctx); err != nil {
			r.logger.Warn("Failed to capture creation screenshot.", zap.Error(err))
		} else {
			resp.Screenshot = base64.StdEncoding.EncodeToString(shot)
		}
	}

	s := newSession(resp.SessionID, page, events, r.logger)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	r.logger.Info("New session created.",
		zap.String("session_id", s.ID()),
		zap.String("url", info.URL),
		zap.String("title", info.Title))
	return resp, nil
}

// Lookup resolves a session identifier to its live handle. Every lookup
// refreshes the session's last-activity timestamp.
func (r *Registry) Lookup(sessionID string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", schemas.ErrSessionNotFound, sessionID)
	}
	s.Touch()
	return s, nil
}

// Close releases all browser resources behind a session and removes it
// from the registry. Closing an unknown or already-closed identifier
// returns ErrSessionNotFound; identifiers are never reused.
func (r *Registry) Close(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", schemas.ErrSessionNotFound, sessionID)
	}

	if err := s.shutdown(ctx); err != nil {
		r.logger.Warn("Error while closing session.", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	return nil
}

// ReapIdle closes every session whose last activity is older than the idle
// threshold, through the same close path as explicit closes. Returns the
// number of sessions reaped.
func (r *Registry) ReapIdle(ctx context.Context) int {
	cutoff := time.Now().Add(-r.cfg.IdleThreshold)

	r.mu.RLock()
	stale := make([]string, 0)
	for id, s := range r.sessions {
		if s.LastActivity().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	reaped := 0
	for _, id := range stale {
		// A concurrent explicit Close may win the race; that is fine.
		if err := r.Close(ctx, id); err == nil {
			r.logger.Info("Reaped idle session.", zap.String("session_id", id))
			reaped++
		}
	}
	return reaped
}

// Run drives the idle reaper until ctx is canceled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReapIdle(ctx)
		}
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown closes all live sessions concurrently, then shuts the browser
// driver down.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	remaining := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		remaining = append(remaining, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	g, gCtx := errgroup.WithContext(ctx)
	for _, s := range remaining {
		s := s
		g.Go(func() error {
			return s.shutdown(gCtx)
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Warn("Error during session close in shutdown.", zap.Error(err))
	}

	return r.driver.Shutdown(ctx)
}

// releasePage tears down a partially created page. Uses a background
// context since the caller's context may be the reason creation failed.
func (r *Registry) releasePage(page browser.Page) {
	cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupGracePeriod)
	defer cancel()

	if err := page.Close(cleanupCtx); err != nil {
		r.logger.Warn("Failed to release page after creation failure.", zap.Error(err))
	}
}
