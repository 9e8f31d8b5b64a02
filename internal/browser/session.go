// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/internal/config"
)

// Session owns one Chrome instance with a single tab pointed at the portal.
// All page interactions go through it; callers never see chromedp directly.
type Session struct {
	id     string
	ctx    context.Context
	logger *zap.Logger
	cfg    config.BrowserConfig

	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	mu       sync.Mutex
	isClosed bool
}

// NewSession launches Chrome and connects a fresh tab. The parent context
// bounds the whole browser lifetime; canceling it tears Chrome down.
func NewSession(parent context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("start-maximized", true),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &Session{
		id:          uuid.New().String(),
		ctx:         tabCtx,
		cfg:         cfg,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}
	s.logger = logger.With(zap.String("session_id", s.id))

	// Force the target to actually start before any caller touches it.
	if err := chromedp.Run(tabCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	s.logger.Debug("Browser session started", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// Close terminates the browser. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return
	}
	s.isClosed = true

	if s.logger != nil {
		s.logger.Debug("Closing browser session.")
	}
	if s.cancelTab != nil {
		s.cancelTab()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
}

// runActions executes chromedp actions, respecting both the session lifetime
// and the incoming request context.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	return chromedp.Run(runCtx, actions...)
}

// actionTimeout returns the configured per-action timeout with a floor.
func (s *Session) actionTimeout() time.Duration {
	if s.cfg.ActionTimeout > 0 {
		return s.cfg.ActionTimeout
	}
	return 60 * time.Second
}
