// Package browser drives a real Chrome through go-rod to fill and submit the
// BELSSB meter-reading form. The form is rendered by the third-party Formy
// widget, which may mount inside a shadow DOM or an embedded iframe; all field
// location happens through injected JS that tolerates both.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// DefaultURL is the BELSSB reading submission page.
const DefaultURL = "https://www.belssb.ru/individuals/pokaz/"

// DefaultSuccessText is the literal confirmation the site renders after a
// successful submission.
const DefaultSuccessText = "Сообщение успешно отправлено"

// widgetHostMarker identifies Formy-hosted iframes by URL substring.
const widgetHostMarker = "formy"

// Config holds browser and timing settings. The zero value is unusable; start
// from DefaultConfig. Tests shrink the waits and point URL at a local server.
type Config struct {
	URL         string
	SuccessText string
	Headless    bool

	NavTimeout        time.Duration // page navigation + load
	SettleDelay       time.Duration // widget boots asynchronously after load
	FramePollTries    int           // iterations waiting for the Formy iframe
	FramePollInterval time.Duration
	SubmitTimeout     time.Duration // clicking a fallback submit button
	SuccessTimeout    time.Duration // waiting for the confirmation text
}

// DefaultConfig returns production settings for belssb.ru.
func DefaultConfig() Config {
	return Config{
		URL:               DefaultURL,
		SuccessText:       DefaultSuccessText,
		Headless:          true,
		NavTimeout:        20 * time.Second,
		SettleDelay:       8 * time.Second,
		FramePollTries:    12,
		FramePollInterval: time.Second,
		SubmitTimeout:     5 * time.Second,
		SuccessTimeout:    15 * time.Second,
	}
}

// Session owns one launched Chrome and one page, scoped to a single run.
type Session struct {
	cfg     Config
	log     *zap.Logger
	browser *rod.Browser
	page    *rod.Page
}

// NewSession launches Chrome and connects to it. Close must always be called.
func NewSession(ctx context.Context, cfg Config, log *zap.Logger) (*Session, error) {
	controlURL, err := launcher.New().Headless(cfg.Headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &Session{cfg: cfg, log: log, browser: b, page: page}, nil
}

// Close shuts the browser down. Safe to call after a failed run.
func (s *Session) Close() error {
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	return err
}

// Open navigates to the form page and waits for the widget to settle.
func (s *Session) Open(ctx context.Context) error {
	page := s.page.Context(ctx).Timeout(s.cfg.NavTimeout)
	if err := page.Navigate(s.cfg.URL); err != nil {
		return fmt.Errorf("navigate to %s: %w", s.cfg.URL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for page load: %w", err)
	}
	s.log.Debug("page loaded, letting widget settle",
		zap.String("url", s.cfg.URL),
		zap.Duration("settle", s.cfg.SettleDelay))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.SettleDelay):
	}
	return nil
}

// widgetFrames polls for iframes whose URL contains the Formy host marker,
// giving the widget time to inject its frame. Returns whatever was found when
// the attempts run out, possibly none: the form sometimes renders in the main
// document instead.
func (s *Session) widgetFrames(ctx context.Context) ([]*rod.Page, error) {
	for i := 0; i < s.cfg.FramePollTries; i++ {
		frames, err := s.collectWidgetFrames(ctx)
		if err != nil {
			return nil, err
		}
		if len(frames) > 0 {
			s.log.Debug("widget iframe located",
				zap.Int("count", len(frames)),
				zap.Int("attempt", i+1))
			return frames, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.FramePollInterval):
		}
	}
	return nil, nil
}

func (s *Session) collectWidgetFrames(ctx context.Context) ([]*rod.Page, error) {
	elements, err := s.page.Context(ctx).Elements("iframe")
	if err != nil {
		return nil, fmt.Errorf("list iframes: %w", err)
	}

	var frames []*rod.Page
	for _, el := range elements {
		src, err := el.Attribute("src")
		if err != nil || src == nil {
			continue
		}
		if !containsWidgetHost(*src) {
			continue
		}
		frame, err := el.Frame()
		if err != nil {
			s.log.Debug("iframe attach failed", zap.String("src", *src), zap.Error(err))
			continue
		}
		frames = append(frames, frame)
	}
	return frames, nil
}
