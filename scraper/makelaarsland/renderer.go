package makelaarsland

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"makelaarsland-notifier/config"
	"makelaarsland-notifier/services"
	"makelaarsland-notifier/utils"
)

const (
	DefaultLoginURL = "https://mijn.makelaarsland.nl/inloggen"

	emailSelector    = `input[type='email']`
	passwordSelector = `input[type='password']`
	submitSelector   = `button[type='submit']`

	settleDelay        = 3 * time.Second
	defaultPageTimeout = 60 * time.Second
)

// Renderer drives a headless Chrome session that is logged in to the
// Makelaarsland portal. It logs in lazily on first use and again after a
// failed render.
type Renderer struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig

	mu          sync.Mutex
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	browserCtx  context.Context
	cancelTab   context.CancelFunc
	loggedIn    bool
}

var _ services.Renderer = (*Renderer)(nil)

// New creates a Renderer. The browser is not started until the first Render.
func New(cfg *config.Config, logger *utils.Logger) *Renderer {
	return &Renderer{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Render returns the post-login, post-JavaScript document at url.
func (r *Renderer) Render(ctx context.Context, url string) (*goquery.Document, error) {
	if r.cfg.MakelaarslandUsername == "" || r.cfg.MakelaarslandPassword == "" {
		return nil, errors.New("makelaarsland: credentials not configured")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var page string
	err := r.retry.Do(ctx, "render-detail-page", func(ctx context.Context) error {
		if err := r.ensureSession(ctx); err != nil {
			return err
		}

		html, err := r.fetch(ctx, url)
		if err != nil {
			r.loggedIn = false
			return err
		}
		page = html
		return nil
	})
	if err != nil {
		return nil, err
	}

	return services.ParseDocument(page)
}

// Close shuts the browser down.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdown()
}

func (r *Renderer) shutdown() {
	if r.cancelTab != nil {
		r.cancelTab()
	}
	if r.cancelAlloc != nil {
		r.cancelAlloc()
	}
	r.browserCtx, r.cancelTab = nil, nil
	r.allocCtx, r.cancelAlloc = nil, nil
	r.loggedIn = false
}

func (r *Renderer) ensureSession(ctx context.Context) error {
	if r.browserCtx == nil || r.browserCtx.Err() != nil {
		r.shutdown()
		if err := r.start(); err != nil {
			return err
		}
	}
	if r.loggedIn {
		return nil
	}
	if err := r.login(ctx); err != nil {
		return fmt.Errorf("makelaarsland: login: %w", err)
	}
	r.loggedIn = true
	return nil
}

func (r *Renderer) start() error {
	chromeBin := findChromeBinary(r.cfg.ChromeBin)
	r.logger.Info("[browser] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	r.allocCtx, r.cancelAlloc = chromedp.NewExecAllocator(context.Background(), opts...)
	// Suppress chromedp log noise
	r.browserCtx, r.cancelTab = chromedp.NewContext(r.allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Start the browser on the long-lived context so per-page timeouts
	// cannot take it down.
	if err := chromedp.Run(r.browserCtx); err != nil {
		r.shutdown()
		return fmt.Errorf("makelaarsland: start browser: %w", err)
	}
	return nil
}

// tab runs actions in the session's browser tab, bounded by the page timeout
// and by the caller's ctx.
func (r *Renderer) tab(ctx context.Context, actions ...chromedp.Action) error {
	timeout := r.cfg.PageTimeout
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}
	tabCtx, cancel := context.WithTimeout(r.browserCtx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(tabCtx, actions...)
}

func (r *Renderer) login(ctx context.Context) error {
	loginURL := r.cfg.MakelaarslandLoginURL
	if loginURL == "" {
		loginURL = DefaultLoginURL
	}
	r.logger.Info("[browser] Logging in at %s", loginURL)

	return r.tab(ctx,
		chromedp.Navigate(loginURL),
		chromedp.WaitVisible(emailSelector, chromedp.ByQuery),
		chromedp.WaitVisible(passwordSelector, chromedp.ByQuery),
		chromedp.SendKeys(emailSelector, r.cfg.MakelaarslandUsername, chromedp.ByQuery),
		chromedp.SendKeys(passwordSelector, r.cfg.MakelaarslandPassword, chromedp.ByQuery),
		chromedp.Click(submitSelector, chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
	)
}

func (r *Renderer) fetch(ctx context.Context, url string) (string, error) {
	r.logger.Debug("[browser] Rendering %s", url)

	var html string
	err := r.tab(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("makelaarsland: render %s: %w", url, err)
	}
	return html, nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
