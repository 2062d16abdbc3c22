// Package publish turns house records into a static site: one detail page
// per house plus an index, backed by a house store.
package publish

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"makelaarsland-notifier/models"
	"makelaarsland-notifier/services"
	"makelaarsland-notifier/storage"
	"makelaarsland-notifier/utils"
)

const (
	filenameLayout = "20060102_150405"
	indexFile      = "index.html"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	// Fragments are produced by the enrichers with every text node escaped.
	"safe": func(s string) template.HTML { return template.HTML(s) },
	"euro": services.FormatEuro,
}).ParseFS(templateFS, "templates/*.html"))

// GitFunc runs one git command inside dir.
type GitFunc func(ctx context.Context, dir string, args ...string) error

// Options configures a Publisher.
type Options struct {
	SiteDir string
	Store   storage.HouseStore
	Ledger  storage.Ledger
	GitPush bool
	Git     GitFunc
	Now     func() time.Time
	Logger  *utils.Logger
}

// indexPage is the data behind index.html.
type indexPage struct {
	Houses  []*models.HouseRecord
	Summary services.Summary
}

// Publisher writes records to the site directory.
type Publisher struct {
	opts Options
}

var _ services.Publisher = (*Publisher)(nil)

// New creates a Publisher. Store is required.
func New(opts Options) (*Publisher, error) {
	if opts.Store == nil {
		return nil, errors.New("publish: no house store")
	}
	if opts.SiteDir == "" {
		return nil, errors.New("publish: no site directory")
	}
	if err := os.MkdirAll(opts.SiteDir, 0755); err != nil {
		return nil, fmt.Errorf("publish: create site dir: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Git == nil {
		opts.Git = runGit
	}
	return &Publisher{opts: opts}, nil
}

// Publish writes record's detail page, stores it and rebuilds the index,
// returning the detail page's filename. The caller's record is not modified.
//
// An error means nothing was stored, so the caller may retry. Once the
// record is stored, later failures are logged and the next publish repairs
// the index.
func (p *Publisher) Publish(ctx context.Context, record *models.HouseRecord) (string, error) {
	log := p.opts.Logger

	filename := p.filename()
	published := record.Clone()
	published.PublishFilename = filename

	if err := p.render("house.html", filename, published); err != nil {
		return "", err
	}

	if err := p.opts.Store.Prepend(ctx, published); err != nil {
		if rmErr := os.Remove(filepath.Join(p.opts.SiteDir, filename)); rmErr != nil {
			log.Warn("[publish] Could not remove orphaned %s: %v", filename, rmErr)
		}
		return "", fmt.Errorf("publish: store: %w", err)
	}

	if err := p.renderIndex(ctx); err != nil {
		log.Error("[publish] Index not updated for %s: %v", filename, err)
	}

	if p.opts.Ledger != nil {
		if err := p.opts.Ledger.Append(published); err != nil {
			log.Warn("[publish] Ledger append failed: %v", err)
		}
	}

	if p.opts.GitPush {
		if err := p.push(ctx, published.Listing.Title); err != nil {
			// The site is already consistent locally; the next push carries it.
			log.Error("[publish] Git push failed: %v", err)
		}
	}

	return filename, nil
}

func (p *Publisher) renderIndex(ctx context.Context) error {
	houses, err := p.opts.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("publish: list: %w", err)
	}
	summary := services.Summarize(houses)
	if err := p.render("index.html", indexFile, indexPage{Houses: houses, Summary: summary}); err != nil {
		return err
	}
	p.opts.Logger.Info("[publish] Index has %d houses, average %s",
		summary.Total, services.FormatEuro(summary.AveragePrice))
	return nil
}

// filename returns house_YYYYMMDD_HHMMSS.html, suffixed when a page with the
// same timestamp already exists.
func (p *Publisher) filename() string {
	stamp := p.opts.Now().Format(filenameLayout)
	name := "house_" + stamp + ".html"
	for i := 2; p.exists(name); i++ {
		name = fmt.Sprintf("house_%s_%d.html", stamp, i)
	}
	return name
}

func (p *Publisher) exists(name string) bool {
	_, err := os.Stat(filepath.Join(p.opts.SiteDir, name))
	return err == nil
}

func (p *Publisher) render(tmpl, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return fmt.Errorf("publish: render %s: %w", tmpl, err)
	}

	path := filepath.Join(p.opts.SiteDir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish: write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish: replace %s: %w", name, err)
	}
	return nil
}

func (p *Publisher) push(ctx context.Context, title string) error {
	steps := [][]string{
		{"add", "."},
		{"commit", "-m", "add house: " + title},
		{"push"},
	}
	for _, args := range steps {
		if err := p.opts.Git(ctx, p.opts.SiteDir, args...); err != nil {
			return err
		}
	}
	p.opts.Logger.Info("[publish] Pushed site for %q", title)
	return nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
