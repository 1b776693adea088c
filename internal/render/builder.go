// Package render builds the static site: a front page listing every followed
// person with their summary, plus one page per person with their recent
// original posts.
package render

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mastohuman/internal/config"
	"mastohuman/internal/logging"
	"mastohuman/internal/store"
)

//go:embed templates/index.html templates/person.html
var builtinTemplates embed.FS

//go:embed templates/style.css
var builtinCSS []byte

// SummaryView is the rendered form of an account summary.
type SummaryView struct {
	Headline string
	Blurb    string
	Tags     []string
}

// placeholderSummary fills in for accounts with no generated summary, and
// for all accounts when rendering with --no-llm.
func placeholderSummary() SummaryView {
	return SummaryView{
		Headline: "No summary available",
		Blurb:    "Content processing pending or skipped.",
	}
}

// Person is one entry on the front page.
type Person struct {
	Account store.Account
	Summary SummaryView
	Slug    string
}

// StatusView is one post on a person page. Content is the sanitized HTML
// the server delivered; Mastodon instances sanitize status content before
// serving it.
type StatusView struct {
	CreatedAt time.Time
	URL       string
	Content   template.HTML
}

// Builder renders the site from store contents.
type Builder struct {
	store     *store.Store
	cfg       *config.Config
	outputDir string
	tmpl      *template.Template
}

var templateFuncs = template.FuncMap{
	"dateformat": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
}

// NewBuilder creates a site builder. Templates come from the configured
// templates_dir when set, otherwise from the embedded defaults.
func NewBuilder(st *store.Store, cfg *config.Config) (*Builder, error) {
	var tmpl *template.Template
	var err error

	if dir := cfg.Site.TemplatesDir; dir != "" {
		tmpl, err = template.New("site").Funcs(templateFuncs).
			ParseGlob(filepath.Join(dir, "*.html"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse templates from %s: %w", dir, err)
		}
	} else {
		tmpl, err = template.New("site").Funcs(templateFuncs).
			ParseFS(builtinTemplates, "templates/*.html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded templates: %w", err)
		}
	}

	return &Builder{
		store:     st,
		cfg:       cfg,
		outputDir: cfg.Site.OutputDir,
		tmpl:      tmpl,
	}, nil
}

// Build renders the whole site into the output directory, overwriting files
// in place. noLLM replaces every summary with the placeholder.
func (b *Builder) Build(noLLM bool) error {
	timer := logging.StartTimer(logging.CategoryRender, "Build")
	defer timer.StopWithInfo()

	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	accounts, err := b.store.AllAccountsBySeen()
	if err != nil {
		return err
	}

	people := make([]Person, 0, len(accounts))
	for _, account := range accounts {
		people = append(people, Person{
			Account: account,
			Summary: b.summaryFor(account.Acct, noLLM),
			Slug:    Slugify(account.Acct),
		})
	}

	if err := b.renderTemplate("index.html", "index.html", map[string]interface{}{
		"People": people,
	}); err != nil {
		return err
	}

	for _, person := range people {
		if err := b.renderPersonPage(person); err != nil {
			return err
		}
	}

	if err := b.copyAssets(); err != nil {
		return err
	}

	abs, _ := filepath.Abs(b.outputDir)
	logging.Render("Site built at: %s (%d people)", abs, len(people))
	return nil
}

// summaryFor loads the account's summary, falling back to the placeholder.
func (b *Builder) summaryFor(acct string, noLLM bool) SummaryView {
	if noLLM {
		return placeholderSummary()
	}

	sum, err := b.store.GetSummary(acct)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.Get(logging.CategoryRender).Warn("Summary lookup failed for %s: %v", acct, err)
		}
		return placeholderSummary()
	}

	var tags []string
	if sum.TagsJSON != "" {
		if err := json.Unmarshal([]byte(sum.TagsJSON), &tags); err != nil {
			tags = nil
		}
	}
	return SummaryView{Headline: sum.Headline, Blurb: sum.Blurb, Tags: tags}
}

// renderPersonPage renders people/<slug>/index.html.
func (b *Builder) renderPersonPage(person Person) error {
	statuses, err := b.store.OriginalStatuses(person.Account.Acct, b.cfg.Fetch.MaxProfileStatuses)
	if err != nil {
		return err
	}

	views := make([]StatusView, 0, len(statuses))
	for _, st := range statuses {
		views = append(views, StatusView{
			CreatedAt: st.CreatedAt,
			URL:       st.URL,
			Content:   template.HTML(st.ContentHTML),
		})
	}

	out := filepath.Join("people", person.Slug, "index.html")
	return b.renderTemplate("person.html", out, map[string]interface{}{
		"Person":   person,
		"Statuses": views,
	})
}

// renderTemplate executes one template into the output directory.
func (b *Builder) renderTemplate(name, outputRelPath string, data map[string]interface{}) error {
	data["SiteTitle"] = b.cfg.Site.Title
	data["GeneratedAt"] = time.Now().UTC()

	dest := filepath.Join(b.outputDir, outputRelPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer f.Close()

	if err := b.tmpl.ExecuteTemplate(f, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}

// copyAssets writes the stylesheet. A disk templates dir may carry its own
// style.css which takes precedence over the embedded one.
func (b *Builder) copyAssets() error {
	assetsDir := filepath.Join(b.outputDir, "assets")
	if err := os.MkdirAll(assetsDir, 0755); err != nil {
		return fmt.Errorf("failed to create assets dir: %w", err)
	}

	css := builtinCSS
	if dir := b.cfg.Site.TemplatesDir; dir != "" {
		if data, err := os.ReadFile(filepath.Join(dir, "style.css")); err == nil {
			css = data
		}
	}

	return os.WriteFile(filepath.Join(assetsDir, "style.css"), css, 0644)
}

// ArchiveRun copies the output directory to archive_dir/<timestamp>.
// Returns the archive path, or "" when no archive dir is configured.
func (b *Builder) ArchiveRun() (string, error) {
	if b.cfg.Site.ArchiveDir == "" {
		return "", nil
	}

	ts := time.Now().Format("20060102_150405")
	dest := filepath.Join(b.cfg.Site.ArchiveDir, ts)
	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive dir: %w", err)
	}
	if err := os.CopyFS(dest, os.DirFS(b.outputDir)); err != nil {
		return "", fmt.Errorf("failed to archive site: %w", err)
	}

	logging.Render("Archived run to %s", dest)
	return dest, nil
}

// Slugify converts an acct handle into a path-safe directory name.
func Slugify(acct string) string {
	return strings.NewReplacer("@", "_", ".", "_").Replace(acct)
}
