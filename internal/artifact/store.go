// File: internal/artifact/store.go

// Package artifact persists scrape and login results as JSON documents. It is
// a terminal sink: records go in, nothing reads them back in-process.
package artifact

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/quixlabs/loginforge/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Metadata carries size bookkeeping for a scrape record.
type Metadata struct {
	DOMBytes           int `json:"dom_bytes"`
	DOMSimplifiedBytes int `json:"dom_simplified_bytes"`
	CSSBytes           int `json:"css_bytes"`
	ScreenshotCount    int `json:"screenshot_count"`
}

// ScrapeRecord is the persisted result of one page capture.
type ScrapeRecord struct {
	URL           string            `json:"url"`
	ScrapedAt     time.Time         `json:"scraped_at"`
	DOM           string            `json:"dom"`
	DOMSimplified string            `json:"dom_simplified"`
	CSS           string            `json:"css"`
	Screenshots   map[string]string `json:"screenshots"`
	Metadata      Metadata          `json:"metadata"`
}

// LoginRecord is the persisted result of one login attempt.
type LoginRecord struct {
	SessionID         string    `json:"session_id"`
	URL               string    `json:"url"`
	Outcome           string    `json:"outcome"`
	FinalStep         string    `json:"final_step"`
	Iterations        int       `json:"iterations"`
	TokensUsed        int       `json:"tokens_used"`
	LastAction        string    `json:"last_action,omitempty"`
	LastError         string    `json:"last_error,omitempty"`
	SuccessURL        string    `json:"success_url,omitempty"`
	SuccessScreenshot string    `json:"success_screenshot,omitempty"`
	FinishedAt        time.Time `json:"finished_at"`
}

// Store writes artifact documents under a single output directory.
type Store struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates the output directory if needed.
func NewStore(cfg config.OutputConfig, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %q: %w", cfg.Dir, err)
	}
	return &Store{
		dir:    cfg.Dir,
		logger: logger.Named("artifact_store"),
		now:    time.Now,
	}, nil
}

// SaveScrape fills in size metadata and writes the record, returning the path.
func (s *Store) SaveScrape(rec ScrapeRecord) (string, error) {
	rec.Metadata = Metadata{
		DOMBytes:           len(rec.DOM),
		DOMSimplifiedBytes: len(rec.DOMSimplified),
		CSSBytes:           len(rec.CSS),
		ScreenshotCount:    len(rec.Screenshots),
	}
	if rec.ScrapedAt.IsZero() {
		rec.ScrapedAt = s.now()
	}
	return s.write(rec.URL, "scrape", rec)
}

// SaveLogin writes a login result record, returning the path.
func (s *Store) SaveLogin(rec LoginRecord) (string, error) {
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = s.now()
	}
	return s.write(rec.URL, "login", rec)
}

func (s *Store) write(rawURL, kind string, doc any) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s record: %w", kind, err)
	}

	name := fmt.Sprintf("%s_%s_%s.json", domainSlug(rawURL), kind, s.now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s record: %w", kind, err)
	}

	s.logger.Info("Artifact saved.",
		zap.String("kind", kind),
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return path, nil
}

// domainSlug turns a URL into a filesystem-safe filename prefix.
func domainSlug(rawURL string) string {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.TrimPrefix(host, "www.")
	repl := strings.NewReplacer(".", "_", ":", "_", "/", "_", "?", "_", "&", "_", "=", "_")
	slug := repl.Replace(host)
	if slug == "" {
		slug = "page"
	}
	return slug
}
