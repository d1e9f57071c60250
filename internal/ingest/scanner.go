package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"log/slog"

	"versecast/internal/config"
	"versecast/internal/ledger"
	"versecast/internal/logging"
	"versecast/internal/poem"
)

// Report summarizes one source directory scan.
type Report struct {
	Found      int
	Registered int
	Skipped    []string
}

// Scanner walks the configured source directory and registers every poem
// file in the ledger. Scanning is idempotent: known items keep their status
// and attempt count, only their header fields are refreshed.
type Scanner struct {
	sourceDir string
	store     *ledger.Store
	logger    *slog.Logger
}

// NewScanner constructs a source directory scanner.
func NewScanner(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Scanner {
	return &Scanner{
		sourceDir: cfg.Paths.SourceDir,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "ingest"),
	}
}

// Scan registers every markdown file under the source directory. Files whose
// header cannot even be read leniently are still registered; the strict
// parse at processing time records the precise failure against the item.
func (s *Scanner) Scan(ctx context.Context) (Report, error) {
	var report Report

	entries, err := os.ReadDir(s.sourceDir)
	if err != nil {
		return report, fmt.Errorf("read source directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Found++

		path := filepath.Join(s.sourceDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable poem file",
				logging.String("path", path),
				logging.Error(err))
			report.Skipped = append(report.Skipped, name)
			continue
		}

		item := &ledger.Item{
			ID:         ItemID(name),
			SourcePath: path,
			Body:       string(data),
		}
		title, author := poem.ExtractHeader(string(data))
		item.Title = title
		item.Author = author
		item.Language = poem.DetectLanguage(string(data))

		if _, err := s.store.Upsert(ctx, item); err != nil {
			return report, fmt.Errorf("register %s: %w", name, err)
		}
		report.Registered++
	}

	s.logger.Info("source scan complete",
		logging.Int("found", report.Found),
		logging.Int("registered", report.Registered),
		logging.Int("skipped", len(report.Skipped)))
	return report, nil
}

// ItemID derives a stable ledger identifier from a poem filename: the stem
// lowercased, accents stripped, and runs of non-alphanumerics collapsed to
// single underscores.
func ItemID(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	stem = poem.NormalizeForSpeech(stem)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(stem) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
