// Package ingest loads scraped posts and directory workbooks from local
// files into store shapes. JSON and CSV are accepted for posts; the
// directory importer additionally reads xlsx workbooks.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/talentsignal/signal-cli/internal/model"
)

// post is the scraper export shape for one social post.
type post struct {
	URN              string `json:"urn"`
	Text             string `json:"text"`
	Title            string `json:"title"`
	AuthorName       string `json:"author_name"`
	AuthorProfileID  string `json:"author_profile_id"`
	AuthorProfileURL string `json:"author_profile_url"`
	PostedAt         string `json:"posted_at"`
}

// ReadItems loads posts from a .json or .csv export. Rows without a URN or
// post text are dropped with a warning; they can never finish the pipeline.
func ReadItems(path string) ([]model.Item, error) {
	var posts []post
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		posts, err = readItemsJSON(path)
	case ".csv":
		posts, err = readItemsCSV(path)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q (want .json or .csv)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	var items []model.Item
	dropped := 0
	for _, p := range posts {
		if p.URN == "" || strings.TrimSpace(p.Text) == "" {
			dropped++
			continue
		}
		items = append(items, model.Item{
			URN:              p.URN,
			Text:             p.Text,
			Title:            p.Title,
			AuthorName:       p.AuthorName,
			AuthorProfileID:  p.AuthorProfileID,
			AuthorProfileURL: p.AuthorProfileURL,
			PostedAt:         parsePostedAt(p.PostedAt),
		})
	}

	if dropped > 0 {
		zap.L().Warn("ingest: dropped rows missing urn or text",
			zap.String("file", path),
			zap.Int("dropped", dropped),
		)
	}
	return items, nil
}

func readItemsJSON(path string) ([]post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read json")
	}
	var posts []post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, eris.Wrap(err, "ingest: parse json")
	}
	return posts, nil
}

func readItemsCSV(path string) ([]post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open csv")
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}
	cols := headerIndex(header)
	if _, ok := cols["urn"]; !ok {
		return nil, eris.New(`ingest: csv missing "urn" column`)
	}

	var posts []post
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read csv row")
		}
		posts = append(posts, post{
			URN:              field(record, cols, "urn"),
			Text:             field(record, cols, "text"),
			Title:            field(record, cols, "title"),
			AuthorName:       field(record, cols, "author_name"),
			AuthorProfileID:  field(record, cols, "author_profile_id"),
			AuthorProfileURL: field(record, cols, "author_profile_url"),
			PostedAt:         field(record, cols, "posted_at"),
		})
	}
	return posts, nil
}

// headerIndex maps normalized column names to their positions.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parsePostedAt accepts RFC 3339 or date-only timestamps. Anything else is
// treated as absent rather than failing the whole import.
func parsePostedAt(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
