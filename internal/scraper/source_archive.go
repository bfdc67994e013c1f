package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"romvault/pkg/logging"
	"romvault/pkg/models"
)

// ArchiveSource queries the archive.org advanced search API, one collection
// per platform.
type ArchiveSource struct {
	BaseURL     string
	Platforms   map[string]string // system tag -> collection identifier
	Rows        int               // items per platform
	Fetcher     *Fetcher
	Categorizer *Categorizer
	Logger      zerolog.Logger
}

func NewArchiveSource(baseURL string, platforms map[string]string, rows int, f *Fetcher, cat *Categorizer) *ArchiveSource {
	if rows <= 0 {
		rows = 200
	}
	return &ArchiveSource{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Platforms:   platforms,
		Rows:        rows,
		Fetcher:     f,
		Categorizer: cat,
		Logger:      logging.Component("scraper").With().Str("source", "archive").Logger(),
	}
}

func (s *ArchiveSource) Name() string { return "archive" }

type archiveResponse struct {
	Response struct {
		NumFound int `json:"numFound"`
		Docs     []struct {
			Identifier string `json:"identifier"`
			Title      string `json:"title"`
		} `json:"docs"`
	} `json:"response"`
}

func (s *ArchiveSource) FetchAll(ctx context.Context) ([]models.Game, error) {
	games, err := collectPlatforms(ctx, s.Logger, s.Platforms, s.fetchPlatform)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return games, nil
}

func (s *ArchiveSource) fetchPlatform(ctx context.Context, system, collection string) ([]models.Game, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("collection:(%s) AND mediatype:(software)", collection))
	q.Add("fl[]", "identifier")
	q.Add("fl[]", "title")
	q.Set("rows", strconv.Itoa(s.Rows))
	q.Set("page", "1")
	q.Set("output", "json")
	u := s.BaseURL + "/advancedsearch.php?" + q.Encode()

	var resp archiveResponse
	if err := s.Fetcher.GetJSON(ctx, s.Name(), u, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Game, 0, len(resp.Response.Docs))
	for _, d := range resp.Response.Docs {
		id := strings.TrimSpace(d.Identifier)
		if id == "" {
			continue
		}
		name := strings.TrimSpace(d.Title)
		if name == "" {
			name = id
		}
		out = append(out, models.Game{
			Name:      name,
			URL:       s.BaseURL + "/download/" + url.PathEscape(id),
			Thumbnail: s.BaseURL + "/services/img/" + url.PathEscape(id),
			System:    system,
			Category:  s.Categorizer.Infer(name),
			Source:    s.Name(),
		})
	}
	return out, nil
}
