package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"romvault/pkg/logging"
	"romvault/pkg/models"
)

// romExtensions are the file types picked up from a directory listing.
var romExtensions = map[string]bool{
	".zip": true, ".7z": true,
	".nes": true, ".sfc": true, ".smc": true,
	".gb": true, ".gbc": true, ".gba": true,
	".md": true, ".gen": true, ".sms": true, ".gg": true,
	".n64": true, ".z64": true, ".v64": true,
}

// IndexSource scrapes plain HTML directory listings, one directory per
// platform. Box art comes from the libretro thumbnail layout.
type IndexSource struct {
	BaseURL          string
	Platforms        map[string]string // system tag -> directory path
	ThumbnailBaseURL string
	ThumbnailSystems map[string]string // system tag -> thumbnail repo name
	Fetcher          *Fetcher
	Categorizer      *Categorizer
	Logger           zerolog.Logger
}

func NewIndexSource(baseURL string, platforms map[string]string, f *Fetcher, cat *Categorizer) *IndexSource {
	return &IndexSource{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Platforms:   platforms,
		Fetcher:     f,
		Categorizer: cat,
		Logger:      logging.Component("scraper").With().Str("source", "index").Logger(),
	}
}

// WithThumbnails enables box art URLs for the systems in systems.
func (s *IndexSource) WithThumbnails(baseURL string, systems map[string]string) *IndexSource {
	s.ThumbnailBaseURL = strings.TrimRight(baseURL, "/")
	s.ThumbnailSystems = systems
	return s
}

func (s *IndexSource) Name() string { return "index" }

func (s *IndexSource) FetchAll(ctx context.Context) ([]models.Game, error) {
	games, err := collectPlatforms(ctx, s.Logger, s.Platforms, s.fetchPlatform)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	return games, nil
}

func (s *IndexSource) fetchPlatform(ctx context.Context, system, dir string) ([]models.Game, error) {
	dirURL, err := url.Parse(s.BaseURL + escapeDir(dir))
	if err != nil {
		return nil, fmt.Errorf("parse directory url: %w", err)
	}

	body, err := s.Fetcher.Get(ctx, s.Name(), dirURL.String())
	if err != nil {
		return nil, err
	}

	hrefs, err := extractLinks(body)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	var out []models.Game
	for _, href := range hrefs {
		ref, err := url.Parse(href)
		if err != nil || ref.RawQuery != "" || strings.HasSuffix(ref.Path, "/") {
			continue
		}
		file := path.Base(ref.Path)
		ext := strings.ToLower(path.Ext(file))
		if !romExtensions[ext] {
			continue
		}
		stem := strings.TrimSuffix(file, path.Ext(file))
		name := cleanTitle(stem)
		if name == "" {
			continue
		}

		out = append(out, models.Game{
			Name:      name,
			URL:       dirURL.ResolveReference(ref).String(),
			Thumbnail: s.thumbnailURL(system, stem),
			System:    system,
			Category:  s.Categorizer.Infer(name),
			Source:    s.Name(),
		})
	}
	return out, nil
}

// thumbnailURL follows libretro's Named_Boxarts naming, where &*/:`<>?\| in
// the title become underscores.
func (s *IndexSource) thumbnailURL(system, stem string) string {
	repo, ok := s.ThumbnailSystems[system]
	if !ok || s.ThumbnailBaseURL == "" {
		return ""
	}
	safe := strings.Map(func(r rune) rune {
		if strings.ContainsRune("&*/:`<>?\\|", r) {
			return '_'
		}
		return r
	}, stem)
	return s.ThumbnailBaseURL + "/" + url.PathEscape(repo) + "/Named_Boxarts/" + url.PathEscape(safe) + ".png"
}

// extractLinks returns the href of every anchor in an HTML document, in
// document order.
func extractLinks(body []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var hrefs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					hrefs = append(hrefs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hrefs, nil
}

// cleanTitle drops region/revision tags such as "(USA)" or "[!]".
//
//	"Super Mario Bros. 3 (USA) (Rev 1)" -> "Super Mario Bros. 3"
func cleanTitle(stem string) string {
	if i := strings.IndexAny(stem, "(["); i >= 0 {
		stem = stem[:i]
	}
	return strings.TrimSpace(stem)
}

func escapeDir(dir string) string {
	if !strings.HasPrefix(dir, "/") {
		dir = "/" + dir
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	segs := strings.Split(dir, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
