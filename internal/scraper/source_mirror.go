package scraper

import (
	"context"
	"strings"

	"romvault/pkg/models"
)

// MirrorSource reads a self-hosted JSON mirror with a different shape from
// the other sources.
//
// Expected response format:
//
//	GET {BaseURL}/games
//	[
//	  {
//	    "title": "Super Mario Bros.",
//	    "platform": "NES",
//	    "link": "https://mirror.example/nes/smb.zip",
//	    "image": "https://mirror.example/nes/smb.png"
//	  },
//	  ...
//	]
type MirrorSource struct {
	BaseURL     string
	Fetcher     *Fetcher
	Categorizer *Categorizer
}

// NewMirrorSource creates a new MirrorSource.
func NewMirrorSource(baseURL string, f *Fetcher, cat *Categorizer) *MirrorSource {
	return &MirrorSource{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Fetcher:     f,
		Categorizer: cat,
	}
}

func (s *MirrorSource) Name() string {
	return "mirror"
}

// MirrorEntry is one element of the mirror's /games array.
type MirrorEntry struct {
	Title    string `json:"title"`
	Platform string `json:"platform"`
	Link     string `json:"link"`
	Image    string `json:"image"`
}

// FetchAll has no sub-fetches, so any error fails the whole call.
func (s *MirrorSource) FetchAll(ctx context.Context) ([]models.Game, error) {
	var raw []MirrorEntry
	if err := s.Fetcher.GetJSON(ctx, s.Name(), s.BaseURL+"/games", &raw); err != nil {
		return nil, err
	}

	result := make([]models.Game, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Title)
		system := strings.ToLower(strings.TrimSpace(r.Platform))
		if name == "" || system == "" {
			continue
		}
		result = append(result, models.Game{
			Name:      name,
			URL:       strings.TrimSpace(r.Link),
			Thumbnail: strings.TrimSpace(r.Image),
			System:    system,
			Category:  s.Categorizer.Infer(name),
			Source:    s.Name(),
		})
	}
	return result, nil
}
