package catalogio

import (
	"encoding/json"
	"io"
	"strings"

	"romvault/internal/scraper"
	"romvault/pkg/models"
)

// MirrorEntries converts stored games to the mirror source's wire shape, so
// one instance's catalog can seed another through mirror-server.
func MirrorEntries(docs []models.GameDoc) []scraper.MirrorEntry {
	out := make([]scraper.MirrorEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, scraper.MirrorEntry{
			Title:    d.Name,
			Platform: strings.ToUpper(d.System),
			Link:     d.URL,
			Image:    d.Thumbnail,
		})
	}
	return out
}

func WriteMirror(w io.Writer, docs []models.GameDoc) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(MirrorEntries(docs))
}
