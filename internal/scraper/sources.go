package scraper

import "romvault/pkg/utils"

// FromConfig builds the configured sources in their fixed registration order:
// archive, index, mirror. Sources without a base URL are left out. Every
// source gets its own Fetcher so one provider's delay never slows another.
func FromConfig(cfg utils.SourcesConfig, cat *Categorizer) []Source {
	var sources []Source

	if cfg.ArchiveBaseURL != "" && len(cfg.ArchivePlatforms) > 0 {
		f := NewFetcher(cfg.RequestTimeout, cfg.RequestDelay)
		sources = append(sources, NewArchiveSource(cfg.ArchiveBaseURL, cfg.ArchivePlatforms, cfg.ArchiveRows, f, cat))
	}

	if cfg.IndexBaseURL != "" && len(cfg.IndexPlatforms) > 0 {
		f := NewFetcher(cfg.RequestTimeout, cfg.RequestDelay)
		src := NewIndexSource(cfg.IndexBaseURL, cfg.IndexPlatforms, f, cat).
			WithThumbnails(cfg.ThumbnailBaseURL, cfg.ThumbnailSystems)
		sources = append(sources, src)
	}

	if cfg.MirrorBaseURL != "" {
		f := NewFetcher(cfg.RequestTimeout, cfg.RequestDelay)
		sources = append(sources, NewMirrorSource(cfg.MirrorBaseURL, f, cat))
	}

	return sources
}
