// Package reconcile decides which freshly scraped games are new, which stored
// games deserve fresher field values, and which stay as they are.
//
// The merge only flows one way: scraped values may replace stored ones, never
// the reverse, and an empty scraped field never erases a stored value. Stored
// games that no source returned this run are left alone.
package reconcile

import (
	"strings"

	"romvault/internal/scraper"
	"romvault/pkg/models"
)

// Field names reported by Diff.
const (
	FieldURL       = "url"
	FieldThumbnail = "thumbnail"
	FieldCategory  = "category"
	FieldSource    = "source"
)

// DefaultFallbackCategory marks a stored game whose category was never really known.
const DefaultFallbackCategory = "Other"

// Rules configures update-worthiness.
type Rules struct {
	// PlaceholderPrefixes mark stored URLs that were never populated with real
	// data. A stored value starting with one of them is always replaced.
	PlaceholderPrefixes []string
	// FallbackCategory is the stored category that any other category replaces.
	FallbackCategory string
}

func (r Rules) fallback() string {
	if r.FallbackCategory == "" {
		return DefaultFallbackCategory
	}
	return r.FallbackCategory
}

func (r Rules) isPlaceholder(v string) bool {
	for _, p := range r.PlaceholderPrefixes {
		if p != "" && strings.HasPrefix(v, p) {
			return true
		}
	}
	return false
}

// refresh reports whether a stored url-like field takes the incoming value.
func (r Rules) refresh(stored, incoming string) bool {
	if incoming == "" || incoming == stored {
		return false
	}
	return r.isPlaceholder(stored) || stored != incoming
}

// Plan is the outcome of a reconciliation.
type Plan struct {
	Inserts   []models.Game    // games with no stored counterpart, verbatim
	Updates   []models.GameDoc // stored games with refreshed fields
	Unchanged int              // matched games that needed nothing
}

// Empty reports whether the plan has nothing to write.
func (p Plan) Empty() bool { return len(p.Inserts) == 0 && len(p.Updates) == 0 }

// Diff returns the stored game with every update-worthy field replaced by the
// incoming value, plus the names of the replaced fields. existing itself is
// not modified. A nil slice means no update is warranted.
//
//   - url, thumbnail: incoming is non-empty and differs from stored; a stored
//     placeholder always differs from a real value
//   - category: stored is the fallback category and incoming is a non-empty
//     non-fallback value
//   - source: incoming is non-empty and differs
//
// Equal values never count as a change, so unchanged input converges to no
// updates even when the stored value is a placeholder.
func (r Rules) Diff(existing models.GameDoc, incoming models.Game) (models.GameDoc, []string) {
	next := existing
	var changed []string

	if r.refresh(existing.URL, incoming.URL) {
		next.URL = incoming.URL
		changed = append(changed, FieldURL)
	}
	if r.refresh(existing.Thumbnail, incoming.Thumbnail) {
		next.Thumbnail = incoming.Thumbnail
		changed = append(changed, FieldThumbnail)
	}
	if incoming.Category != "" && existing.Category == r.fallback() && incoming.Category != r.fallback() {
		next.Category = incoming.Category
		changed = append(changed, FieldCategory)
	}
	if incoming.Source != "" && incoming.Source != existing.Source {
		next.Source = incoming.Source
		changed = append(changed, FieldSource)
	}

	return next, changed
}

// Reconcile matches incoming games against stored ones by IdentityKey.
// When several stored documents share a key, the first one in stored order
// is the one that gets updated.
func (r Rules) Reconcile(stored []models.GameDoc, incoming []models.Game) Plan {
	byKey := make(map[string]models.GameDoc, len(stored))
	for _, d := range stored {
		key := scraper.IdentityKey(d.Name, d.System)
		if _, ok := byKey[key]; !ok {
			byKey[key] = d
		}
	}

	var plan Plan
	updateAt := make(map[string]int)
	for _, g := range incoming {
		key := scraper.IdentityKey(g.Name, g.System)
		existing, ok := byKey[key]
		if !ok {
			plan.Inserts = append(plan.Inserts, g)
			// a repeated key in incoming must not be inserted twice
			byKey[key] = models.GameDoc{Game: g}
			continue
		}
		if existing.ID == "" {
			// pending insert from earlier in this pass
			continue
		}

		next, changed := r.Diff(existing, g)
		if len(changed) == 0 {
			if _, ok := updateAt[key]; !ok {
				plan.Unchanged++
			}
			continue
		}
		byKey[key] = next
		if i, ok := updateAt[key]; ok {
			plan.Updates[i] = next
			continue
		}
		updateAt[key] = len(plan.Updates)
		plan.Updates = append(plan.Updates, next)
	}
	return plan
}
