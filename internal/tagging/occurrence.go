package tagging

import (
	"context"

	"github.com/pbaille/tags/internal/domain"
)

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	u := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}

		seen[id] = true
		u = append(u, id)
	}

	return u
}

// Recount refreshes the cached occurrence counters of the tags. The total
// count spans every subject type, the scoped one only the Tagger's own.
// Counters are a cache: they are not guaranteed to be exact under
// concurrent writers.
func (t *Tagger) Recount(ctx context.Context, tagIDs []string) error {
	for _, id := range unique(tagIDs) {
		c := domain.OccurrenceCount{
			TagID:       id,
			SubjectType: t.opts.SubjectType,
		}

		var err error
		if t.opts.ScopedCounter {
			c.ScopedCount, err = t.store.CountAssociations(ctx, id, t.opts.SubjectType)
			if err != nil {
				return err
			}
		}

		c.TotalCount, err = t.store.CountAssociations(ctx, id, "")
		if err != nil {
			return err
		}

		if err := t.store.PersistOccurrence(ctx, c, t.opts.ScopedCounter); err != nil {
			return err
		}

		t.log.Debug().Str("tag_id", id).Int("total", c.TotalCount).Int("scoped", c.ScopedCount).Msg("cached occurrence")
	}

	return nil
}
