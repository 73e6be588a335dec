package tagging

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbaille/tags/internal/domain"
)

// DeleteAllAssociationsForSubject removes every association of a subject, in
// all partitions.
func (t *Tagger) DeleteAllAssociationsForSubject(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return fmt.Errorf("%w: missing subject id", ErrValidation)
	}

	f := domain.AssociationFilter{
		SubjectType: t.opts.SubjectType,
		SubjectID:   subjectID,
	}

	var previous []string
	if t.opts.CacheOccurrence {
		current, err := t.store.FindAssociations(ctx, f)
		if err != nil {
			return err
		}

		previous = tagIDs(current)
	}

	if err := t.store.DeleteAssociations(ctx, f); err != nil {
		return err
	}

	t.log.Debug().Str("subject_id", subjectID).Msg("removed all associations")
	if t.opts.CacheOccurrence {
		return t.Recount(ctx, previous)
	}

	return nil
}

// Sync applies the tag field of a subject after the subject was saved. A
// non-empty field is saved with the configured mode when automatic tagging is
// enabled. An empty field removes the associations of the subject when
// DeleteTagsOnEmptyField is set.
func (t *Tagger) Sync(ctx context.Context, subjectID, partition, field string) error {
	if strings.TrimSpace(field) != "" {
		if !t.opts.AutomaticTagging {
			return nil
		}

		_, err := t.SaveTags(ctx, field, subjectID, partition, t.opts.Mode)
		return err
	}

	if t.opts.DeleteTagsOnEmptyField {
		return t.DeleteAllAssociationsForSubject(ctx, subjectID)
	}

	return nil
}

// TagString returns the tags of a subject in a partition as a tag string.
func (t *Tagger) TagString(ctx context.Context, subjectID, partition string) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("%w: missing subject id", ErrValidation)
	}

	existing, err := t.store.TagsForSubject(ctx, domain.InPartition(t.opts.SubjectType, subjectID, partition))
	if err != nil {
		return "", err
	}

	tags := make([]domain.Tag, 0, len(existing))
	for _, e := range existing {
		tags = append(tags, e.Tag())
	}

	return t.Stringify(tags), nil
}
