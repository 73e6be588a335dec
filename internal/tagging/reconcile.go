package tagging

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbaille/tags/internal/domain"
)

// resolve returns the ids of the parsed tags, creating the ones whose
// (key, identifier) pair is not persisted yet. The ids follow the order of the
// tags.
func (t *Tagger) resolve(ctx context.Context, tags []domain.Tag) ([]string, error) {
	existing, err := t.store.LookupTags(ctx, tags)
	if err != nil {
		return nil, err
	}

	known := make(map[pair]string, len(existing))
	for _, e := range existing {
		known[pair{e.Key, e.Identifier}] = e.ID
	}

	ids := make([]string, 0, len(tags))
	for _, tag := range tags {
		if id, ok := known[pair{tag.Key, tag.Identifier}]; ok {
			ids = append(ids, id)
			continue
		}

		id, err := t.store.CreateTag(ctx, tag)
		if err != nil {
			return nil, err
		}

		if id == "" {
			return nil, fmt.Errorf("%w: created tag %q has no id", ErrNotFound, tag.Name)
		}

		t.log.Debug().Str("tag_id", id).Str("key", tag.Key).Str("identifier", tag.Identifier).Msg("created tag")
		known[pair{tag.Key, tag.Identifier}] = id
		ids = append(ids, id)
	}

	return ids, nil
}

// EnsureTags persists the tags of the input that don't exist yet, without
// associating them with any subject. It returns the ids of all the tags in the
// input.
func (t *Tagger) EnsureTags(ctx context.Context, input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: empty tag string", ErrValidation)
	}

	tags := t.Parse(input)
	if len(tags) == 0 {
		return nil, nil
	}

	return t.resolve(ctx, tags)
}

func tagIDs(a []domain.Association) []string {
	ids := make([]string, 0, len(a))
	for _, ai := range a {
		ids = append(ids, ai.TagID)
	}

	return ids
}

// SaveTags associates the tags of the input with a subject in a partition.
// Tags that are not persisted yet are created. In ModeReplace, associations
// of the subject in the partition whose tag is not in the input are removed,
// while the ones already pointing to a tag of the input are kept untouched.
// In ModeAppend, nothing is removed.
//
// It returns the ids of all the tags associated with the subject in the
// partition after the change.
func (t *Tagger) SaveTags(ctx context.Context, input, subjectID, partition string, mode Mode) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: empty tag string", ErrValidation)
	}

	if subjectID == "" {
		return nil, fmt.Errorf("%w: missing subject id", ErrValidation)
	}

	if mode == "" {
		mode = t.opts.Mode
	}

	if mode != ModeReplace && mode != ModeAppend {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrValidation, mode)
	}

	tags := t.Parse(input)
	if len(tags) == 0 {
		return nil, nil
	}

	desired, err := t.resolve(ctx, tags)
	if err != nil {
		return nil, err
	}

	subject := domain.InPartition(t.opts.SubjectType, subjectID, partition)

	linkedFilter := subject
	linkedFilter.TagIDs = desired
	linked, err := t.store.FindAssociations(ctx, linkedFilter)
	if err != nil {
		return nil, err
	}

	already := tagIDs(linked)

	var previous []string
	switch mode {
	case ModeReplace:
		current, err := t.store.FindAssociations(ctx, subject)
		if err != nil {
			return nil, err
		}

		previous = tagIDs(current)

		deleteFilter := subject
		deleteFilter.ExceptTagIDs = already
		if err := t.store.DeleteAssociations(ctx, deleteFilter); err != nil {
			return nil, err
		}

		t.log.Debug().Str("subject_id", subjectID).Str("partition", partition).Int("kept", len(already)).Msg("removed stale associations")
	case ModeAppend:
		if t.opts.TaggedCounter && len(already) > 0 {
			if c, ok := t.store.(TimesTaggedCounter); ok {
				counterFilter := subject
				counterFilter.TagIDs = already
				if err := c.IncrementTimesTagged(ctx, counterFilter); err != nil {
					return nil, err
				}
			}
		}
	}

	linkedSet := make(map[string]bool, len(already))
	for _, id := range already {
		linkedSet[id] = true
	}

	for _, id := range desired {
		if linkedSet[id] {
			continue
		}

		if err := t.store.CreateAssociation(ctx, domain.Association{
			TagID:       id,
			SubjectType: t.opts.SubjectType,
			SubjectID:   subjectID,
			Partition:   partition,
		}); err != nil {
			return nil, err
		}

		linkedSet[id] = true
		t.log.Debug().Str("subject_id", subjectID).Str("partition", partition).Str("tag_id", id).Msg("created association")
	}

	final, err := t.store.FindAssociations(ctx, subject)
	if err != nil {
		return nil, err
	}

	finalIDs := tagIDs(final)
	if t.opts.CacheOccurrence {
		if err := t.Recount(ctx, append(previous, finalIDs...)); err != nil {
			return nil, err
		}
	}

	return finalIDs, nil
}
