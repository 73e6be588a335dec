// Package tagging turns free-text tag strings into persisted tags and keeps
// the associations between tags and tagged subjects in sync.
//
// Persistence is delegated to a Store. The Tagger only parses, decides what
// has to be created or removed, and asks the Store to do it. Every operation
// takes the partition (typically a language) explicitly.
package tagging

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/pbaille/tags/internal/domain"
)

// Mode controls how SaveTags treats associations that are not in the input.
type Mode string

const (
	// ModeReplace removes associations of tags missing from the input.
	ModeReplace Mode = "replace"

	// ModeAppend only adds associations.
	ModeAppend Mode = "append"
)

var (
	// ErrValidation is returned when the input of an operation is unusable,
	// e.g. an empty tag string or a missing subject id.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a tag expected to exist cannot be found.
	ErrNotFound = errors.New("not found")
)

// Store persists tags and associations.
type Store interface {

	// LookupTags returns the persisted tags matching the (key, identifier)
	// pairs of the arguments.
	LookupTags(ctx context.Context, tags []domain.Tag) ([]domain.ExistingTag, error)

	// CreateTag persists a tag and returns its id. Creating a tag whose
	// (key, identifier) pair already exists must return the existing id.
	CreateTag(ctx context.Context, tag domain.Tag) (string, error)

	// FindAssociations returns the associations matching the filter.
	FindAssociations(ctx context.Context, f domain.AssociationFilter) ([]domain.Association, error)

	// CreateAssociation persists a single association.
	CreateAssociation(ctx context.Context, a domain.Association) error

	// DeleteAssociations removes the associations matching the filter.
	DeleteAssociations(ctx context.Context, f domain.AssociationFilter) error

	// CountAssociations counts the associations of a tag. An empty subject
	// type counts across all subject types.
	CountAssociations(ctx context.Context, tagID, subjectType string) (int, error)

	// PersistOccurrence stores the cached counters of a tag. The scoped
	// count is only stored when withScoped is set.
	PersistOccurrence(ctx context.Context, c domain.OccurrenceCount, withScoped bool) error

	// TagsForSubject returns the tags associated with the subject selected
	// by the filter.
	TagsForSubject(ctx context.Context, f domain.AssociationFilter) ([]domain.ExistingTag, error)
}

// TimesTaggedCounter when implemented by a store, counts how many times an
// existing association was tagged again in append mode.
type TimesTaggedCounter interface {
	IncrementTimesTagged(ctx context.Context, f domain.AssociationFilter) error
}

// Options are used to initialize a Tagger.
type Options struct {

	// Separator of the tags in a tag string. Defaults to a comma.
	Separator string

	// SubjectType names the kind of the tagged subjects, e.g. "articles".
	SubjectType string

	// Mode used by Sync. Defaults to ModeReplace.
	Mode Mode

	// CacheOccurrence enables recounting the affected tags after every
	// change of associations.
	CacheOccurrence bool

	// ScopedCounter enables storing the per subject type occurrence next to
	// the total one.
	ScopedCounter bool

	// TaggedCounter enables counting repeated tagging in append mode. Needs a
	// store implementing TimesTaggedCounter.
	TaggedCounter bool

	// AutomaticTagging makes Sync save the tags of a non-empty field.
	AutomaticTagging bool

	// DeleteTagsOnEmptyField makes Sync remove all associations of a subject
	// whose tag field is empty.
	DeleteTagsOnEmptyField bool

	// Logger receives debug events. Defaults to a disabled logger.
	Logger *zerolog.Logger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions(subjectType string) Options {
	return Options{
		Separator:        DefaultSeparator,
		SubjectType:      subjectType,
		Mode:             ModeReplace,
		CacheOccurrence:  true,
		AutomaticTagging: true,
	}
}

// Tagger parses tag strings and reconciles them with a Store.
type Tagger struct {
	store Store
	opts  Options
	log   zerolog.Logger
}

// New creates a Tagger backed by the store.
func New(s Store, o Options) *Tagger {
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}

	if o.Mode == "" {
		o.Mode = ModeReplace
	}

	log := zerolog.Nop()
	if o.Logger != nil {
		log = o.Logger.With().Str("subject_type", o.SubjectType).Logger()
	}

	return &Tagger{store: s, opts: o, log: log}
}

// Parse splits a tag string using the configured separator.
func (t *Tagger) Parse(input string) []domain.Tag {
	return Parse(input, t.opts.Separator)
}

// Stringify joins tags using the configured separator.
func (t *Tagger) Stringify(tags []domain.Tag) string {
	return Stringify(tags, t.opts.Separator)
}
