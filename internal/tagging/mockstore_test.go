package tagging

import (
	"context"
	"errors"
	"strconv"

	"github.com/pbaille/tags/internal/domain"
)

type mockStore struct {
	tags         []domain.ExistingTag
	associations []domain.Association
	occurrences  map[string]domain.OccurrenceCount
	nextID       int
	failNext     bool
	emptyIDs     bool
}

var errForgedError = errors.New("forged")

func newMockStore() *mockStore {
	return &mockStore{occurrences: make(map[string]domain.OccurrenceCount)}
}

func (s *mockStore) fail() error {
	if s.failNext {
		s.failNext = false
		return errForgedError
	}

	return nil
}

func (s *mockStore) id(prefix string) string {
	s.nextID++
	return prefix + strconv.Itoa(s.nextID)
}

func contains(ids []string, id string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}

	return false
}

func matches(f domain.AssociationFilter, a domain.Association) bool {
	if a.SubjectType != f.SubjectType || a.SubjectID != f.SubjectID {
		return false
	}

	if f.Partition != nil && a.Partition != *f.Partition {
		return false
	}

	if f.TagIDs != nil && !contains(f.TagIDs, a.TagID) {
		return false
	}

	return !contains(f.ExceptTagIDs, a.TagID)
}

func (s *mockStore) LookupTags(_ context.Context, tags []domain.Tag) ([]domain.ExistingTag, error) {
	if err := s.fail(); err != nil {
		return nil, err
	}

	var existing []domain.ExistingTag
	for _, e := range s.tags {
		for _, t := range tags {
			if e.Key == t.Key && e.Identifier == t.Identifier {
				existing = append(existing, e)
				break
			}
		}
	}

	return existing, nil
}

func (s *mockStore) CreateTag(_ context.Context, t domain.Tag) (string, error) {
	if err := s.fail(); err != nil {
		return "", err
	}

	if s.emptyIDs {
		return "", nil
	}

	for _, e := range s.tags {
		if e.Key == t.Key && e.Identifier == t.Identifier {
			return e.ID, nil
		}
	}

	e := domain.ExistingTag{
		ID:         s.id("tag-"),
		Key:        t.Key,
		Identifier: t.Identifier,
		Name:       t.Name,
	}

	s.tags = append(s.tags, e)
	return e.ID, nil
}

func (s *mockStore) FindAssociations(_ context.Context, f domain.AssociationFilter) ([]domain.Association, error) {
	if err := s.fail(); err != nil {
		return nil, err
	}

	var found []domain.Association
	for _, a := range s.associations {
		if matches(f, a) {
			found = append(found, a)
		}
	}

	return found, nil
}

func (s *mockStore) CreateAssociation(_ context.Context, a domain.Association) error {
	if err := s.fail(); err != nil {
		return err
	}

	a.ID = s.id("assoc-")
	a.TimesTagged = 1
	s.associations = append(s.associations, a)
	return nil
}

func (s *mockStore) DeleteAssociations(_ context.Context, f domain.AssociationFilter) error {
	if err := s.fail(); err != nil {
		return err
	}

	next := make([]domain.Association, 0, len(s.associations))
	for _, a := range s.associations {
		if !matches(f, a) {
			next = append(next, a)
		}
	}

	s.associations = next
	return nil
}

func (s *mockStore) CountAssociations(_ context.Context, tagID, subjectType string) (int, error) {
	if err := s.fail(); err != nil {
		return 0, err
	}

	var c int
	for _, a := range s.associations {
		if a.TagID == tagID && (subjectType == "" || a.SubjectType == subjectType) {
			c++
		}
	}

	return c, nil
}

func (s *mockStore) PersistOccurrence(_ context.Context, c domain.OccurrenceCount, withScoped bool) error {
	if err := s.fail(); err != nil {
		return err
	}

	for i := range s.tags {
		if s.tags[i].ID == c.TagID {
			s.tags[i].Occurrence = c.TotalCount
			if !withScoped {
				c.ScopedCount = 0
			}

			s.occurrences[c.TagID] = c
			return nil
		}
	}

	return ErrNotFound
}

func (s *mockStore) TagsForSubject(ctx context.Context, f domain.AssociationFilter) ([]domain.ExistingTag, error) {
	a, err := s.FindAssociations(ctx, f)
	if err != nil {
		return nil, err
	}

	var tags []domain.ExistingTag
	for _, ai := range a {
		for _, t := range s.tags {
			if t.ID == ai.TagID {
				tags = append(tags, t)
			}
		}
	}

	return tags, nil
}

func (s *mockStore) IncrementTimesTagged(_ context.Context, f domain.AssociationFilter) error {
	if err := s.fail(); err != nil {
		return err
	}

	for i := range s.associations {
		if matches(f, s.associations[i]) {
			s.associations[i].TimesTagged++
		}
	}

	return nil
}

func (s *mockStore) tagID(key string) string {
	for _, t := range s.tags {
		if t.Key == key {
			return t.ID
		}
	}

	return ""
}
