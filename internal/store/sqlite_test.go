package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/tags/internal/domain"
	"github.com/pbaille/tags/internal/tagging"
)

var drivers = []string{DriverCgo, DriverPure}

func openTestStore(t *testing.T, driver string) *Store {
	t.Helper()

	s, err := New(Config{Driver: driver, Path: filepath.Join(t.TempDir(), "tags.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestStore(t *testing.T) *Store {
	return openTestStore(t, DriverPure)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "/tmp/tags.db?_foreign_keys=1", dsn(Config{Driver: DriverCgo, Path: "/tmp/tags.db"}))
	assert.Equal(t, "/tmp/tags.db?_pragma=foreign_keys(1)", dsn(Config{Driver: DriverPure, Path: "/tmp/tags.db"}))
	assert.Equal(t, "file:tags.db?mode=ro&_foreign_keys=1", dsn(Config{Driver: DriverCgo, Path: "file:tags.db?mode=ro"}))
}

func TestForeignKeysOnEveryConnection(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := openTestStore(t, driver)

			// both connections are held at once, so the pool opens two
			first, err := s.db.Conn(ctx)
			require.NoError(t, err)
			defer first.Close()

			second, err := s.db.Conn(ctx)
			require.NoError(t, err)
			defer second.Close()

			for _, c := range []*sql.Conn{first, second} {
				var on int
				require.NoError(t, c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&on))
				assert.Equal(t, 1, on)
			}

			id, err := s.CreateTag(ctx, domain.Tag{Name: "go", Key: "go"})
			require.NoError(t, err)
			require.NoError(t, s.CreateAssociation(ctx, domain.Association{TagID: id, SubjectType: "articles", SubjectID: "1"}))

			_, err = second.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
			require.NoError(t, err)

			n, err := s.CountAssociations(ctx, id, "")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(Config{Driver: "postgres", Path: "x"})
	assert.Error(t, err)
}

func TestCreateTag(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateTag(ctx, domain.Tag{Name: "Go", Key: "go"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	again, err := s.CreateTag(ctx, domain.Tag{Name: "GO", Key: "go"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	other, err := s.CreateTag(ctx, domain.Tag{Name: "Go", Identifier: "lang", Key: "go"})
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	found, err := s.LookupTags(ctx, []domain.Tag{{Key: "go", Identifier: "lang"}, {Key: "rust"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, other, found[0].ID)
	assert.Equal(t, "lang", found[0].Identifier)
}

func TestAssociations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	red, err := s.CreateTag(ctx, domain.Tag{Name: "red", Key: "red"})
	require.NoError(t, err)
	blue, err := s.CreateTag(ctx, domain.Tag{Name: "blue", Key: "blue"})
	require.NoError(t, err)

	for _, a := range []domain.Association{
		{TagID: red, SubjectType: "articles", SubjectID: "1", Partition: "en"},
		{TagID: blue, SubjectType: "articles", SubjectID: "1", Partition: "en"},
		{TagID: red, SubjectType: "articles", SubjectID: "1", Partition: "de"},
		{TagID: red, SubjectType: "videos", SubjectID: "1", Partition: "en"},
		{TagID: red, SubjectType: "articles", SubjectID: "1", Partition: "en"},
	} {
		require.NoError(t, s.CreateAssociation(ctx, a))
	}

	en := domain.InPartition("articles", "1", "en")
	found, err := s.FindAssociations(ctx, en)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	all := domain.AssociationFilter{SubjectType: "articles", SubjectID: "1"}
	found, err = s.FindAssociations(ctx, all)
	require.NoError(t, err)
	assert.Len(t, found, 3)

	onlyRed := en
	onlyRed.TagIDs = []string{red}
	found, err = s.FindAssociations(ctx, onlyRed)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 1, found[0].TimesTagged)

	none := en
	none.TagIDs = []string{}
	found, err = s.FindAssociations(ctx, none)
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, s.IncrementTimesTagged(ctx, onlyRed))
	found, err = s.FindAssociations(ctx, onlyRed)
	require.NoError(t, err)
	assert.Equal(t, 2, found[0].TimesTagged)

	n, err := s.CountAssociations(ctx, red, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.CountAssociations(ctx, red, "articles")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tags, err := s.TagsForSubject(ctx, en)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "red", tags[0].Name)
	assert.Equal(t, "blue", tags[1].Name)

	keepRed := en
	keepRed.ExceptTagIDs = []string{red}
	require.NoError(t, s.DeleteAssociations(ctx, keepRed))
	found, err = s.FindAssociations(ctx, all)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	require.NoError(t, s.DeleteAssociations(ctx, all))
	found, err = s.FindAssociations(ctx, all)
	require.NoError(t, err)
	assert.Empty(t, found)

	n, err = s.CountAssociations(ctx, red, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPersistOccurrence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateTag(ctx, domain.Tag{Name: "go", Key: "go"})
	require.NoError(t, err)

	require.NoError(t, s.PersistOccurrence(ctx, domain.OccurrenceCount{
		TagID:       id,
		SubjectType: "articles",
		ScopedCount: 2,
		TotalCount:  5,
	}, true))

	scoped, err := s.ScopedOccurrence(ctx, id, "articles")
	require.NoError(t, err)
	assert.Equal(t, 2, scoped)

	require.NoError(t, s.PersistOccurrence(ctx, domain.OccurrenceCount{
		TagID:       id,
		SubjectType: "articles",
		ScopedCount: 7,
		TotalCount:  6,
	}, false))

	scoped, err = s.ScopedOccurrence(ctx, id, "articles")
	require.NoError(t, err)
	assert.Equal(t, 2, scoped)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, 6, tags[0].Occurrence)

	err = s.PersistOccurrence(ctx, domain.OccurrenceCount{TagID: "missing"}, false)
	assert.ErrorIs(t, err, tagging.ErrNotFound)
}

func TestTaggerOnStore(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := openTestStore(t, driver)

			o := tagging.DefaultOptions("articles")
			o.ScopedCounter = true
			tagger := tagging.New(s, o)

			ids, err := tagger.SaveTags(ctx, "red, blue", "S1", "en", tagging.ModeReplace)
			require.NoError(t, err)
			assert.Len(t, ids, 2)

			again, err := tagger.SaveTags(ctx, "red, blue", "S1", "en", tagging.ModeReplace)
			require.NoError(t, err)
			assert.ElementsMatch(t, ids, again)

			_, err = tagger.SaveTags(ctx, "red, cake:special", "S2", "en", tagging.ModeReplace)
			require.NoError(t, err)

			cloud, err := s.TopTags(ctx, TopTagsOptions{})
			require.NoError(t, err)
			require.Len(t, cloud, 3)
			assert.Equal(t, "red", cloud[0].Name)
			assert.Equal(t, 2, cloud[0].Occurrence)

			cloud, err = s.TopTags(ctx, TopTagsOptions{Identifier: "cake"})
			require.NoError(t, err)
			require.Len(t, cloud, 1)
			assert.Equal(t, "special", cloud[0].Name)

			cloud, err = s.TopTags(ctx, TopTagsOptions{SubjectType: "articles", Limit: 1})
			require.NoError(t, err)
			require.Len(t, cloud, 1)
			assert.Equal(t, 2, cloud[0].Occurrence)

			str, err := tagger.TagString(ctx, "S2", "en")
			require.NoError(t, err)
			assert.Equal(t, "red, cake:special", str)

			require.NoError(t, tagger.DeleteAllAssociationsForSubject(ctx, "S1"))
			cloud, err = s.TopTags(ctx, TopTagsOptions{})
			require.NoError(t, err)
			assert.Len(t, cloud, 2)
		})
	}
}
