package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/pbaille/tags/internal/domain"
	"github.com/pbaille/tags/internal/tagging"
)

//go:embed schema.sql
var schema string

const (
	// DriverCgo is the mattn/go-sqlite3 driver
	DriverCgo = "sqlite3"

	// DriverPure is the modernc.org/sqlite driver, no cgo needed
	DriverPure = "sqlite"

	// DefaultDriver is used when no driver is configured
	DefaultDriver = DriverCgo
)

// Config selects the database
type Config struct {
	Driver string
	Path   string
}

// Store handles database operations
type Store struct {
	db *sql.DB
}

var _ tagging.Store = (*Store)(nil)
var _ tagging.TimesTaggedCounter = (*Store)(nil)

// New opens the database and initializes its schema
func New(cfg Config) (*Store, error) {
	if cfg.Driver == "" {
		cfg.Driver = DefaultDriver
	}

	if cfg.Driver != DriverCgo && cfg.Driver != DriverPure {
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// every connection to :memory: is a separate database
	if cfg.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// dsn enables foreign keys on every connection the pool opens. Each driver
// has its own connection parameter for it.
func dsn(cfg Config) string {
	param := "_foreign_keys=1"
	if cfg.Driver == DriverPure {
		param = "_pragma=foreign_keys(1)"
	}

	sep := "?"
	if strings.Contains(cfg.Path, "?") {
		sep = "&"
	}

	return cfg.Path + sep + param
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(v []string) []any {
	args := make([]any, len(v))
	for i := range v {
		args[i] = v[i]
	}

	return args
}

// where builds the condition selecting the associations of a filter. The
// columns are prefixed with table when it is set.
func where(f domain.AssociationFilter, table string) (string, []any) {
	col := func(name string) string {
		if table == "" {
			return name
		}
		return table + "." + name
	}

	cond := []string{col("model") + " = ?", col("foreign_key") + " = ?"}
	args := []any{f.SubjectType, f.SubjectID}

	if f.Partition != nil {
		cond = append(cond, col("language")+" = ?")
		args = append(args, *f.Partition)
	}

	if f.TagIDs != nil {
		if len(f.TagIDs) == 0 {
			cond = append(cond, "0")
		} else {
			cond = append(cond, fmt.Sprintf("%s IN (%s)", col("tag_id"), placeholders(len(f.TagIDs))))
			args = append(args, stringArgs(f.TagIDs)...)
		}
	}

	if len(f.ExceptTagIDs) > 0 {
		cond = append(cond, fmt.Sprintf("%s NOT IN (%s)", col("tag_id"), placeholders(len(f.ExceptTagIDs))))
		args = append(args, stringArgs(f.ExceptTagIDs)...)
	}

	return strings.Join(cond, " AND "), args
}

func scanTags(rows *sql.Rows) ([]domain.ExistingTag, error) {
	defer rows.Close()

	var tags []domain.ExistingTag
	for rows.Next() {
		var t domain.ExistingTag
		if err := rows.Scan(&t.ID, &t.Identifier, &t.Name, &t.Key, &t.Occurrence, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	return tags, nil
}

// LookupTags returns the tags matching the (key, identifier) pairs
func (s *Store) LookupTags(ctx context.Context, tags []domain.Tag) ([]domain.ExistingTag, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	cond := make([]string, len(tags))
	args := make([]any, 0, 2*len(tags))
	for i, t := range tags {
		cond[i] = "(keyname = ? AND identifier = ?)"
		args = append(args, t.Key, t.Identifier)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, identifier, name, keyname, occurrence, created_at FROM tags WHERE "+strings.Join(cond, " OR "),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup tags: %w", err)
	}

	return scanTags(rows)
}

// CreateTag inserts the tag unless its (key, identifier) pair exists, and
// returns the id of the stored row
func (s *Store) CreateTag(ctx context.Context, t domain.Tag) (string, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, identifier, name, keyname, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (identifier, keyname) DO NOTHING
	`, uuid.New().String(), t.Identifier, t.Name, t.Key, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert tag: %w", err)
	}

	var id string
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM tags WHERE identifier = ? AND keyname = ?",
		t.Identifier, t.Key,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: tag %q", tagging.ErrNotFound, t.Name)
	}
	if err != nil {
		return "", fmt.Errorf("find tag: %w", err)
	}

	return id, nil
}

// FindAssociations returns the associations matching the filter
func (s *Store) FindAssociations(ctx context.Context, f domain.AssociationFilter) ([]domain.Association, error) {
	cond, args := where(f, "")
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, tag_id, model, foreign_key, language, times_tagged, created_at FROM tagged WHERE "+cond+" ORDER BY rowid",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("find associations: %w", err)
	}
	defer rows.Close()

	var associations []domain.Association
	for rows.Next() {
		var a domain.Association
		if err := rows.Scan(&a.ID, &a.TagID, &a.SubjectType, &a.SubjectID, &a.Partition, &a.TimesTagged, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		associations = append(associations, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate associations: %w", err)
	}

	return associations, nil
}

// CreateAssociation links a tag with a subject. Linking twice is a no-op.
func (s *Store) CreateAssociation(ctx context.Context, a domain.Association) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tagged (id, tag_id, model, foreign_key, language, created_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tag_id, model, foreign_key, language) DO NOTHING
	`, uuid.New().String(), a.TagID, a.SubjectType, a.SubjectID, a.Partition, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert association: %w", err)
	}
	return nil
}

// DeleteAssociations removes the associations matching the filter
func (s *Store) DeleteAssociations(ctx context.Context, f domain.AssociationFilter) error {
	cond, args := where(f, "")
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tagged WHERE "+cond, args...); err != nil {
		return fmt.Errorf("delete associations: %w", err)
	}
	return nil
}

// IncrementTimesTagged counts one more tagging for the matching associations
func (s *Store) IncrementTimesTagged(ctx context.Context, f domain.AssociationFilter) error {
	cond, args := where(f, "")
	if _, err := s.db.ExecContext(ctx, "UPDATE tagged SET times_tagged = times_tagged + 1 WHERE "+cond, args...); err != nil {
		return fmt.Errorf("increment times tagged: %w", err)
	}
	return nil
}

// CountAssociations counts the associations of a tag, across all subject
// types when subjectType is empty
func (s *Store) CountAssociations(ctx context.Context, tagID, subjectType string) (int, error) {
	query := "SELECT COUNT(*) FROM tagged WHERE tag_id = ?"
	args := []any{tagID}
	if subjectType != "" {
		query += " AND model = ?"
		args = append(args, subjectType)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count associations: %w", err)
	}

	return n, nil
}

// PersistOccurrence stores the cached counters of a tag
func (s *Store) PersistOccurrence(ctx context.Context, c domain.OccurrenceCount, withScoped bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE tags SET occurrence = ? WHERE id = ?", c.TotalCount, c.TagID)
	if err != nil {
		return fmt.Errorf("update occurrence: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update occurrence: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: tag %s", tagging.ErrNotFound, c.TagID)
	}

	if !withScoped {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tag_occurrences (tag_id, model, occurrence) VALUES (?, ?, ?)
		ON CONFLICT (tag_id, model) DO UPDATE SET occurrence = excluded.occurrence
	`, c.TagID, c.SubjectType, c.ScopedCount)
	if err != nil {
		return fmt.Errorf("update scoped occurrence: %w", err)
	}

	return nil
}

// ScopedOccurrence returns the cached occurrence of a tag for one subject type
func (s *Store) ScopedOccurrence(ctx context.Context, tagID, subjectType string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT occurrence FROM tag_occurrences WHERE tag_id = ? AND model = ?",
		tagID, subjectType,
	).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get scoped occurrence: %w", err)
	}

	return n, nil
}

// TagsForSubject returns the tags of a subject in the order they were linked
func (s *Store) TagsForSubject(ctx context.Context, f domain.AssociationFilter) ([]domain.ExistingTag, error) {
	cond, args := where(f, "tagged")
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.identifier, t.name, t.keyname, t.occurrence, t.created_at
		FROM tags t
		JOIN tagged ON t.id = tagged.tag_id
		WHERE `+cond+`
		ORDER BY tagged.rowid
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("get subject tags: %w", err)
	}

	return scanTags(rows)
}

// ListTags returns all tags
func (s *Store) ListTags(ctx context.Context) ([]domain.ExistingTag, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, identifier, name, keyname, occurrence, created_at FROM tags ORDER BY keyname, identifier",
	)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	return scanTags(rows)
}

// TopTagsOptions filter the tags of a cloud
type TopTagsOptions struct {
	// Limit caps the number of tags. Zero means no limit.
	Limit int

	// Identifier restricts the cloud to one tag category.
	Identifier string

	// SubjectType uses the occurrence scoped to one subject type instead of
	// the total one.
	SubjectType string
}

// TopTags returns the most used tags as cloud entries, by descending
// occurrence
func (s *Store) TopTags(ctx context.Context, o TopTagsOptions) ([]domain.CloudEntry, error) {
	var (
		query strings.Builder
		args  []any
	)

	if o.SubjectType != "" {
		query.WriteString(`
			SELECT t.id, t.name, t.keyname, t.identifier, o.occurrence
			FROM tags t
			JOIN tag_occurrences o ON o.tag_id = t.id AND o.model = ?
			WHERE o.occurrence > 0`)
		args = append(args, o.SubjectType)
	} else {
		query.WriteString(`
			SELECT t.id, t.name, t.keyname, t.identifier, t.occurrence
			FROM tags t
			WHERE t.occurrence > 0`)
	}

	if o.Identifier != "" {
		query.WriteString(" AND t.identifier = ?")
		args = append(args, o.Identifier)
	}

	query.WriteString(" ORDER BY 5 DESC, t.keyname")
	if o.Limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, o.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("top tags: %w", err)
	}
	defer rows.Close()

	var entries []domain.CloudEntry
	for rows.Next() {
		var e domain.CloudEntry
		if err := rows.Scan(&e.TagID, &e.Name, &e.Key, &e.Identifier, &e.Occurrence); err != nil {
			return nil, fmt.Errorf("scan cloud entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cloud entries: %w", err)
	}

	return entries, nil
}
