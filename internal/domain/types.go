package domain

import "time"

// Tag is a single entry parsed from a tag string
type Tag struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier,omitempty"`
	Key        string `json:"key"`
}

// ExistingTag is a tag already persisted by the store
type ExistingTag struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	Identifier string    `json:"identifier,omitempty"`
	Name       string    `json:"name"`
	Occurrence int       `json:"occurrence"`
	CreatedAt  time.Time `json:"created_at"`
}

// Tag returns the parsed form of a persisted tag
func (t ExistingTag) Tag() Tag {
	return Tag{Name: t.Name, Identifier: t.Identifier, Key: t.Key}
}

// Association links a tag to a tagged subject within a partition
type Association struct {
	ID          string    `json:"id"`
	TagID       string    `json:"tag_id"`
	SubjectType string    `json:"subject_type"`
	SubjectID   string    `json:"subject_id"`
	Partition   string    `json:"partition"`
	TimesTagged int       `json:"times_tagged"`
	CreatedAt   time.Time `json:"created_at"`
}

// AssociationFilter selects associations of one subject. A nil Partition
// matches every partition.
type AssociationFilter struct {
	SubjectType  string
	SubjectID    string
	Partition    *string
	TagIDs       []string
	ExceptTagIDs []string
}

// InPartition returns a filter for the subject restricted to one partition
func InPartition(subjectType, subjectID, partition string) AssociationFilter {
	return AssociationFilter{
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Partition:   &partition,
	}
}

// OccurrenceCount holds the usage counters of a tag
type OccurrenceCount struct {
	TagID       string `json:"tag_id"`
	SubjectType string `json:"subject_type"`
	ScopedCount int    `json:"scoped_count"`
	TotalCount  int    `json:"total_count"`
}

// CloudEntry is a tag prepared for cloud rendering
type CloudEntry struct {
	TagID      string `json:"tag_id"`
	Name       string `json:"name"`
	Key        string `json:"key"`
	Identifier string `json:"identifier,omitempty"`
	Occurrence int    `json:"occurrence"`
	Weight     int    `json:"weight"`
}
