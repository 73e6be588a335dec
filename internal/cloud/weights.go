// Package cloud maps tag occurrences to display sizes and renders tag clouds.
package cloud

import (
	"errors"
	"math"
	"math/rand"

	"github.com/pbaille/tags/internal/domain"
)

const (
	// DefaultMinWeight is the weight of the least used tag.
	DefaultMinWeight = 10

	// DefaultMaxWeight is the weight of the most used tag.
	DefaultMaxWeight = 20
)

// ErrEmptyCollection is returned when weights are requested for no entries.
var ErrEmptyCollection = errors.New("empty collection")

// MapWeights sets the weight of each entry by scaling its occurrence linearly
// from the [min, max] occurrence range of the entries into [minSize, maxSize],
// rounding up. When all occurrences are equal, every entry gets minSize. The
// entries are modified in place and returned.
func MapWeights(entries []domain.CloudEntry, minSize, maxSize int) ([]domain.CloudEntry, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCollection
	}

	minOcc, maxOcc := entries[0].Occurrence, entries[0].Occurrence
	for _, e := range entries[1:] {
		minOcc = min(minOcc, e.Occurrence)
		maxOcc = max(maxOcc, e.Occurrence)
	}

	spread := maxOcc - minOcc
	if spread == 0 {
		spread = 1
	}

	for i := range entries {
		scaled := float64((entries[i].Occurrence-minOcc)*(maxSize-minSize)) / float64(spread)
		entries[i].Weight = minSize + int(math.Ceil(scaled))
	}

	return entries, nil
}

// Shuffle permutes the entries in place. Weights are not touched. A nil rnd
// uses the global source.
func Shuffle(entries []domain.CloudEntry, rnd *rand.Rand) {
	swap := func(i, j int) { entries[i], entries[j] = entries[j], entries[i] }
	if rnd == nil {
		rand.Shuffle(len(entries), swap)
		return
	}

	rnd.Shuffle(len(entries), swap)
}
