package ranker

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/sourcegraph/rankstage/derive"
)

// Context is the index facade the ranking core consumes. A real
// implementation holds a read transaction over a storage engine for the
// lifetime of one search; memindex.Index is the in-memory reference
// implementation used by this module's tests and demo CLI.
type Context interface {
	// DocumentIDs returns every document id known to the index.
	DocumentIDs() (*roaring.Bitmap, error)

	// WordDocids returns the posting list for word, or nil if word is
	// absent from the index.
	WordDocids(word string) (*roaring.Bitmap, error)

	// WordPrefixDocids returns the precomputed prefix posting list for
	// word, or nil if word has no precomputed prefix postings. Callers
	// must check InPrefixCache first: this call does not itself imply
	// membership.
	WordPrefixDocids(word string) (*roaring.Bitmap, error)

	// WordPairProximityDocids returns the posting list of documents
	// containing left and right at proximity <= prox, or nil if no such
	// pair table exists.
	WordPairProximityDocids(left, right string, prox uint8) (*roaring.Bitmap, error)

	// WordPrefixPairProximityDocids is the prefix analogue of
	// WordPairProximityDocids, keyed by (left, rightPrefix, prox).
	WordPrefixPairProximityDocids(left, rightPrefix string, prox uint8) (*roaring.Bitmap, error)

	// WordsFST returns the dictionary FST of every indexed word.
	WordsFST() *derive.Dictionary

	// InPrefixCache reports whether word has a precomputed prefix posting
	// list. This membership test must precede any WordPrefixDocids /
	// WordPrefixPairProximityDocids lookup: confusing the
	// membership test with the payload lookup is a correctness bug.
	InPrefixCache(word string) bool

	// DocIDWordsPositions returns, for one document, every indexed word
	// and the bitmap of positions at which it occurs.
	DocIDWordsPositions(docID uint32) (map[string]*roaring.Bitmap, error)

	// Criteria returns the configured, ordered list of criterion names to
	// assemble into a pipeline.
	Criteria() []CriterionName

	// FacetValues returns the (value, docids) pairs for a numeric facet
	// field in ascending key order, used by AscDesc. A nil return means
	// the field is not a registered facet.
	FacetValues(field string) ([]FacetValue, error)
}

// FacetValue is one distinct numeric value of a facet field together with
// the documents holding it.
type FacetValue struct {
	Value float64
	Docs  *roaring.Bitmap
}
