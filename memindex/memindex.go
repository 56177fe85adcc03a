// Package memindex implements a small in-memory ranker.Context: every
// posting list is a plain Go map of roaring.Bitmap values. It exists for
// tests and the demo CLI, not as a production storage engine — a real
// deployment would back Context with an on-disk store the way zoekt backs
// its shard reader with mmap'd index files (build/builder.go).
package memindex

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/ranker"
)

type pairKey struct {
	left, right string
	prox        uint8
}

type prefixPairKey struct {
	left, rightPrefix string
	prox              uint8
}

// Index is the finalized, read-only view. Build one with NewBuilder.
type Index struct {
	docIDs *roaring.Bitmap

	wordDocids       map[string]*roaring.Bitmap
	wordPrefixDocids map[string]*roaring.Bitmap

	pairs       map[pairKey]*roaring.Bitmap
	prefixPairs map[prefixPairKey]*roaring.Bitmap

	positions map[uint32]map[string]*roaring.Bitmap

	dict *derive.Dictionary

	criteria []ranker.CriterionName
	facets   map[string][]ranker.FacetValue
}

var _ ranker.Context = (*Index)(nil)

func (idx *Index) DocumentIDs() (*roaring.Bitmap, error) {
	return idx.docIDs.Clone(), nil
}

// cloneBitmap returns a clone of bm, or nil if bm is nil. Every getter below
// hands out a clone rather than the stored bitmap itself, matching milli's
// TestContext, whose getters call .cloned() on every lookup: callers (the
// resolver in particular) mutate the bitmaps they receive in place, and a
// shared reference to a stored posting list would let one query corrupt
// postings a later lookup in the same index would see.
func cloneBitmap(bm *roaring.Bitmap) *roaring.Bitmap {
	if bm == nil {
		return nil
	}
	return bm.Clone()
}

func (idx *Index) WordDocids(word string) (*roaring.Bitmap, error) {
	return cloneBitmap(idx.wordDocids[word]), nil
}

func (idx *Index) WordPrefixDocids(word string) (*roaring.Bitmap, error) {
	return cloneBitmap(idx.wordPrefixDocids[word]), nil
}

func (idx *Index) WordPairProximityDocids(left, right string, prox uint8) (*roaring.Bitmap, error) {
	return cloneBitmap(idx.pairs[pairKey{left, right, prox}]), nil
}

func (idx *Index) WordPrefixPairProximityDocids(left, rightPrefix string, prox uint8) (*roaring.Bitmap, error) {
	return cloneBitmap(idx.prefixPairs[prefixPairKey{left, rightPrefix, prox}]), nil
}

func (idx *Index) WordsFST() *derive.Dictionary {
	return idx.dict
}

func (idx *Index) InPrefixCache(word string) bool {
	_, ok := idx.wordPrefixDocids[word]
	return ok
}

func (idx *Index) DocIDWordsPositions(docID uint32) (map[string]*roaring.Bitmap, error) {
	return idx.positions[docID], nil
}

func (idx *Index) Criteria() []ranker.CriterionName {
	return idx.criteria
}

func (idx *Index) FacetValues(field string) ([]ranker.FacetValue, error) {
	return idx.facets[field], nil
}

// Builder accumulates postings before Finalize assembles them into an
// immutable Index, mirroring the accumulate-then-finish shape of zoekt's
// build.Builder (build/builder.go), simplified down to in-memory maps
// instead of on-disk shard files.
type Builder struct {
	wordDocids       map[string]*roaring.Bitmap
	wordPrefixDocids map[string]*roaring.Bitmap
	pairs            map[pairKey]*roaring.Bitmap
	prefixPairs      map[prefixPairKey]*roaring.Bitmap
	positions        map[uint32]map[string]*roaring.Bitmap
	facets           map[string]map[float64]*roaring.Bitmap
	criteria         []ranker.CriterionName
}

// NewBuilder starts a Builder configured with an ordered criteria list.
// The list is fixed here: Index has no setter for it, and a nil list yields
// an Index that configures no criteria.
func NewBuilder(criteria []ranker.CriterionName) *Builder {
	return &Builder{
		wordDocids:       make(map[string]*roaring.Bitmap),
		wordPrefixDocids: make(map[string]*roaring.Bitmap),
		pairs:            make(map[pairKey]*roaring.Bitmap),
		prefixPairs:      make(map[prefixPairKey]*roaring.Bitmap),
		positions:        make(map[uint32]map[string]*roaring.Bitmap),
		facets:           make(map[string]map[float64]*roaring.Bitmap),
		criteria:         criteria,
	}
}

// AddWordDocids registers (or replaces) the posting list for word.
func (b *Builder) AddWordDocids(word string, docs *roaring.Bitmap) {
	b.wordDocids[word] = docs
}

// AddWordPrefixDocids registers a precomputed prefix posting list and
// implicitly enrolls prefix in the prefix cache.
func (b *Builder) AddWordPrefixDocids(prefix string, docs *roaring.Bitmap) {
	b.wordPrefixDocids[prefix] = docs
}

func (b *Builder) AddWordPairProximityDocids(left, right string, prox uint8, docs *roaring.Bitmap) {
	b.pairs[pairKey{left, right, prox}] = docs
}

func (b *Builder) AddWordPrefixPairProximityDocids(left, rightPrefix string, prox uint8, docs *roaring.Bitmap) {
	b.prefixPairs[prefixPairKey{left, rightPrefix, prox}] = docs
}

func (b *Builder) AddPosition(docID uint32, word string, pos uint32) {
	byWord, ok := b.positions[docID]
	if !ok {
		byWord = make(map[string]*roaring.Bitmap)
		b.positions[docID] = byWord
	}
	bm, ok := byWord[word]
	if !ok {
		bm = roaring.New()
		byWord[word] = bm
	}
	bm.Add(pos)
}

func (b *Builder) AddFacetValue(field string, value float64, docs *roaring.Bitmap) {
	byValue, ok := b.facets[field]
	if !ok {
		byValue = make(map[float64]*roaring.Bitmap)
		b.facets[field] = byValue
	}
	existing, ok := byValue[value]
	if !ok {
		byValue[value] = docs.Clone()
		return
	}
	existing.Or(docs)
}

// Finalize builds the words FST from every distinct indexed word and
// returns the immutable Index.
func (b *Builder) Finalize() (*Index, error) {
	words := make([]string, 0, len(b.wordDocids))
	docIDs := roaring.New()
	for w, docs := range b.wordDocids {
		words = append(words, w)
		docIDs.Or(docs)
	}
	dict, err := derive.BuildDictionary(words)
	if err != nil {
		return nil, errors.Wrap(err, "building words dictionary")
	}

	facets := make(map[string][]ranker.FacetValue, len(b.facets))
	for field, byValue := range b.facets {
		values := make([]float64, 0, len(byValue))
		for v := range byValue {
			values = append(values, v)
		}
		sort.Float64s(values)
		fvs := make([]ranker.FacetValue, len(values))
		for i, v := range values {
			fvs[i] = ranker.FacetValue{Value: v, Docs: byValue[v]}
		}
		facets[field] = fvs
	}

	return &Index{
		docIDs:           docIDs,
		wordDocids:       b.wordDocids,
		wordPrefixDocids: b.wordPrefixDocids,
		pairs:            b.pairs,
		prefixPairs:      b.prefixPairs,
		positions:        b.positions,
		dict:             dict,
		criteria:         b.criteria,
		facets:           facets,
	}, nil
}
