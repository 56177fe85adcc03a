package ranker_test

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/require"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/memindex"
	"github.com/sourcegraph/rankstage/query"
	"github.com/sourcegraph/rankstage/ranker"
)

// newWordsFixture builds a small deterministic index where the three-term
// intersection is non-empty and each degraded level surfaces additional
// documents, unlike the large random newFixture(t) index, where the full
// conjunction of an arbitrary triple of words is close to always empty.
func newWordsFixture(t *testing.T) *memindex.Index {
	t.Helper()
	b := memindex.NewBuilder(nil)
	b.AddWordDocids("this", roaring.BitmapOf(1, 2, 3, 4))
	b.AddWordDocids("is", roaring.BitmapOf(1, 2, 3, 5))
	b.AddWordDocids("2021", roaring.BitmapOf(1, 2, 6))
	idx, err := b.Finalize()
	require.NoError(t, err)
	return idx
}

func TestWordsDegradesFromAllTermsToFewer(t *testing.T) {
	idx := newWordsFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	tree := query.NewAnd(
		query.NewQuery(query.Exact("this"), false),
		query.NewQuery(query.Exact("is"), false),
		query.NewQuery(query.Exact("2021"), false),
	)
	words := ranker.NewWords(idx, cache, tree, nil)

	// this ∩ is ∩ 2021 = {1, 2}
	first, err := words.Next(wdcache)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.True(t, first.Candidates.Equals(roaring.BitmapOf(1, 2)), "first bucket must require every term")

	seen := first.Candidates.Clone()
	var buckets int
	for {
		res, err := words.Next(wdcache)
		require.NoError(t, err)
		if res == nil {
			break
		}
		require.True(t, res.Candidates.AndCardinality(seen) == 0, "buckets must be disjoint")
		seen.Or(res.Candidates)
		buckets++
	}
	require.Greater(t, buckets, 0, "dropping to fewer required terms should surface more documents")
	// this ∩ is = {1, 2, 3}; this alone = {1, 2, 3, 4}: both looser levels
	// exist and together surface docs 3 and 4 beyond the tightest bucket.
	require.True(t, seen.Equals(roaring.BitmapOf(1, 2, 3, 4)), "every document satisfying some prefix of conjuncts must surface")
}

func TestWordsSingleConjunctHasOneLevel(t *testing.T) {
	idx := newWordsFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	tree := query.NewQuery(query.Exact("this"), false)
	words := ranker.NewWords(idx, cache, tree, nil)

	this, _ := idx.WordDocids("this")

	res, err := words.Next(wdcache)
	require.NoError(t, err)
	require.True(t, res.Candidates.Equals(this))

	res, err = words.Next(wdcache)
	require.NoError(t, err)
	require.Nil(t, res)
}
