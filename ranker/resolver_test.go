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

func newFixture(t *testing.T) *memindex.Index {
	t.Helper()
	idx, err := memindex.NewFixture()
	require.NoError(t, err)
	return idx
}

func TestResolveExactLeaf(t *testing.T) {
	idx := newFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	tree := query.NewQuery(query.Exact("hello"), false)
	got, err := ranker.ResolveQueryTree(idx, tree, cache, wdcache)
	require.NoError(t, err)

	want, err := idx.WordDocids("hello")
	require.NoError(t, err)
	require.True(t, got.Equals(want))
}

func TestResolveAndIntersectsChildren(t *testing.T) {
	idx := newFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	tree := query.NewAnd(
		query.NewQuery(query.Exact("this"), false),
		query.NewQuery(query.Exact("is"), false),
	)
	got, err := ranker.ResolveQueryTree(idx, tree, cache, wdcache)
	require.NoError(t, err)

	this, _ := idx.WordDocids("this")
	is, _ := idx.WordDocids("is")
	require.True(t, got.Equals(roaring.And(this, is)))
}

func TestResolveOrUnionsChildren(t *testing.T) {
	idx := newFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	tree := query.NewOr(false,
		query.NewQuery(query.Exact("good"), false),
		query.NewQuery(query.Exact("morning"), false),
	)
	got, err := ranker.ResolveQueryTree(idx, tree, cache, wdcache)
	require.NoError(t, err)

	good, _ := idx.WordDocids("good")
	morning, _ := idx.WordDocids("morning")
	require.True(t, got.Equals(roaring.Or(good, morning)))
}

func TestResolveConsecutiveMatchesProximityOnePair(t *testing.T) {
	idx := newFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	tree := query.NewConsecutive(
		query.NewQuery(query.Exact("good"), false),
		query.NewQuery(query.Exact("morning"), false),
	)
	got, err := ranker.ResolveQueryTree(idx, tree, cache, wdcache)
	require.NoError(t, err)

	pair, err := idx.WordPairProximityDocids("good", "morning", 1)
	require.NoError(t, err)
	require.True(t, got.Equals(pair))
}

func TestResolveConsecutiveNonLeafIsStructuralError(t *testing.T) {
	idx := newFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	tree := query.NewConsecutive(
		query.NewAnd(query.NewQuery(query.Exact("hello"), false)),
		query.NewQuery(query.Exact("world"), false),
	)
	_, err := ranker.ResolveQueryTree(idx, tree, cache, wdcache)
	require.Error(t, err)
	var structErr *ranker.StructuralError
	require.ErrorAs(t, err, &structErr)
}

func TestResolvePrefixUsesPrefixCacheWhenRegistered(t *testing.T) {
	idx := newFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	tree := query.NewQuery(query.Exact("h"), true)
	got, err := ranker.ResolveQueryTree(idx, tree, cache, wdcache)
	require.NoError(t, err)

	want, err := idx.WordPrefixDocids("h")
	require.NoError(t, err)
	require.True(t, got.Equals(want))
}

func TestResolveAtProximityCollapsesAtThreshold(t *testing.T) {
	idx := newFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	left := query.NewQuery(query.Exact("hello"), false)
	right := query.NewQuery(query.Exact("world"), false)
	tree := query.NewConsecutive(left, right)

	got, err := ranker.ResolveQueryTreeAtProximity(idx, tree, 8, cache, wdcache)
	require.NoError(t, err)

	hello, _ := idx.WordDocids("hello")
	world, _ := idx.WordDocids("world")
	require.True(t, got.Equals(roaring.And(hello, world)))
}

func TestResolveEmptyAndShortCircuits(t *testing.T) {
	idx := newFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	tree := query.NewAnd(
		query.NewQuery(query.Exact("earth"), false),
		query.NewQuery(query.Exact("morning"), false),
		query.NewQuery(query.Exact("good"), false),
	)
	got, err := ranker.ResolveQueryTree(idx, tree, cache, wdcache)
	require.NoError(t, err)
	require.True(t, got.GetCardinality() <= roaring.And(mustDocids(t, idx, "earth"), mustDocids(t, idx, "good")).GetCardinality())
}

func mustDocids(t *testing.T, idx *memindex.Index, word string) *roaring.Bitmap {
	t.Helper()
	bm, err := idx.WordDocids(word)
	require := require.New(t)
	require.NoError(err)
	return bm
}
