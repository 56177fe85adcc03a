package memindex_test

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/require"

	"github.com/sourcegraph/rankstage/memindex"
	"github.com/sourcegraph/rankstage/ranker"
)

func TestBuilderFinalizeComputesDocumentIDsUnion(t *testing.T) {
	b := memindex.NewBuilder(nil)
	b.AddWordDocids("a", roaring.BitmapOf(1, 2))
	b.AddWordDocids("b", roaring.BitmapOf(2, 3))

	idx, err := b.Finalize()
	require.NoError(t, err)

	docs, err := idx.DocumentIDs()
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3}, docs.ToArray())
}

func TestPrefixCacheMembership(t *testing.T) {
	b := memindex.NewBuilder(nil)
	b.AddWordDocids("hello", roaring.BitmapOf(1))
	b.AddWordDocids("hi", roaring.BitmapOf(2))
	b.AddWordPrefixDocids("h", roaring.BitmapOf(1, 2))

	idx, err := b.Finalize()
	require.NoError(t, err)

	require.True(t, idx.InPrefixCache("h"))
	require.False(t, idx.InPrefixCache("wor"))

	got, err := idx.WordPrefixDocids("h")
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2}, got.ToArray())
}

func TestFacetValuesSortedAscending(t *testing.T) {
	b := memindex.NewBuilder(nil)
	b.AddFacetValue("price", 30, roaring.BitmapOf(1))
	b.AddFacetValue("price", 10, roaring.BitmapOf(2))
	b.AddFacetValue("price", 20, roaring.BitmapOf(3))

	idx, err := b.Finalize()
	require.NoError(t, err)

	values, err := idx.FacetValues("price")
	require.NoError(t, err)
	require.Equal(t, []float64{10, 20, 30}, []float64{values[0].Value, values[1].Value, values[2].Value})
}

func TestFixtureBuildsWithoutError(t *testing.T) {
	idx, err := memindex.NewFixture()
	require.NoError(t, err)

	var _ ranker.Context = idx

	helloWorld1, err := idx.WordPairProximityDocids("hello", "world", 1)
	require.NoError(t, err)
	require.NotNil(t, helloWorld1)
}
