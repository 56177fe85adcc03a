package ranker_test

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/require"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/memindex"
	"github.com/sourcegraph/rankstage/ranker"
)

func newFacetFixture(t *testing.T) *memindex.Index {
	t.Helper()
	b := memindex.NewBuilder(nil)
	b.AddWordDocids("x", roaring.BitmapOf(1, 2, 3, 4, 5))
	b.AddFacetValue("price", 10, roaring.BitmapOf(1))
	b.AddFacetValue("price", 20, roaring.BitmapOf(2, 3))
	b.AddFacetValue("price", 30, roaring.BitmapOf(4))
	// doc 5 has no price value at all: sorts as +infinity both directions.
	idx, err := b.Finalize()
	require.NoError(t, err)
	return idx
}

func TestAscDescAscendingOrderWithMissingLast(t *testing.T) {
	idx := newFacetFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	allDocs, err := idx.DocumentIDs()
	require.NoError(t, err)

	asc := ranker.NewAscDesc(idx, cache, nil, allDocs, "price", false)

	var order [][]uint32
	for {
		res, err := asc.Next(wdcache)
		require.NoError(t, err)
		if res == nil {
			break
		}
		order = append(order, res.Candidates.ToArray())
	}

	require.Equal(t, [][]uint32{{1}, {2, 3}, {4}, {5}}, order)
}

func TestAscDescDescendingOrderWithMissingFirst(t *testing.T) {
	idx := newFacetFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	allDocs, err := idx.DocumentIDs()
	require.NoError(t, err)

	desc := ranker.NewAscDesc(idx, cache, nil, allDocs, "price", true)

	var order [][]uint32
	for {
		res, err := desc.Next(wdcache)
		require.NoError(t, err)
		if res == nil {
			break
		}
		order = append(order, res.Candidates.ToArray())
	}

	require.Equal(t, [][]uint32{{5}, {4}, {2, 3}, {1}}, order)
}
