package ranker_test

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/require"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/query"
	"github.com/sourcegraph/rankstage/ranker"
)

func TestProximityEmitsTightestFirstThenCatchAll(t *testing.T) {
	idx := newFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	tree := query.NewConsecutive(
		query.NewQuery(query.Exact("hello"), false),
		query.NewQuery(query.Exact("world"), false),
	)
	prox := ranker.NewProximity(idx, cache, tree, nil)

	hello, _ := idx.WordDocids("hello")
	world, _ := idx.WordDocids("world")
	full := roaring.And(hello, world)

	seen := roaring.New()
	var buckets int
	for {
		res, err := prox.Next(wdcache)
		require.NoError(t, err)
		if res == nil {
			break
		}
		require.True(t, res.Candidates.AndCardinality(seen) == 0, "proximity buckets must be disjoint")
		seen.Or(res.Candidates)
		buckets++
		require.LessOrEqual(t, buckets, 9, "at most 8 real levels plus one catch-all")
	}
	require.True(t, seen.Equals(full), "every document matching the pair by any proximity must eventually surface")
}
