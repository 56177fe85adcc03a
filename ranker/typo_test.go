package ranker_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/query"
	"github.com/sourcegraph/rankstage/ranker"
)

func TestTypoEmitsFewerTyposFirst(t *testing.T) {
	idx := newFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	tree := query.NewQuery(query.Tolerant("helo", 2), false)
	typo := ranker.NewTypo(idx, cache, tree, nil)

	hello, err := idx.WordDocids("hello")
	require.NoError(t, err)

	res, err := typo.Next(wdcache)
	require.NoError(t, err)
	require.NotNil(t, res, "expected at least one bucket for a word one edit from a dictionary entry")
	require.True(t, res.Candidates.Equals(hello))

	var seen = res.Candidates.Clone()
	for {
		res, err = typo.Next(wdcache)
		require.NoError(t, err)
		if res == nil {
			break
		}
		require.True(t, res.Candidates.AndCardinality(seen) == 0, "typo levels must be disjoint")
		seen.Or(res.Candidates)
	}
}

func TestTypoDrainedReturnsNilForever(t *testing.T) {
	idx := newFixture(t)
	cache := ranker.NewResolverCache()
	wdcache := derive.NewCache()

	tree := query.NewQuery(query.Exact("good"), false)
	typo := ranker.NewTypo(idx, cache, tree, nil)

	for {
		res, err := typo.Next(wdcache)
		require.NoError(t, err)
		if res == nil {
			break
		}
	}
	res, err := typo.Next(wdcache)
	require.NoError(t, err)
	require.Nil(t, res)
}
