package ranker

import (
	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/query"
)

// Words buckets documents by how many of the query's top-level conjuncts
// they actually satisfy, most-exhaustive first: all N terms
// required, then N-1, down to a single term. A tree that isn't an And at
// its root has nowhere to degrade to, so it is a single level.
type Words struct {
	ctx    Context
	parent Criterion
	cache  *ResolverCache
	seed   *seed

	haveCycle  bool
	conjuncts  []query.Operation
	pool       *roaring.Bitmap
	bucketCand *roaring.Bitmap
	level      int // number of leading conjuncts still required; counts down
	emitted    *roaring.Bitmap
}

func NewWords(ctx Context, cache *ResolverCache, tree query.Operation, candidates *roaring.Bitmap) *Words {
	return &Words{ctx: ctx, cache: cache, seed: &seed{tree: tree, candidates: candidates}}
}

func WrapWords(ctx Context, cache *ResolverCache, parent Criterion) *Words {
	return &Words{ctx: ctx, cache: cache, parent: parent}
}

func (w *Words) Next(wdcache *derive.Cache) (*CriterionResult, error) {
	for {
		if !w.haveCycle {
			p, ok, err := pullNext(w.parent, w.seed, wdcache)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			pool, err := poolFor(w.ctx, p.candidates)
			if err != nil {
				return nil, err
			}
			w.conjuncts = topLevelConjuncts(p.tree)
			w.pool = pool
			// bucketCand is nil exactly when this Words has no parent: it
			// is the initial criterion, so each bucket it emits defines
			// its own label rather than inheriting one.
			w.bucketCand = p.bucketCandidates
			w.level = len(w.conjuncts)
			w.emitted = roaring.New()
			w.haveCycle = true
		}

		for w.level >= 1 {
			level := w.level
			w.level--

			narrowed := buildAtLevel(w.conjuncts, level)
			// A nil tree carries no textual constraint: the pool is the match.
			resolved := w.pool
			if narrowed != nil {
				var err error
				resolved, err = ResolveQueryTree(w.ctx, narrowed, w.cache, wdcache)
				if err != nil {
					return nil, err
				}
			}
			bucket := roaring.And(resolved, w.pool)
			bucket = roaring.AndNot(bucket, w.emitted)
			if bucket.IsEmpty() {
				continue
			}
			w.emitted.Or(bucket)
			criterionLog.Debug("words bucket emitted", zap.Int("level", level), zap.Uint64("size", bucket.GetCardinality()))
			metricBucketsEmittedTotal.WithLabelValues("words").Inc()
			bucketCand := w.bucketCand
			if bucketCand == nil {
				bucketCand = bucket
			}
			return &CriterionResult{
				QueryTree:        narrowed,
				Candidates:       bucket,
				BucketCandidates: bucketCand,
			}, nil
		}

		w.haveCycle = false
		if w.parent == nil {
			return nil, nil
		}
	}
}

// topLevelConjuncts returns the top-level required terms of tree: the
// children of a root And, or a single-element slice holding tree itself if
// it isn't an And (nothing to degrade).
func topLevelConjuncts(tree query.Operation) []query.Operation {
	if and, ok := tree.(*query.And); ok {
		return and.Children
	}
	return []query.Operation{tree}
}

// buildAtLevel reassembles a tree keeping only the first n conjuncts.
func buildAtLevel(conjuncts []query.Operation, n int) query.Operation {
	if n >= len(conjuncts) {
		if len(conjuncts) == 1 {
			return conjuncts[0]
		}
		return query.NewAnd(conjuncts...)
	}
	if n == 1 {
		return conjuncts[0]
	}
	return query.NewAnd(conjuncts[:n]...)
}
