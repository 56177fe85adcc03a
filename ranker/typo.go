package ranker

import (
	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/query"
)

const maxTypoLevel uint8 = 2

// Typo buckets documents by how many typos their matched terms actually
// took, fewest typos first. At each level it narrows every
// Tolerant leaf's budget down to the current level, resolves the narrowed
// tree, and subtracts whatever it already emitted for the current parent
// bucket.
type Typo struct {
	ctx      Context
	parent   Criterion
	cache    *ResolverCache
	seed     *seed
	haveCycle bool
	tree      query.Operation
	pool      *roaring.Bitmap
	bucketCand *roaring.Bitmap
	level      uint8
	emitted    *roaring.Bitmap
}

// NewTypo constructs Typo as an initial criterion, seeded directly with a
// query tree and an optional starting candidate set.
func NewTypo(ctx Context, cache *ResolverCache, tree query.Operation, candidates *roaring.Bitmap) *Typo {
	return &Typo{ctx: ctx, cache: cache, seed: &seed{tree: tree, candidates: candidates}}
}

// WrapTypo constructs Typo wrapping a parent criterion.
func WrapTypo(ctx Context, cache *ResolverCache, parent Criterion) *Typo {
	return &Typo{ctx: ctx, cache: cache, parent: parent}
}

func (t *Typo) Next(wdcache *derive.Cache) (*CriterionResult, error) {
	for {
		if !t.haveCycle {
			p, ok, err := pullNext(t.parent, t.seed, wdcache)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			pool, err := poolFor(t.ctx, p.candidates)
			if err != nil {
				return nil, err
			}
			t.tree = p.tree
			t.pool = pool
			// bucketCand is nil exactly when this Typo has no parent: it is
			// the initial criterion, so each bucket it emits defines its
			// own label rather than inheriting one.
			t.bucketCand = p.bucketCandidates
			t.level = 0
			t.emitted = roaring.New()
			t.haveCycle = true
		}

		for t.level <= maxTypoLevel {
			level := t.level
			t.level++

			narrowed := narrowToTypoLevel(t.tree, level)
			// A nil tree carries no textual constraint: the pool is the match.
			resolved := t.pool
			if narrowed != nil {
				var err error
				resolved, err = ResolveQueryTree(t.ctx, narrowed, t.cache, wdcache)
				if err != nil {
					return nil, err
				}
			}
			bucket := roaring.And(resolved, t.pool)
			bucket = roaring.AndNot(bucket, t.emitted)
			if bucket.IsEmpty() {
				continue
			}
			t.emitted.Or(bucket)
			criterionLog.Debug("typo bucket emitted", zap.Uint8("level", level), zap.Uint64("size", bucket.GetCardinality()))
			metricBucketsEmittedTotal.WithLabelValues("typo").Inc()
			bucketCand := t.bucketCand
			if bucketCand == nil {
				bucketCand = bucket
			}
			return &CriterionResult{
				QueryTree:        narrowed,
				Candidates:       bucket,
				BucketCandidates: bucketCand,
			}, nil
		}

		// Every typo level for this cycle produced nothing new; pull the
		// next bucket from the parent (or, for an initial criterion, stop).
		t.haveCycle = false
		if t.parent == nil {
			return nil, nil
		}
	}
}

// narrowToTypoLevel rewrites every Tolerant leaf's budget down to level,
// leaving Exact leaves and already-tighter Tolerant leaves untouched.
func narrowToTypoLevel(tree query.Operation, level uint8) query.Operation {
	if tree == nil {
		return nil
	}
	return query.Map(tree, func(op query.Operation) query.Operation {
		q, ok := op.(*query.Query)
		if !ok || !q.Kind.IsTolerant() || q.Kind.MaxTypos() <= level {
			return op
		}
		return query.NewQuery(query.Tolerant(q.Kind.Word(), level), q.Prefix)
	})
}
