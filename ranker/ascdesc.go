package ranker

import (
	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/query"
)

// AscDesc buckets documents by a numeric facet field, one bucket per
// distinct value, in ascending or descending order. Documents missing the
// field sort as +infinity in both directions: last for Asc, first for Desc.
type AscDesc struct {
	ctx    Context
	parent Criterion
	cache  *ResolverCache
	seed   *seed
	field  string
	desc   bool

	haveCycle  bool
	tree       query.Operation
	bucketCand *roaring.Bitmap
	buckets    []*roaring.Bitmap
	next       int
}

func NewAscDesc(ctx Context, cache *ResolverCache, tree query.Operation, candidates *roaring.Bitmap, field string, desc bool) *AscDesc {
	return &AscDesc{ctx: ctx, cache: cache, seed: &seed{tree: tree, candidates: candidates}, field: field, desc: desc}
}

// WrapAscDesc constructs AscDesc wrapping a parent criterion.
func WrapAscDesc(ctx Context, cache *ResolverCache, parent Criterion, field string, desc bool) *AscDesc {
	return &AscDesc{ctx: ctx, cache: cache, parent: parent, field: field, desc: desc}
}

func (a *AscDesc) Next(wdcache *derive.Cache) (*CriterionResult, error) {
	for {
		if !a.haveCycle {
			p, ok, err := pullNext(a.parent, a.seed, wdcache)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			pool, err := poolFor(a.ctx, p.candidates)
			if err != nil {
				return nil, err
			}
			// As the initial criterion, bound the pool by the tree's matches;
			// a parent's buckets are already bounded by them.
			if a.parent == nil && p.tree != nil {
				resolved, err := ResolveQueryTree(a.ctx, p.tree, a.cache, wdcache)
				if err != nil {
					return nil, err
				}
				pool.And(resolved)
			}

			buckets, err := a.orderBuckets(pool)
			if err != nil {
				return nil, err
			}

			// bucketCand is nil exactly when this AscDesc has no parent: it
			// is the initial criterion, so each bucket it emits defines its
			// own label rather than inheriting one.
			a.bucketCand = p.bucketCandidates
			a.tree = p.tree
			a.buckets = buckets
			a.next = 0
			a.haveCycle = true
		}

		for a.next < len(a.buckets) {
			bucket := a.buckets[a.next]
			a.next++
			if bucket.IsEmpty() {
				continue
			}
			criterionLog.Debug("ascdesc bucket emitted", zap.String("field", a.field), zap.Uint64("size", bucket.GetCardinality()))
			metricBucketsEmittedTotal.WithLabelValues("ascdesc").Inc()
			bucketCand := a.bucketCand
			if bucketCand == nil {
				bucketCand = bucket
			}
			return &CriterionResult{
				QueryTree:        a.tree,
				Candidates:       bucket,
				BucketCandidates: bucketCand,
			}, nil
		}

		a.haveCycle = false
		if a.parent == nil {
			return nil, nil
		}
	}
}

// orderBuckets splits pool into one bucket per distinct facet value, plus a
// catch-all for documents with no value at all, in the configured order.
func (a *AscDesc) orderBuckets(pool *roaring.Bitmap) ([]*roaring.Bitmap, error) {
	values, err := a.ctx.FacetValues(a.field)
	if err != nil {
		return nil, wrapStorageErr(err, "FacetValues")
	}

	withValue := roaring.New()
	ordered := make([]*roaring.Bitmap, 0, len(values)+1)
	for _, fv := range values {
		bucket := roaring.And(pool, fv.Docs)
		withValue.Or(bucket)
		ordered = append(ordered, bucket)
	}
	if a.desc {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}

	missing := roaring.AndNot(pool, withValue)
	if a.desc {
		return append([]*roaring.Bitmap{missing}, ordered...), nil
	}
	return append(ordered, missing), nil
}
