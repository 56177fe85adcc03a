package ranker

import (
	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/query"
)

// maxProximityLevel is the last real (non-collapsed) proximity step this
// criterion iterates before folding everything remaining into one final
// catch-all bucket at the collapse threshold (pairproximity.go).
const maxProximityLevel uint8 = proximityCollapseThreshold - 1

// Proximity buckets documents by how close together their matched terms
// appear, tightest first: p = 0, 1, 2, ..., 7, then one
// final bucket at the collapse threshold catching everything still
// unmatched (co-occurrence with no positional constraint).
type Proximity struct {
	ctx    Context
	parent Criterion
	cache  *ResolverCache
	seed   *seed

	haveCycle  bool
	tree       query.Operation
	pool       *roaring.Bitmap
	bucketCand *roaring.Bitmap
	prox       uint8 // next proximity to try; maxProximityLevel+1 means "final catch-all"
	finalDone  bool
	emitted    *roaring.Bitmap
}

func NewProximity(ctx Context, cache *ResolverCache, tree query.Operation, candidates *roaring.Bitmap) *Proximity {
	return &Proximity{ctx: ctx, cache: cache, seed: &seed{tree: tree, candidates: candidates}}
}

func WrapProximity(ctx Context, cache *ResolverCache, parent Criterion) *Proximity {
	return &Proximity{ctx: ctx, cache: cache, parent: parent}
}

func (p *Proximity) Next(wdcache *derive.Cache) (*CriterionResult, error) {
	for {
		if !p.haveCycle {
			pulledVal, ok, err := pullNext(p.parent, p.seed, wdcache)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			pool, err := poolFor(p.ctx, pulledVal.candidates)
			if err != nil {
				return nil, err
			}
			p.tree = pulledVal.tree
			p.pool = pool
			// bucketCand is nil exactly when this Proximity has no parent:
			// it is the initial criterion, so each bucket it emits defines
			// its own label rather than inheriting one.
			p.bucketCand = pulledVal.bucketCandidates
			p.prox = 0
			p.finalDone = false
			p.emitted = roaring.New()
			p.haveCycle = true
		}

		for p.prox <= maxProximityLevel {
			prox := p.prox
			p.prox++

			// A nil tree carries no textual constraint: the pool is the match.
			resolved := p.pool
			if p.tree != nil {
				var err error
				resolved, err = ResolveQueryTreeAtProximity(p.ctx, p.tree, prox, p.cache, wdcache)
				if err != nil {
					return nil, err
				}
			}
			bucket := roaring.And(resolved, p.pool)
			bucket = roaring.AndNot(bucket, p.emitted)
			if bucket.IsEmpty() {
				continue
			}
			p.emitted.Or(bucket)
			criterionLog.Debug("proximity bucket emitted", zap.Uint8("prox", prox), zap.Uint64("size", bucket.GetCardinality()))
			metricBucketsEmittedTotal.WithLabelValues("proximity").Inc()
			bucketCand := p.bucketCand
			if bucketCand == nil {
				bucketCand = bucket
			}
			return &CriterionResult{
				QueryTree:        p.tree,
				Candidates:       bucket,
				BucketCandidates: bucketCand,
			}, nil
		}

		if !p.finalDone {
			p.finalDone = true
			// The collapsed level (proximityCollapseThreshold) resolves to
			// every document where the pair co-occurs at all, ignoring
			// position entirely. Bound the catch-all by that resolution
			// (intersected with pool) rather than by pool alone: when pool
			// is the unrestricted document universe, pool alone would
			// sweep in documents that never matched the pair at any
			// proximity.
			collapsed, err := ResolveQueryTreeAtProximity(p.ctx, p.tree, proximityCollapseThreshold, p.cache, wdcache)
			if err != nil {
				return nil, err
			}
			remaining := roaring.And(collapsed, p.pool)
			remaining = roaring.AndNot(remaining, p.emitted)
			if !remaining.IsEmpty() {
				p.emitted.Or(remaining)
				criterionLog.Debug("proximity final catch-all bucket emitted", zap.Uint64("size", remaining.GetCardinality()))
				metricBucketsEmittedTotal.WithLabelValues("proximity").Inc()
				bucketCand := p.bucketCand
				if bucketCand == nil {
					bucketCand = remaining
				}
				return &CriterionResult{
					QueryTree:        p.tree,
					Candidates:       remaining,
					BucketCandidates: bucketCand,
				}, nil
			}
		}

		p.haveCycle = false
		if p.parent == nil {
			return nil, nil
		}
	}
}
