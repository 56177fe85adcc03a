package ranker

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/query"
)

// pulled is what a criterion gets either from its parent's Next(), or, for
// an initial criterion, from its one-time seed.
type pulled struct {
	tree             query.Operation
	candidates       *roaring.Bitmap // nil means "compute from tree"
	bucketCandidates *roaring.Bitmap // nil for an initial criterion's own seed
}

// seed holds the one-time (query_tree, candidates) pair an initial
// criterion is constructed with.
type seed struct {
	tree       query.Operation
	candidates *roaring.Bitmap
	consumed   bool
}

// pullNext advances either the parent criterion or, for an initial
// criterion (parent == nil), consumes the one-time seed. ok is false once
// both are exhausted.
func pullNext(parent Criterion, sd *seed, wdcache *derive.Cache) (pulled, bool, error) {
	if parent != nil {
		res, err := parent.Next(wdcache)
		if err != nil {
			return pulled{}, false, err
		}
		if res == nil {
			return pulled{}, false, nil
		}
		return pulled{tree: res.QueryTree, candidates: res.Candidates, bucketCandidates: res.BucketCandidates}, true, nil
	}

	if sd.consumed {
		return pulled{}, false, nil
	}
	sd.consumed = true
	return pulled{tree: sd.tree, candidates: sd.candidates}, true, nil
}

// poolFor resolves the working candidate pool bounding what a criterion may
// emit: the candidates bitmap if present, otherwise every document in the
// index. It must NOT resolve the pulled query tree to stand in for a nil
// candidates set: the tree's own resolution is frequently the *tightest*
// possible match for that tree (e.g. an And's full intersection, or a
// Consecutive's proximity-1 pair), and criteria like Words/Proximity need
// to degrade from that tight match down to looser ones. Bounding the pool
// by the tight resolution would intersect every looser level back down to
// the tightest one, collapsing the whole criterion to a single bucket. The
// documented default policy (spec.md's Candidates) is Forbidden(∅) — i.e.
// unrestricted — and that is what an absent candidates set means here.
func poolFor(ctx Context, candidates *roaring.Bitmap) (*roaring.Bitmap, error) {
	if candidates != nil {
		return candidates.Clone(), nil
	}
	docs, err := ctx.DocumentIDs()
	if err != nil {
		return nil, wrapStorageErr(err, "DocumentIDs")
	}
	return docs, nil
}
