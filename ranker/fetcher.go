package ranker

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/sourcegraph/rankstage/derive"
)

// Fetcher drains the topmost criterion of an assembled pipeline, optionally
// narrowing every bucket against a residual filter — e.g. a facet filter
// applied after ranking rather than folded into the seed candidates.
type Fetcher struct {
	top    Criterion
	filter *roaring.Bitmap // nil means no residual filter
}

// NewFetcher wraps top with an optional residual filter.
func NewFetcher(top Criterion, filter *roaring.Bitmap) *Fetcher {
	return &Fetcher{top: top, filter: filter}
}

// Next drains the next non-empty bucket, applying the residual filter and
// skipping buckets the filter reduces to nothing. A nil bitmap and nil
// error means the pipeline is exhausted.
func (f *Fetcher) Next(wdcache *derive.Cache) (*roaring.Bitmap, error) {
	for {
		res, err := f.top.Next(wdcache)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, nil
		}
		docids := res.Candidates
		if docids == nil {
			docids = roaring.New()
		}
		if f.filter != nil {
			docids = roaring.And(docids, f.filter)
		}
		if docids.IsEmpty() {
			continue
		}
		return docids, nil
	}
}

// Drain runs the pipeline to completion, returning every bucket's document
// ids concatenated in ranked order.
func (f *Fetcher) Drain(wdcache *derive.Cache) ([]uint32, error) {
	var ordered []uint32
	for {
		bucket, err := f.Next(wdcache)
		if err != nil {
			return nil, err
		}
		if bucket == nil {
			return ordered, nil
		}
		it := bucket.Iterator()
		for it.HasNext() {
			ordered = append(ordered, it.Next())
		}
	}
}
