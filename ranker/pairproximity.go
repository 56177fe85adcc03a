package ranker

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/query"
)

// proximityCollapseThreshold is the distance at which the stored index
// stops maintaining pair tables; distances at or beyond it degrade to
// plain co-occurrence. The fixture encodes pair postings up
// to and including proximity 7, confirming the cap is exclusive: p in
// 0..=7 are real pair-table lookups, p>=8 collapses.
const proximityCollapseThreshold = 8

// queryPairProximityDocids resolves a two-leaf proximity constraint,
// honoring prefix and typo tolerance on either side. This is a direct port
// of milli's query_pair_proximity_docids, rule order preserved exactly: the
// p>=8 collapse is checked first, before any dispatch on prefix/tolerant
// combinations.
func queryPairProximityDocids(ctx Context, left, right *query.Query, prox uint8, wdcache *derive.Cache) (*roaring.Bitmap, error) {
	if prox >= proximityCollapseThreshold {
		l, err := queryDocids(ctx, left, wdcache)
		if err != nil {
			return nil, err
		}
		r, err := queryDocids(ctx, right, wdcache)
		if err != nil {
			return nil, err
		}
		return roaring.And(l, r), nil
	}

	lk, rk := left.Kind, right.Kind
	prefix := right.Prefix

	switch {
	case !lk.IsTolerant() && !rk.IsTolerant():
		if prefix && ctx.InPrefixCache(rk.Word()) {
			bm, err := ctx.WordPrefixPairProximityDocids(lk.Word(), rk.Word(), prox)
			if err != nil {
				return nil, wrapStorageErr(err, "WordPrefixPairProximityDocids")
			}
			return orEmpty(bm), nil
		}
		if prefix {
			rWords, err := wdcache.Derivations(ctx.WordsFST(), rk.Word(), true, 0)
			if err != nil {
				return nil, wrapStorageErr(err, "Derivations")
			}
			return allWordPairProximityDocids(ctx, []derive.Derivation{{Word: lk.Word()}}, rWords, prox)
		}
		bm, err := ctx.WordPairProximityDocids(lk.Word(), rk.Word(), prox)
		if err != nil {
			return nil, wrapStorageErr(err, "WordPairProximityDocids")
		}
		return orEmpty(bm), nil

	case lk.IsTolerant() && !rk.IsTolerant():
		lWords, err := wdcache.Derivations(ctx.WordsFST(), lk.Word(), false, lk.MaxTypos())
		if err != nil {
			return nil, wrapStorageErr(err, "Derivations")
		}
		if prefix && ctx.InPrefixCache(rk.Word()) {
			docids := roaring.New()
			for _, l := range lWords {
				bm, err := ctx.WordPrefixPairProximityDocids(l.Word, rk.Word(), prox)
				if err != nil {
					return nil, wrapStorageErr(err, "WordPrefixPairProximityDocids")
				}
				if bm != nil {
					docids.Or(bm)
				}
			}
			return docids, nil
		}
		if prefix {
			rWords, err := wdcache.Derivations(ctx.WordsFST(), rk.Word(), true, 0)
			if err != nil {
				return nil, wrapStorageErr(err, "Derivations")
			}
			return allWordPairProximityDocids(ctx, lWords, rWords, prox)
		}
		return allWordPairProximityDocids(ctx, lWords, []derive.Derivation{{Word: rk.Word()}}, prox)

	case !lk.IsTolerant() && rk.IsTolerant():
		rWords, err := wdcache.Derivations(ctx.WordsFST(), rk.Word(), prefix, rk.MaxTypos())
		if err != nil {
			return nil, wrapStorageErr(err, "Derivations")
		}
		return allWordPairProximityDocids(ctx, []derive.Derivation{{Word: lk.Word()}}, rWords, prox)

	default: // both tolerant
		lWords, err := wdcache.Derivations(ctx.WordsFST(), lk.Word(), false, lk.MaxTypos())
		if err != nil {
			return nil, wrapStorageErr(err, "Derivations")
		}
		rWords, err := wdcache.Derivations(ctx.WordsFST(), rk.Word(), prefix, rk.MaxTypos())
		if err != nil {
			return nil, wrapStorageErr(err, "Derivations")
		}
		return allWordPairProximityDocids(ctx, lWords, rWords, prox)
	}
}

// allWordPairProximityDocids unions the (lw, rw, prox) posting list over
// every (left, right) derivation pair.
func allWordPairProximityDocids(ctx Context, lefts, rights []derive.Derivation, prox uint8) (*roaring.Bitmap, error) {
	docids := roaring.New()
	for _, l := range lefts {
		for _, r := range rights {
			bm, err := ctx.WordPairProximityDocids(l.Word, r.Word, prox)
			if err != nil {
				return nil, wrapStorageErr(err, fmt.Sprintf("WordPairProximityDocids(%s,%s,%d)", l.Word, r.Word, prox))
			}
			if bm != nil {
				docids.Or(bm)
			}
		}
	}
	return docids, nil
}
