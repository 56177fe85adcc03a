package ranker

import (
	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/log"
	"github.com/sourcegraph/rankstage/query"
)

var builderLog = log.Scoped("builder")

// CriteriaBuilder assembles a criterion pipeline from a Context's
// configured, ordered CriterionName list. The first
// recognized name becomes the initial criterion, seeded with the query
// tree itself and any starting candidates; every later recognized name
// wraps the one before it.
type CriteriaBuilder struct {
	ctx   Context
	cache *ResolverCache
}

func NewCriteriaBuilder(ctx Context) *CriteriaBuilder {
	return &CriteriaBuilder{ctx: ctx, cache: NewResolverCache()}
}

// Build seeds the initial criterion with tree itself and facetFilter (if
// given) as its starting candidates, then stacks the configured criteria on
// top. It does NOT pre-resolve tree into a bitmap here: doing so would hand
// the initial criterion the tightest possible match for the whole query (an
// And's full intersection, a Consecutive's proximity-1 pair) as its bound,
// and every criterion that degrades below a full match — Words dropping
// conjuncts, Proximity relaxing its distance — would have nowhere looser to
// go. An absent seed candidates set means unrestricted (every document in
// the index), exactly as facetFilter == nil means "no facet filter". An
// unrecognized CriterionKind is skipped with a Warn log, never an error: at the initial position
// the next recognized name becomes initial instead; at a wrapping position
// the pipeline simply passes through unchanged.
func (b *CriteriaBuilder) Build(tree query.Operation, facetFilter *roaring.Bitmap, wdcache *derive.Cache) (*Fetcher, error) {
	seedCandidates := facetFilter

	var top Criterion
	for _, name := range b.ctx.Criteria() {
		if top == nil {
			top = b.buildInitial(name, tree, seedCandidates)
			continue
		}
		if wrapped := b.wrap(name, top); wrapped != nil {
			top = wrapped
		}
	}
	if top == nil {
		top = newInitialCriterion(b.ctx, tree, seedCandidates)
	}
	return NewFetcher(top, nil), nil
}

// initialCriterion is the pipeline milli's CriteriaBuilder::build falls
// back to when the context configures no criteria at all: it emits the
// tree's matches within the seed candidate pool as a single bucket
// (matching Fetcher::initial), rather than reaching for some arbitrary
// ranking criterion to do work nothing asked it to do.
type initialCriterion struct {
	ctx        Context
	tree       query.Operation
	candidates *roaring.Bitmap
	done       bool
}

func newInitialCriterion(ctx Context, tree query.Operation, candidates *roaring.Bitmap) *initialCriterion {
	return &initialCriterion{ctx: ctx, tree: tree, candidates: candidates}
}

func (i *initialCriterion) Next(wdcache *derive.Cache) (*CriterionResult, error) {
	if i.done {
		return nil, nil
	}
	i.done = true
	pool, err := poolFor(i.ctx, i.candidates)
	if err != nil {
		return nil, err
	}
	if i.tree != nil {
		resolved, err := ResolveQueryTree(i.ctx, i.tree, NewResolverCache(), wdcache)
		if err != nil {
			return nil, err
		}
		pool.And(resolved)
	}
	return &CriterionResult{
		QueryTree:        i.tree,
		Candidates:       pool,
		BucketCandidates: pool,
	}, nil
}

func (b *CriteriaBuilder) buildInitial(name CriterionName, tree query.Operation, candidates *roaring.Bitmap) Criterion {
	switch name.Kind {
	case KindTypo:
		return NewTypo(b.ctx, b.cache, tree, candidates)
	case KindWords:
		return NewWords(b.ctx, b.cache, tree, candidates)
	case KindProximity:
		return NewProximity(b.ctx, b.cache, tree, candidates)
	case KindAsc:
		return NewAscDesc(b.ctx, b.cache, tree, candidates, name.Field, false)
	case KindDesc:
		return NewAscDesc(b.ctx, b.cache, tree, candidates, name.Field, true)
	default:
		builderLog.Warn("skipping unrecognized criterion name at initial position", zap.Int("kind", int(name.Kind)))
		return nil
	}
}

func (b *CriteriaBuilder) wrap(name CriterionName, parent Criterion) Criterion {
	switch name.Kind {
	case KindTypo:
		return WrapTypo(b.ctx, b.cache, parent)
	case KindWords:
		return WrapWords(b.ctx, b.cache, parent)
	case KindProximity:
		return WrapProximity(b.ctx, b.cache, parent)
	case KindAsc:
		return WrapAscDesc(b.ctx, b.cache, parent, name.Field, false)
	case KindDesc:
		return WrapAscDesc(b.ctx, b.cache, parent, name.Field, true)
	default:
		builderLog.Warn("skipping unrecognized criterion name, passing parent through", zap.Int("kind", int(name.Kind)))
		return nil
	}
}
