package ranker

import (
	"sort"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sync/errgroup"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/query"
)

// resolverCacheKey scopes a resolved bitmap to one (tree, proximity) pair
// within one ResolverCache. The tree
// is keyed by its String() form since query.Operation values aren't
// otherwise comparable.
type resolverCacheKey struct {
	tree string
	prox uint8
}

// ResolverCache memoizes the bitmap each ResolveQueryTree /
// ResolveQueryTreeAtProximity call resolves for its root tree, across every
// call that shares the cache (a CriteriaBuilder shares one among all the
// criteria it assembles). Subtrees and the pair-proximity resolver do not
// use it. It must not outlive one search invocation.
type ResolverCache struct {
	mu      sync.Mutex
	entries map[resolverCacheKey]*roaring.Bitmap
}

func NewResolverCache() *ResolverCache {
	return &ResolverCache{entries: make(map[resolverCacheKey]*roaring.Bitmap)}
}

func (c *ResolverCache) get(tree query.Operation, prox uint8) (*roaring.Bitmap, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[resolverCacheKey{tree: tree.String(), prox: prox}]
	return v, ok
}

func (c *ResolverCache) put(tree query.Operation, prox uint8, bm *roaring.Bitmap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[resolverCacheKey{tree: tree.String(), prox: prox}] = bm
}

// ResolveQueryTree turns a query tree into a candidate bitmap. It is a direct port of milli's resolve_operation: And folds by
// intersection smallest-bitmap-first, Or folds by union (independent
// children resolved concurrently), Consecutive intersects adjacent-pair
// proximity-1 postings, and Query leaves dispatch to queryDocids.
func ResolveQueryTree(ctx Context, tree query.Operation, cache *ResolverCache, wdcache *derive.Cache) (*roaring.Bitmap, error) {
	return resolveQueryTreeAtProximity(ctx, tree, 1, cache, wdcache)
}

// ResolveQueryTreeAtProximity is ResolveQueryTree but with every
// Consecutive node bounded at maxProx instead of the default 1. The
// Proximity criterion (proximity.go) uses this to progressively relax the
// positional constraint as it iterates p = 0, 1, 2, ....
func ResolveQueryTreeAtProximity(ctx Context, tree query.Operation, maxProx uint8, cache *ResolverCache, wdcache *derive.Cache) (*roaring.Bitmap, error) {
	return resolveQueryTreeAtProximity(ctx, tree, maxProx, cache, wdcache)
}

func resolveQueryTreeAtProximity(ctx Context, tree query.Operation, maxProx uint8, cache *ResolverCache, wdcache *derive.Cache) (*roaring.Bitmap, error) {
	start := time.Now()
	defer func() {
		metricResolveDuration.WithLabelValues(nodeLabel(tree)).Observe(time.Since(start).Seconds())
	}()

	if tree == nil {
		return roaring.New(), nil
	}
	if cached, ok := cache.get(tree, maxProx); ok {
		return cached.Clone(), nil
	}

	result, err := resolveOperation(ctx, tree, maxProx, cache, wdcache)
	if err != nil {
		return nil, err
	}
	cache.put(tree, maxProx, result.Clone())
	return result, nil
}

func nodeLabel(op query.Operation) string {
	switch op.(type) {
	case *query.And:
		return "and"
	case *query.Or:
		return "or"
	case *query.Consecutive:
		return "consecutive"
	case *query.Query:
		return "leaf"
	default:
		return "empty"
	}
}

func resolveOperation(ctx Context, op query.Operation, maxProx uint8, cache *ResolverCache, wdcache *derive.Cache) (*roaring.Bitmap, error) {
	switch v := op.(type) {
	case *query.And:
		return resolveAnd(ctx, v, maxProx, cache, wdcache)
	case *query.Or:
		return resolveOr(ctx, v, maxProx, cache, wdcache)
	case *query.Consecutive:
		return resolveConsecutive(ctx, v, maxProx, wdcache)
	case *query.Query:
		return queryDocids(ctx, v, wdcache)
	case nil:
		return roaring.New(), nil
	default:
		return nil, &StructuralError{Reason: "unknown query tree node type"}
	}
}

// resolveAnd resolves every child, then intersects starting from the
// smallest bitmap: intersecting with a small set first keeps intermediate
// bitmaps small (the same "smallest first" rationale milli's
// resolve_operation comments).
func resolveAnd(ctx Context, a *query.And, maxProx uint8, cache *ResolverCache, wdcache *derive.Cache) (*roaring.Bitmap, error) {
	resolved := make([]*roaring.Bitmap, len(a.Children))
	for i, child := range a.Children {
		bm, err := resolveOperation(ctx, child, maxProx, cache, wdcache)
		if err != nil {
			return nil, err
		}
		resolved[i] = bm
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].GetCardinality() < resolved[j].GetCardinality()
	})

	if len(resolved) == 0 {
		return roaring.New(), nil
	}
	candidates := resolved[0].Clone()
	for _, bm := range resolved[1:] {
		if candidates.IsEmpty() {
			break
		}
		candidates.And(bm)
	}
	return candidates, nil
}

// resolveOr resolves every child and unions the results. Independent
// children may be resolved in parallel when the storage-layer reader
// supports shared access; we always do so here since
// Context implementations are expected to be safe for concurrent reads.
func resolveOr(ctx Context, o *query.Or, maxProx uint8, cache *ResolverCache, wdcache *derive.Cache) (*roaring.Bitmap, error) {
	if len(o.Children) == 0 {
		return roaring.New(), nil
	}
	if len(o.Children) == 1 {
		return resolveOperation(ctx, o.Children[0], maxProx, cache, wdcache)
	}

	resolved := make([]*roaring.Bitmap, len(o.Children))
	var g errgroup.Group
	for i, child := range o.Children {
		i, child := i, child
		g.Go(func() error {
			bm, err := resolveOperation(ctx, child, maxProx, cache, wdcache)
			if err != nil {
				return err
			}
			resolved[i] = bm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := roaring.New()
	for _, bm := range resolved {
		candidates.Or(bm)
	}
	return candidates, nil
}

// resolveConsecutive walks adjacent leaf pairs; any empty pair collapses
// the whole node to empty. Validate should already have rejected non-leaf
// children before resolution reaches here, but we re-check defensively
// since ResolveQueryTree may be called directly by a criterion on a tree it
// narrowed itself.
func resolveConsecutive(ctx Context, c *query.Consecutive, maxProx uint8, wdcache *derive.Cache) (*roaring.Bitmap, error) {
	if len(c.Children) < 2 {
		if len(c.Children) == 1 {
			if leaf, ok := c.Children[0].(*query.Query); ok {
				return queryDocids(ctx, leaf, wdcache)
			}
		}
		return roaring.New(), nil
	}

	candidates := roaring.New()
	first := true
	for i := 0; i+1 < len(c.Children); i++ {
		left, ok1 := c.Children[i].(*query.Query)
		right, ok2 := c.Children[i+1].(*query.Query)
		if !ok1 || !ok2 {
			return nil, &StructuralError{Reason: "consecutive operation contains non-leaf child"}
		}

		pair, err := queryPairProximityDocids(ctx, left, right, maxProx, wdcache)
		if err != nil {
			return nil, err
		}
		if pair.IsEmpty() {
			return roaring.New(), nil
		}
		if first {
			// Clone: pair may be a bitmap owned by the Context's storage
			// (memindex clones its own getters, but queryPairProximityDocids
			// composes results from several such getters and a Context
			// implementation could still hand back a stored bitmap
			// directly). Mutating it via candidates.And below would
			// otherwise corrupt postings a later lookup in the same search
			// would see.
			candidates = pair.Clone()
			first = false
		} else {
			candidates.And(pair)
		}
	}
	return candidates, nil
}

// queryDocids resolves a single leaf.
func queryDocids(ctx Context, q *query.Query, wdcache *derive.Cache) (*roaring.Bitmap, error) {
	kind := q.Kind
	if !kind.IsTolerant() {
		word := kind.Word()
		if q.Prefix && ctx.InPrefixCache(word) {
			bm, err := ctx.WordPrefixDocids(word)
			if err != nil {
				return nil, wrapStorageErr(err, "WordPrefixDocids")
			}
			return orEmpty(bm), nil
		}
		if q.Prefix {
			return unionDerivations(ctx, wdcache, word, true, 0)
		}
		bm, err := ctx.WordDocids(word)
		if err != nil {
			return nil, wrapStorageErr(err, "WordDocids")
		}
		return orEmpty(bm), nil
	}

	return unionDerivations(ctx, wdcache, kind.Word(), q.Prefix, kind.MaxTypos())
}

func unionDerivations(ctx Context, wdcache *derive.Cache, word string, prefix bool, maxTypos uint8) (*roaring.Bitmap, error) {
	derivations, err := wdcache.Derivations(ctx.WordsFST(), word, prefix, maxTypos)
	if err != nil {
		return nil, wrapStorageErr(err, "Derivations")
	}
	docids := roaring.New()
	for _, d := range derivations {
		bm, err := ctx.WordDocids(d.Word)
		if err != nil {
			return nil, wrapStorageErr(err, "WordDocids")
		}
		if bm != nil {
			docids.Or(bm)
		}
	}
	return docids, nil
}

func orEmpty(bm *roaring.Bitmap) *roaring.Bitmap {
	if bm == nil {
		return roaring.New()
	}
	return bm
}
