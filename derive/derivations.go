package derive

import (
	"sync"

	"github.com/blevesearch/vellum"
	"github.com/blevesearch/vellum/levenshtein"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sourcegraph/rankstage/log"
)

var derivationsLog = log.Scoped("derive")

// Derivation is one dictionary word within the requested edit distance (or
// prefix) of a query term, together with the number of edits it actually
// took to reach it.
type Derivation struct {
	Word      string
	TypoCount uint8
}

// key is the cache key: a (word, prefix, maxTypos) triple, matching milli's
// WordDerivationsCache exactly so collisions are impossible by construction
// (no stringly-typed key).
type key struct {
	word     string
	prefix   bool
	maxTypos uint8
}

// Cache memoizes word derivations against a dictionary FST for the duration
// of one search. Population is single-writer; many goroutines may read
// concurrently (e.g. while resolving independent Or branches in parallel).
type Cache struct {
	mu      sync.RWMutex
	entries map[key][]Derivation

	buildersMu sync.Mutex
	builders   map[uint8]*levenshtein.LevenshteinAutomatonBuilder
}

// NewCache returns an empty, ready-to-use derivations cache.
func NewCache() *Cache {
	return &Cache{
		entries:  make(map[key][]Derivation),
		builders: make(map[uint8]*levenshtein.LevenshteinAutomatonBuilder),
	}
}

// Derivations returns the dictionary derivations of word for the given
// prefix flag and typo budget, populating the cache on a miss. maxTypos is
// clamped to 2; bounds violations are tolerated, not rejected. With prefix
// and maxTypos 0 it returns every dictionary word starting with word. With
// maxTypos > 0 the prefix flag does not widen the match: only whole
// dictionary words within maxTypos edits of word are returned.
func (c *Cache) Derivations(dict *Dictionary, word string, prefix bool, maxTypos uint8) ([]Derivation, error) {
	if maxTypos > 2 {
		derivationsLog.Warn("clamping max_typos to 2", zap.String("word", word), zap.Uint8("requested", maxTypos))
		metricMaxTyposClampedTotal.Inc()
		maxTypos = 2
	}
	k := key{word: word, prefix: prefix, maxTypos: maxTypos}

	c.mu.RLock()
	if hit, ok := c.entries[k]; ok {
		c.mu.RUnlock()
		metricCacheHitTotal.Inc()
		return hit, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check: another goroutine may have populated this key while we
	// waited for the write lock.
	if hit, ok := c.entries[k]; ok {
		metricCacheHitTotal.Inc()
		return hit, nil
	}

	metricCacheMissTotal.Inc()
	derivationsLog.Debug("word-derivations cache miss, walking FST",
		zap.String("word", word), zap.Bool("prefix", prefix), zap.Uint8("max_typos", maxTypos))
	derivations, err := c.computeDerivations(dict, word, prefix, maxTypos)
	if err != nil {
		return nil, err
	}
	c.entries[k] = derivations
	return derivations, nil
}

func (c *Cache) computeDerivations(dict *Dictionary, word string, prefix bool, maxTypos uint8) ([]Derivation, error) {
	fst := dict.FST()
	if fst == nil {
		return nil, nil
	}

	var it *vellum.FSTIterator
	var err error
	if prefix && maxTypos == 0 {
		// Every dictionary word in the key range [word, end), end being word
		// with its last byte below 0xff incremented (nil: no upper bound).
		var end []byte
		for i := len(word) - 1; i >= 0; i-- {
			if word[i] < 0xff {
				end = append([]byte(word[:i]), word[i]+1)
				break
			}
		}
		it, err = fst.Iterator([]byte(word), end)
	} else {
		builder, berr := c.automatonBuilder(maxTypos)
		if berr != nil {
			return nil, berr
		}
		dfa, derr := builder.BuildDfa(word, maxTypos)
		if derr != nil {
			return nil, errors.Wrapf(derr, "building levenshtein automaton for %q (radius %d)", word, maxTypos)
		}
		it, err = fst.Search(dfa, nil, nil)
	}
	var derivations []Derivation
	for err == nil {
		k, _ := it.Current()
		derivations = append(derivations, Derivation{
			Word:      string(k),
			TypoCount: editDistance(word, string(k), maxTypos),
		})
		err = it.Next()
	}
	if err != nil && err != vellum.ErrIteratorDone {
		return nil, errors.Wrapf(err, "walking FST for %q", word)
	}
	return derivations, nil
}

// automatonBuilder returns the memoized Levenshtein automaton builder for
// the given radius. Transpositions are not given a cost of one, so the
// automaton uses the same plain edit distance that editDistance reports.
func (c *Cache) automatonBuilder(maxTypos uint8) (*levenshtein.LevenshteinAutomatonBuilder, error) {
	c.buildersMu.Lock()
	defer c.buildersMu.Unlock()
	if b, ok := c.builders[maxTypos]; ok {
		return b, nil
	}
	b, err := levenshtein.NewLevenshteinAutomatonBuilder(maxTypos, false)
	if err != nil {
		return nil, errors.Wrapf(err, "building levenshtein automaton builder (radius %d)", maxTypos)
	}
	c.builders[maxTypos] = b
	return b, nil
}

// editDistance is a small Levenshtein distance helper used only to report
// TypoCount alongside a derivation; the automaton already guarantees the
// match is within maxTypos, this simply recovers the exact count for
// downstream typo-level bucketing.
func editDistance(a, b string, cap uint8) uint8 {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	d := prev[lb]
	if d > int(cap) {
		return cap
	}
	return uint8(d)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
