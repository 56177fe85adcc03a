package memindex

import (
	"math/rand"

	"github.com/RoaringBitmap/roaring"

	"github.com/sourcegraph/rankstage/ranker"
)

// NewFixture reproduces the reference test index from the original ranking
// engine's own test suite: the same thirteen-word dictionary, the same
// {h, wor, 20} prefix cache, and the same hand-picked pair-proximity
// postings (good/morning, hello/world, hello/word, is/this + 2020/2021,
// word|world/split, split/ngrams), so the documented ranking scenarios are
// literal, reproducible test cases here.
//
// Posting lists are seeded pseudo-random bitmaps of the same cardinality
// as the original (hello 1500, hi 4000, word 2500, ...); only the set
// *relationships* the original derives from them (pair intersections,
// prefix unions) are semantically load-bearing, and those are recomputed
// here with the same roaring.Bitmap set algebra rather than copied values.
func NewFixture() (*Index, error) {
	rng := rand.New(rand.NewSource(102))

	word := func(n int) *roaring.Bitmap {
		values := make([]uint32, n)
		seen := make(map[uint32]bool, n)
		for i := 0; i < n; {
			v := rng.Uint32()
			if seen[v] {
				continue
			}
			seen[v] = true
			values[i] = v
			i++
		}
		bm := roaring.New()
		bm.AddMany(values)
		return bm
	}

	wordDocids := map[string]*roaring.Bitmap{
		"hello":   word(1500),
		"hi":      word(4000),
		"word":    word(2500),
		"split":   word(400),
		"ngrams":  word(1400),
		"world":   word(15000),
		"earth":   word(8000),
		"2021":    word(100),
		"2020":    word(500),
		"is":      word(50000),
		"this":    word(50000),
		"good":    word(1250),
		"morning": word(125),
	}

	b := NewBuilder([]ranker.CriterionName{
		ranker.WordsName(),
		ranker.TypoName(),
		ranker.ProximityName(),
	})
	for w, docs := range wordDocids {
		b.AddWordDocids(w, docs)
	}

	b.AddWordPrefixDocids("h", roaring.Or(wordDocids["hello"], wordDocids["hi"]))
	b.AddWordPrefixDocids("wor", roaring.Or(wordDocids["word"], wordDocids["world"]))
	b.AddWordPrefixDocids("20", roaring.Or(wordDocids["2020"], wordDocids["2021"]))

	helloWorld := roaring.And(wordDocids["hello"], wordDocids["world"])
	helloWorld1, helloWorld2 := splitInHalf(helloWorld)

	helloWord := roaring.And(wordDocids["hello"], wordDocids["word"])
	helloWord4, helloWord67 := splitInHalf(helloWord)
	helloWord6, helloWord7 := splitInHalf(helloWord67)

	thisIs := roaring.And(wordDocids["this"], wordDocids["is"])
	is2021 := roaring.And(thisIs, wordDocids["2021"])
	is2020 := roaring.And(thisIs, roaring.AndNot(wordDocids["2020"], wordDocids["2021"]))

	splitNgrams := roaring.And(wordDocids["split"], wordDocids["ngrams"])
	splitNgrams3 := roaring.AndNot(splitNgrams, wordDocids["word"])
	splitNgrams5 := roaring.And(splitNgrams, wordDocids["word"])

	thisSplitNgrams := roaring.And(roaring.And(wordDocids["split"], wordDocids["this"]), wordDocids["ngrams"])
	thisNgrams1 := roaring.AndNot(thisSplitNgrams, wordDocids["word"])
	thisNgrams2 := roaring.And(thisSplitNgrams, wordDocids["word"])

	b.AddWordPairProximityDocids("good", "morning", 1, roaring.And(wordDocids["good"], wordDocids["morning"]))
	b.AddWordPairProximityDocids("hello", "world", 1, helloWorld1)
	b.AddWordPairProximityDocids("hello", "world", 4, helloWorld2)
	b.AddWordPairProximityDocids("this", "is", 1, thisIs)
	b.AddWordPairProximityDocids("is", "2021", 1, is2021)
	b.AddWordPairProximityDocids("is", "2020", 1, is2020)
	b.AddWordPairProximityDocids("this", "2021", 2, is2021)
	b.AddWordPairProximityDocids("this", "2020", 2, is2020)
	b.AddWordPairProximityDocids("word", "split", 1, roaring.And(wordDocids["word"], wordDocids["split"]))
	b.AddWordPairProximityDocids("world", "split", 1, roaring.AndNot(roaring.And(wordDocids["world"], wordDocids["split"]), wordDocids["word"]))
	b.AddWordPairProximityDocids("hello", "word", 4, helloWord4)
	b.AddWordPairProximityDocids("hello", "word", 6, helloWord6)
	b.AddWordPairProximityDocids("hello", "word", 7, helloWord7)
	b.AddWordPairProximityDocids("split", "ngrams", 3, splitNgrams3)
	b.AddWordPairProximityDocids("split", "ngrams", 5, splitNgrams5)
	b.AddWordPairProximityDocids("this", "ngrams", 1, thisNgrams1)
	b.AddWordPairProximityDocids("this", "ngrams", 2, thisNgrams2)

	b.AddWordPrefixPairProximityDocids("hello", "wor", 1, helloWorld1)
	b.AddWordPrefixPairProximityDocids("hello", "wor", 4, roaring.Or(helloWorld2, helloWord4))
	b.AddWordPrefixPairProximityDocids("hello", "wor", 6, helloWord6)
	b.AddWordPrefixPairProximityDocids("hello", "wor", 7, helloWord7)
	b.AddWordPrefixPairProximityDocids("is", "20", 1, roaring.Or(is2020, is2021))
	b.AddWordPrefixPairProximityDocids("this", "20", 2, roaring.Or(is2020, is2021))

	return b.Finalize()
}

// splitInHalf partitions bm's members in iteration order into two disjoint
// halves, mirroring the original fixture's hello_world_split/hello_word
// bisection used to manufacture two distinct proximity buckets out of one
// intersection.
func splitInHalf(bm *roaring.Bitmap) (*roaring.Bitmap, *roaring.Bitmap) {
	all := bm.ToArray()
	mid := len(all) / 2
	first := roaring.New()
	first.AddMany(all[:mid])
	second := roaring.New()
	second.AddMany(all[mid:])
	return first, second
}
