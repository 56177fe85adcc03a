package derive

import (
	"sort"
	"testing"
)

var fixtureWords = []string{
	"hello", "hi", "word", "split", "ngrams", "world", "earth",
	"2021", "2020", "is", "this", "good", "morning",
}

func words(ds []Derivation) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Word
	}
	sort.Strings(out)
	return out
}

func TestExactDerivationIsSingleWord(t *testing.T) {
	dict, err := BuildDictionary(fixtureWords)
	if err != nil {
		t.Fatal(err)
	}
	cache := NewCache()
	got, err := cache.Derivations(dict, "hello", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if w := words(got); len(w) != 1 || w[0] != "hello" {
		t.Fatalf("Derivations(hello, false, 0) = %v, want [hello]", w)
	}
}

func TestPrefixDerivationExpandsToAllMatchingWords(t *testing.T) {
	dict, err := BuildDictionary(fixtureWords)
	if err != nil {
		t.Fatal(err)
	}
	cache := NewCache()
	got, err := cache.Derivations(dict, "h", true, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"hello", "hi"}
	if w := words(got); !equal(w, want) {
		t.Fatalf("Derivations(h, true, 0) = %v, want %v", w, want)
	}
}

func TestToleranceExpandsWithinEditDistance(t *testing.T) {
	dict, err := BuildDictionary(fixtureWords)
	if err != nil {
		t.Fatal(err)
	}
	cache := NewCache()
	got, err := cache.Derivations(dict, "wordl", false, 1)
	if err != nil {
		t.Fatal(err)
	}
	w := words(got)
	if !contains(w, "word") {
		t.Fatalf("Derivations(wordl, false, 1) = %v, want to contain word", w)
	}
}

func TestDerivationIdempotentAcrossCacheWarmth(t *testing.T) {
	dict, err := BuildDictionary(fixtureWords)
	if err != nil {
		t.Fatal(err)
	}
	cache := NewCache()
	first, err := cache.Derivations(dict, "h", true, 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.Derivations(dict, "h", true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !equal(words(first), words(second)) {
		t.Fatalf("cache-cold result %v differs from cache-warm result %v", words(first), words(second))
	}
}

func TestMaxTyposClampedToTwo(t *testing.T) {
	dict, err := BuildDictionary(fixtureWords)
	if err != nil {
		t.Fatal(err)
	}
	cache := NewCache()
	got, err := cache.Derivations(dict, "hello", false, 9)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range got {
		if d.TypoCount > 2 {
			t.Fatalf("derivation %+v has typo count above clamp", d)
		}
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
