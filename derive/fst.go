// Package derive implements the word-derivations cache: the component that
// expands a query term into the dictionary words within a bounded edit
// distance (or sharing a prefix), memoized for the lifetime of one search.
//
// Fuzzy expansion is built on the same idea milli itself uses (an FST-backed
// dictionary intersected with a Levenshtein automaton), ported to the Go
// ecosystem's FST library, github.com/blevesearch/vellum.
package derive

import (
	"bytes"
	"sort"

	"github.com/blevesearch/vellum"
	"github.com/pkg/errors"
)

// Dictionary is an ordered finite-state set of UTF-8 words, used as the
// full word dictionary.
type Dictionary struct {
	fst *vellum.FST
}

// BuildDictionary constructs a Dictionary from an unordered word list.
func BuildDictionary(words []string) (*Dictionary, error) {
	sorted := make([]string, len(words))
	copy(sorted, words)
	sort.Strings(sorted)

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating FST builder")
	}

	last := ""
	first := true
	for _, w := range sorted {
		if !first && w == last {
			continue // FST construction requires strictly increasing keys
		}
		if err := builder.Insert([]byte(w), 0); err != nil {
			return nil, errors.Wrapf(err, "inserting %q into FST", w)
		}
		last = w
		first = false
	}
	if err := builder.Close(); err != nil {
		return nil, errors.Wrap(err, "closing FST builder")
	}

	fst, err := vellum.Load(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "loading built FST")
	}
	return &Dictionary{fst: fst}, nil
}

// Contains reports whether word is a member of the dictionary.
func (d *Dictionary) Contains(word string) (bool, error) {
	if d == nil || d.fst == nil {
		return false, nil
	}
	ok, err := d.fst.Contains([]byte(word))
	if err != nil {
		return false, errors.Wrapf(err, "FST membership test for %q", word)
	}
	return ok, nil
}

// FST exposes the underlying automaton for derivation walks.
func (d *Dictionary) FST() *vellum.FST {
	if d == nil {
		return nil
	}
	return d.fst
}
