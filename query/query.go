// Copyright 2016 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package query implements the query-tree data model consumed by the
// ranking pipeline: a recursive algebraic expression of And/Or/Consecutive
// combinators over leaf term queries. The package has no knowledge of any
// storage backend; resolving a tree into document candidates is the
// responsibility of the ranker package.
package query

import (
	"fmt"
	"strings"
)

// Operation is a node in a query tree. Every node knows how to print
// itself; Map reaches the combinators' Children through a type switch so
// that it can rewrite a tree generically.
type Operation interface {
	String() string
}

// And is matched when every child is. The resolver folds And children by
// intersection, smallest bitmap first.
type And struct {
	Children []Operation
}

func NewAnd(ops ...Operation) *And { return &And{Children: ops} }

func (a *And) String() string {
	return fmt.Sprintf("AND[%s]", joinStrings(a.Children))
}

// Or is matched when any child is. DedupSubderivations hints to the
// resolver that children are expected to share sub-derivations (e.g. typo
// variants of the same base word) and that a resolver cache lookup is
// worth attempting before resolving a child from scratch. The ranker's
// resolver does not read the flag: it resolves every child and unions the
// results either way.
type Or struct {
	DedupSubderivations bool
	Children            []Operation
}

func NewOr(dedup bool, ops ...Operation) *Or {
	return &Or{DedupSubderivations: dedup, Children: ops}
}

func (o *Or) String() string {
	return fmt.Sprintf("OR[%s]", joinStrings(o.Children))
}

// Consecutive is a positional conjunction: every adjacent pair of its
// children must co-occur at proximity 1. Every child must be a *Query leaf;
// anything else is a structural error caught by Validate.
type Consecutive struct {
	Children []Operation
}

func NewConsecutive(ops ...Operation) *Consecutive {
	return &Consecutive{Children: ops}
}

func (c *Consecutive) String() string {
	return fmt.Sprintf("CONSECUTIVE[%s]", joinStrings(c.Children))
}

// QueryKind distinguishes an exact dictionary lookup from a typo-tolerant
// one. Exactly one of the two constructors below should be used.
type QueryKind struct {
	tolerant bool
	word     string
	maxTypos uint8
}

// Exact builds a QueryKind for a word looked up verbatim (modulo prefix
// expansion, which is controlled separately by Query.Prefix).
func Exact(word string) QueryKind {
	return QueryKind{word: word}
}

// Tolerant builds a QueryKind accepting derivations of word within maxTypos
// edits. maxTypos is clamped to 2 (bounds violations are tolerated, not
// rejected).
func Tolerant(word string, maxTypos uint8) QueryKind {
	if maxTypos > 2 {
		maxTypos = 2
	}
	return QueryKind{tolerant: true, word: word, maxTypos: maxTypos}
}

func (k QueryKind) IsTolerant() bool { return k.tolerant }
func (k QueryKind) Word() string     { return k.word }
func (k QueryKind) MaxTypos() uint8  { return k.maxTypos }

func (k QueryKind) String() string {
	if k.tolerant {
		return fmt.Sprintf("%s~%d", k.word, k.maxTypos)
	}
	return k.word
}

// Query is a leaf: a single term with an optional prefix flag.
type Query struct {
	Prefix bool
	Kind   QueryKind
}

func NewQuery(kind QueryKind, prefix bool) *Query {
	return &Query{Prefix: prefix, Kind: kind}
}

func (q *Query) String() string {
	if q.Prefix {
		return fmt.Sprintf("%s*", q.Kind)
	}
	return q.Kind.String()
}

func joinStrings(ops []Operation) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, ", ")
}

// Map rewrites op bottom-up: f is applied to every child first, then to
// the (possibly rewritten) node itself. Leaves are passed to f unchanged.
// Mirrors the tree-rewriting idiom used for zoekt's query.Q trees.
func Map(op Operation, f func(Operation) Operation) Operation {
	switch v := op.(type) {
	case *And:
		children := make([]Operation, len(v.Children))
		for i, c := range v.Children {
			children[i] = Map(c, f)
		}
		op = &And{Children: children}
	case *Or:
		children := make([]Operation, len(v.Children))
		for i, c := range v.Children {
			children[i] = Map(c, f)
		}
		op = &Or{DedupSubderivations: v.DedupSubderivations, Children: children}
	case *Consecutive:
		children := make([]Operation, len(v.Children))
		for i, c := range v.Children {
			children[i] = Map(c, f)
		}
		op = &Consecutive{Children: children}
	}
	return f(op)
}

// VisitLeaves calls v on every *Query leaf reachable from op.
func VisitLeaves(op Operation, v func(*Query)) {
	Map(op, func(o Operation) Operation {
		if q, ok := o.(*Query); ok {
			v(q)
		}
		return o
	})
}
