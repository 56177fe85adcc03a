package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestStringFormatting(t *testing.T) {
	tree := NewAnd(
		NewQuery(Exact("hello"), false),
		NewOr(true, NewQuery(Tolerant("wrld", 2), false), NewQuery(Exact("world"), true)),
	)
	got := tree.String()
	want := "AND[hello, OR[wrld~2, world*]]"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestTolerantClampsMaxTypos(t *testing.T) {
	k := Tolerant("hello", 9)
	if k.MaxTypos() != 2 {
		t.Fatalf("MaxTypos() = %d, want clamped to 2", k.MaxTypos())
	}
}

func TestValidateRejectsNonLeafInConsecutive(t *testing.T) {
	bad := NewConsecutive(
		NewQuery(Exact("good"), false),
		NewAnd(NewQuery(Exact("morning"), false)),
	)
	err := Validate(bad)
	if err == nil {
		t.Fatal("expected structural error, got nil")
	}
	if _, ok := err.(*StructuralError); !ok {
		t.Fatalf("err = %T, want *StructuralError", err)
	}
}

func TestValidateAcceptsLeafOnlyConsecutive(t *testing.T) {
	good := NewConsecutive(
		NewQuery(Exact("good"), false),
		NewQuery(Exact("morning"), false),
	)
	if err := Validate(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVisitLeavesCoversAllNodes(t *testing.T) {
	tree := NewAnd(
		NewQuery(Exact("a"), false),
		NewOr(false, NewQuery(Exact("b"), false), NewQuery(Exact("c"), false)),
		NewConsecutive(NewQuery(Exact("d"), false), NewQuery(Exact("e"), false)),
	)

	var words []string
	VisitLeaves(tree, func(q *Query) { words = append(words, q.Kind.Word()) })

	want := []string{"a", "b", "c", "d", "e"}
	if diff := cmp.Diff(want, words, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("VisitLeaves words mismatch (-want +got):\n%s", diff)
	}
}

func TestMapRewritesPreservesShape(t *testing.T) {
	tree := NewAnd(NewQuery(Exact("a"), false), NewQuery(Exact("b"), false))
	rewritten := Map(tree, func(o Operation) Operation { return o })
	if rewritten.String() != tree.String() {
		t.Fatalf("Map identity rewrite changed tree: %q != %q", rewritten.String(), tree.String())
	}
}
