// Package ranker implements the ranking pipeline core: a stack of criteria
// composed over a query tree and an inverted-index facade, terminated by a
// fetcher that flattens buckets into a ranked document stream.
//
// The package is read-only over an already-built index (the Context
// interface); it never mutates postings, and it never decides a scoring
// formula beyond ordering by the configured criteria.
package ranker

import (
	"github.com/pkg/errors"

	"github.com/sourcegraph/rankstage/query"
)

// StructuralError is re-exported from the query package so callers of this
// package don't need to import query just to type-assert on it.
type StructuralError = query.StructuralError

// wrapStorageErr tags an error coming out of a Context call with the
// operation that produced it, in the style zoekt's internal/tracer uses
// github.com/pkg/errors to annotate I/O-adjacent failures.
func wrapStorageErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "ranker: %s", op)
}
