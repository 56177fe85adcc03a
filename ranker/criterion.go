package ranker

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/sourcegraph/rankstage/derive"
	"github.com/sourcegraph/rankstage/query"
)

// CriterionName identifies one ranking rule in the configured pipeline
// order. Asc/Desc carry the facet field they sort on.
type CriterionName struct {
	Kind  CriterionKind
	Field string // only meaningful for KindAsc / KindDesc
}

type CriterionKind int

const (
	KindTypo CriterionKind = iota
	KindWords
	KindProximity
	KindAsc
	KindDesc
)

func TypoName() CriterionName             { return CriterionName{Kind: KindTypo} }
func WordsName() CriterionName            { return CriterionName{Kind: KindWords} }
func ProximityName() CriterionName        { return CriterionName{Kind: KindProximity} }
func AscName(field string) CriterionName  { return CriterionName{Kind: KindAsc, Field: field} }
func DescName(field string) CriterionName { return CriterionName{Kind: KindDesc, Field: field} }

// Criterion is one ranking rule in the pipeline. Each wraps a parent (or, at
// the bottom of the stack, owns the seed query tree/candidates directly)
// and produces buckets on demand. Implementations follow a
// Fresh -> Iterating -> Drained state machine.
type Criterion interface {
	// Next pulls the next bucket from this criterion, recursing into the
	// parent when this criterion's current level is exhausted. A nil
	// result with a nil error means the criterion (and everything below
	// it) is drained.
	Next(wdcache *derive.Cache) (*CriterionResult, error)
}

// CriterionResult is the bucket envelope passed down the pipeline.
type CriterionResult struct {
	// QueryTree is the possibly-narrowed tree for downstream criteria to
	// resolve further. Nil means "no textual constraint": downstream must
	// rely on Candidates alone.
	QueryTree query.Operation

	// Candidates is the allowed-subset downstream criteria may emit from.
	// Nil means downstream computes its own candidates from QueryTree.
	Candidates *roaring.Bitmap

	// BucketCandidates is the label propagated from the initial criterion
	// identifying which bucket of the topmost criterion these documents
	// belong to.
	BucketCandidates *roaring.Bitmap
}

// Candidates is the per-criterion restriction policy: Allowed
// narrows emission to a subset, Forbidden excludes a subset. The zero value
// is Forbidden(∅), matching the documented default.
type Candidates struct {
	allowed bool
	set     *roaring.Bitmap
}

// Allowed restricts emission to members of set.
func Allowed(set *roaring.Bitmap) Candidates {
	return Candidates{allowed: true, set: set}
}

// Forbidden excludes members of set from emission.
func Forbidden(set *roaring.Bitmap) Candidates {
	return Candidates{allowed: false, set: set}
}

// DefaultCandidates is Forbidden(∅): nothing is excluded.
func DefaultCandidates() Candidates {
	return Forbidden(roaring.New())
}

// Apply restricts docids according to the policy, returning a new bitmap.
func (c Candidates) Apply(docids *roaring.Bitmap) *roaring.Bitmap {
	if c.set == nil {
		if !c.allowed {
			return docids.Clone()
		}
		return roaring.New()
	}
	if !c.allowed {
		return roaring.AndNot(docids, c.set)
	}
	return roaring.And(docids, c.set)
}

// IntoInner returns the underlying set regardless of policy, matching
// milli's Candidates::into_inner escape hatch for callers that already
// know which policy they're unwrapping.
func (c Candidates) IntoInner() *roaring.Bitmap {
	if c.set == nil {
		return roaring.New()
	}
	return c.set
}
