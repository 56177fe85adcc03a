package query

import "fmt"

// StructuralError reports a malformed query tree, e.g. a Consecutive node
// whose children aren't all leaves. It is fatal: callers should surface it,
// never retry.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural query error: %s", e.Reason)
}

// Validate walks op and reports the first structural violation found.
// Currently this only checks that every Consecutive node's children are
// leaves.
func Validate(op Operation) error {
	var err error
	Map(op, func(o Operation) Operation {
		if err != nil {
			return o
		}
		if c, ok := o.(*Consecutive); ok {
			for _, child := range c.Children {
				if _, ok := child.(*Query); !ok {
					err = &StructuralError{
						Reason: fmt.Sprintf("consecutive operation contains non-leaf child %T", child),
					}
					return o
				}
			}
		}
		return o
	})
	return err
}
