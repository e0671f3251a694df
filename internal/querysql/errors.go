package querysql

import "fmt"

// UnsupportedExpressionError reports a predicate or comparator node that is
// neither atomic nor combined reaching the renderer. This is a contract
// violation: the optimizer only renders trees that passed eligibility, so the
// renderer panics with this error instead of returning it.
type UnsupportedExpressionError struct {
	Node any
}

func (e *UnsupportedExpressionError) Error() string {
	if e.Node == nil {
		return "unsupported expression: <nil>"
	}
	return fmt.Sprintf("unsupported expression: %T", e.Node)
}
