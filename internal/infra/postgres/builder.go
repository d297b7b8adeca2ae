package postgres

import (
	"fmt"
	"strings"
)

// whereBuilder accumulates WHERE predicates with positional parameters.
// Predicates render in append order and arguments bind in the same order,
// so clause text and args slice always stay aligned.
type whereBuilder struct {
	conditions []string
	args       []any
}

// add appends one predicate. expr is a fmt format string whose %d verbs
// receive the positional parameter numbers for values, in order.
func (b *whereBuilder) add(expr string, values ...any) {
	positions := make([]any, len(values))
	for i := range values {
		positions[i] = len(b.args) + i + 1
	}
	b.conditions = append(b.conditions, fmt.Sprintf(expr, positions...))
	b.args = append(b.args, values...)
}

// clause renders " WHERE ..." or the empty string.
func (b *whereBuilder) clause() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conditions, " AND ")
}

// bind reserves the next positional parameter for value and returns its
// placeholder, for use outside the WHERE clause (LIMIT/OFFSET).
func (b *whereBuilder) bind(value any) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}
