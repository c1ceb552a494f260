// Package filter holds the list-query helpers shared by the entity repositories.
package filter

import (
	"strings"

	"github.com/uptrace/bun"
)

// MaxLimit caps page sizes requested by callers.
const MaxLimit = 500

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Contains turns a search term into a lowercase LIKE pattern, escaping wildcards with '!'.
func Contains(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}

// Search restricts q to rows where any of cols contains term, ignoring case.
// cols are code-controlled column expressions.
func Search(q *bun.SelectQuery, term string, cols ...string) *bun.SelectQuery {
	if strings.TrimSpace(term) == "" || len(cols) == 0 {
		return q
	}
	pattern := Contains(term)
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, col := range cols {
			q = q.WhereOr("LOWER(?) LIKE ? ESCAPE '!'", bun.Safe(col), pattern)
		}
		return q
	})
}

// Order applies the sort registered under key, or fallback when key is unknown.
// A leading '-' on key selects the descending variant.
func Order(q *bun.SelectQuery, key string, sorts map[string]string, fallback ...string) *bun.SelectQuery {
	desc := strings.HasPrefix(key, "-")
	col, ok := sorts[strings.TrimPrefix(key, "-")]
	if !ok {
		for _, expr := range fallback {
			q = q.OrderExpr(expr)
		}
		return q
	}
	dir := " ASC"
	if desc {
		dir = " DESC"
	}
	return q.OrderExpr(col + dir)
}

// Page applies limit and offset; a non-positive limit leaves the query unbounded
// and ignores offset.
func Page(q *bun.SelectQuery, limit, offset int) *bun.SelectQuery {
	if limit <= 0 {
		return q
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	q = q.Limit(limit)
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}
