package sqlite

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/warden/internal/rbac/store"
)

// column maps a store.Field onto SQL.
type column struct {
	expr     string
	text     bool // allows Contains
	nullable bool // Eq "" means IS NULL
	nocase   bool // compare case-insensitively on a BINARY column
}

// condFunc renders a condition that is not a plain column comparison.
type condFunc func(op store.Op, v any) (string, []any, error)

// table describes how a store.Spec is rendered for one aggregate.
type table struct {
	name    string
	columns map[store.Field]column
	special map[store.Field]condFunc
}

func (t table) where(spec store.Spec) (string, []any, error) {
	if len(spec.Where) == 0 {
		return "", nil, nil
	}

	parts := make([]string, 0, len(spec.Where))
	var args []any
	for _, c := range spec.Where {
		if fn, ok := t.special[c.Field]; ok {
			sql, a, err := fn(c.Op, c.Value)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			args = append(args, a...)
			continue
		}

		col, ok := t.columns[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("sqlite: %s cannot be filtered by %q", t.name, c.Field)
		}
		sql, a, err := col.cond(c.Op, c.Value)
		if err != nil {
			return "", nil, fmt.Errorf("sqlite: %s.%s: %w", t.name, c.Field, err)
		}
		parts = append(parts, sql)
		args = append(args, a...)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (c column) cond(op store.Op, v any) (string, []any, error) {
	collate := ""
	if c.nocase {
		collate = " COLLATE NOCASE"
	}

	switch op {
	case store.Eq, store.NotEq:
		if s, ok := v.(string); ok && s == "" && c.nullable {
			if op == store.Eq {
				return c.expr + " IS NULL", nil, nil
			}
			return c.expr + " IS NOT NULL", nil, nil
		}
		cmp := " = ?"
		if op == store.NotEq {
			cmp = " <> ?"
		}
		return c.expr + cmp + collate, []any{sqlValue(v)}, nil

	case store.Contains:
		s, ok := v.(string)
		if !c.text || !ok {
			return "", nil, fmt.Errorf("contains needs a text column and a string value")
		}
		return c.expr + ` LIKE ? ESCAPE '\'`, []any{"%" + escapeLike(s) + "%"}, nil

	case store.In:
		ids, ok := v.([]string)
		if !ok {
			return "", nil, fmt.Errorf("in needs a []string value")
		}
		if len(ids) == 0 {
			return "0", nil, nil
		}
		return c.expr + collate + " IN (" + placeholders(len(ids)) + ")", stringArgs(ids), nil
	}
	return "", nil, fmt.Errorf("unsupported operator %d", op)
}

// linkCond renders a filter on a join table as an EXISTS subquery, e.g.
// users holding a role.
func linkCond(link, ownerCol, ownerExpr, targetCol string) condFunc {
	return func(op store.Op, v any) (string, []any, error) {
		base := "SELECT 1 FROM " + link + " l WHERE l." + ownerCol + " = " + ownerExpr + " AND l." + targetCol
		switch op {
		case store.Eq:
			return "EXISTS (" + base + " = ?)", []any{sqlValue(v)}, nil
		case store.NotEq:
			return "NOT EXISTS (" + base + " = ?)", []any{sqlValue(v)}, nil
		case store.In:
			ids, ok := v.([]string)
			if !ok {
				return "", nil, fmt.Errorf("sqlite: %s in needs a []string value", link)
			}
			if len(ids) == 0 {
				return "0", nil, nil
			}
			return "EXISTS (" + base + " IN (" + placeholders(len(ids)) + "))", stringArgs(ids), nil
		}
		return "", nil, fmt.Errorf("sqlite: unsupported operator %d on %s", op, link)
	}
}

func (t table) orderBy(spec store.Spec) (string, error) {
	terms := make([]string, 0, len(spec.Order)+1)
	for _, s := range spec.Order {
		col, ok := t.columns[s.Field]
		if !ok {
			return "", fmt.Errorf("sqlite: %s cannot be ordered by %q", t.name, s.Field)
		}
		term := col.expr
		if col.text {
			term += " COLLATE NOCASE"
		}
		if s.Desc {
			term += " DESC"
		}
		terms = append(terms, term)
	}
	// ids are ULIDs, so the tie-breaker is creation order
	terms = append(terms, t.name+".id")
	return " ORDER BY " + strings.Join(terms, ", "), nil
}

func limitClause(spec store.Spec) string {
	if spec.Limit <= 0 {
		if spec.Offset > 0 {
			return " LIMIT -1 OFFSET " + strconv.Itoa(spec.Offset)
		}
		return ""
	}
	return " LIMIT " + strconv.Itoa(spec.Limit) + " OFFSET " + strconv.Itoa(max(spec.Offset, 0))
}

// selectQuery renders SELECT cols FROM t with the spec's filter, order and
// paging.
func (t table) selectQuery(cols string, spec store.Spec) (string, []any, error) {
	where, args, err := t.where(spec)
	if err != nil {
		return "", nil, err
	}
	order, err := t.orderBy(spec)
	if err != nil {
		return "", nil, err
	}
	return "SELECT " + cols + " FROM " + t.name + where + order + limitClause(spec), args, nil
}

func (t table) countQuery(spec store.Spec) (string, []any, error) {
	where, args, err := t.where(spec)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + t.name + where, args, nil
}

func (t table) existsQuery(spec store.Spec) (string, []any, error) {
	where, args, err := t.where(spec)
	if err != nil {
		return "", nil, err
	}
	return "SELECT EXISTS (SELECT 1 FROM " + t.name + where + ")", args, nil
}

// firstSpec keeps filter, order and offset but reads one row.
func firstSpec(spec store.Spec) store.Spec {
	spec.Limit = 1
	return spec
}

func sqlValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case time.Time:
		return toMillis(x)
	}
	return v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
