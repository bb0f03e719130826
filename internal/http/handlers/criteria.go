package handlers

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/tbourn/go-todo-backend/internal/repo"
	"github.com/tbourn/go-todo-backend/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 1000
)

// parseCriteria turns list query parameters into a repo.Criteria.
//
//	<field>.<op>=<value>   filter, op is one of the repo.Op names
//	<field>=<value>        shorthand for <field>.equals
//	sort=<field>[,asc|desc] repeatable; earlier keys win
//	page=<n>&size=<n>      zero-based offset paging
//	after=<id>             keyset paging on the identity
//
// Field names are validated later, against the entity projection.
func parseCriteria(q url.Values) (*repo.Criteria, error) {
	c := &repo.Criteria{}

	// Sorted so predicate order is stable across identical requests.
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch k {
		case "page", "size", "after", "sort":
			continue
		}
		field, opName, dotted := strings.Cut(k, ".")
		op := repo.OpEquals
		if dotted {
			var ok bool
			if op, ok = repo.ParseOp(opName); !ok {
				return nil, &repo.InvalidCriteriaError{Field: field, Op: repo.Op(opName), Reason: "unsupported operator"}
			}
		}
		for _, v := range q[k] {
			c.Predicates = append(c.Predicates, repo.Predicate{Field: field, Op: op, Value: v})
		}
	}

	for _, s := range q["sort"] {
		field, dir, _ := strings.Cut(s, ",")
		o := repo.Order{Field: strings.TrimSpace(field)}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			o.Desc = true
		default:
			return nil, &repo.InvalidCriteriaError{Field: o.Field, Reason: "sort direction must be asc or desc"}
		}
		c.Sort = append(c.Sort, o)
	}

	page, err := parsePage(q)
	if err != nil {
		return nil, err
	}
	c.Page = page
	return c, nil
}

// parsePage returns nil when neither page, size nor after is present.
func parsePage(q url.Values) (*repo.Page, error) {
	if !q.Has("page") && !q.Has("size") && !q.Has("after") {
		return nil, nil
	}
	size := utils.AtoiDefault(q.Get("size"), defaultPageSize)
	if size < 1 {
		return nil, &repo.InvalidCriteriaError{Field: "size", Reason: "must be at least 1"}
	}
	p := &repo.Page{Limit: utils.ClampInt(size, 1, maxPageSize)}

	if raw := q.Get("after"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &repo.InvalidCriteriaError{Field: "after", Reason: "must be an id"}
		}
		if q.Has("page") {
			return nil, &repo.InvalidCriteriaError{Field: "after", Reason: "cannot be combined with page"}
		}
		p.After = &id
		return p, nil
	}

	offset, ok := utils.PageOffset(utils.AtoiDefault(q.Get("page"), 0), p.Limit)
	if !ok {
		return nil, &repo.InvalidCriteriaError{Field: "page", Reason: "must be a non-negative page number"}
	}
	p.Offset = offset
	return p, nil
}
