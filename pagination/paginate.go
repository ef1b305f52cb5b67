package pagination

import (
	"sort"
	"time"
)

// Options refine PaginateArray.
type Options struct {
	// Filters keeps rows whose field at each path matches the value.
	Filters map[string]any
	// Predicate keeps rows for which it returns true.
	Predicate func(Record) bool
	// Less overrides Params.SortBy.
	Less func(a, b Record) bool
}

// Result is one page. Total, Page and TotalPages are set only when
// Params.IncludeTotal is true; cursors only by cursor pagination.
type Result struct {
	Items      []Record `json:"items"`
	Offset     int      `json:"offset"`
	Limit      int      `json:"limit"`
	HasMore    bool     `json:"hasMore"`
	Total      *int     `json:"total,omitempty"`
	Page       *int     `json:"page,omitempty"`
	TotalPages *int     `json:"totalPages,omitempty"`
	NextCursor string   `json:"nextCursor,omitempty"`
	PrevCursor string   `json:"prevCursor,omitempty"`
}

// PaginateArray filters, sorts and slices items to [offset, offset+limit).
// items is not modified.
func (m *Manager) PaginateArray(items []Record, params Params, opts Options) (*Result, error) {
	params, err := m.ValidateParams(params)
	if err != nil {
		return nil, err
	}

	rows := filter(items, opts)
	switch {
	case opts.Less != nil:
		sort.SliceStable(rows, func(i, j int) bool { return opts.Less(rows[i], rows[j]) })
	case params.SortBy != "":
		sortByField(rows, params.SortBy, params.SortOrder)
	}
	return offsetPage(rows, params), nil
}

func filter(items []Record, opts Options) []Record {
	rows := make([]Record, 0, len(items))
	for _, r := range items {
		if opts.Predicate != nil && !opts.Predicate(r) {
			continue
		}
		if !matchesAll(r, opts.Filters) {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

func matchesAll(r Record, filters map[string]any) bool {
	for path, want := range filters {
		got, ok := Field(r, path)
		if !ok || !matches(got, want) {
			return false
		}
	}
	return true
}

func sortByField(rows []Record, path string, order SortOrder) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := Field(rows[i], path)
		b, _ := Field(rows[j], path)
		if order == Desc {
			return Compare(a, b) > 0
		}
		return Compare(a, b) < 0
	})
}

// offsetPage slices already filtered and sorted rows.
func offsetPage(rows []Record, params Params) *Result {
	total := len(rows)
	start := min(params.Offset, total)
	end := min(start+params.Limit, total)

	res := &Result{
		Items:   rows[start:end],
		Offset:  params.Offset,
		Limit:   params.Limit,
		HasMore: end < total,
	}
	if params.IncludeTotal {
		page := params.Offset/params.Limit + 1
		totalPages := (total + params.Limit - 1) / params.Limit
		res.Total = &total
		res.Page = &page
		res.TotalPages = &totalPages
	}
	return res
}

// CursorPaginate pages through items sorted by cursorField. Params.Cursor
// names the boundary row of a previous page: forward pages start just after
// it and backward pages end just before it. A cursor that cannot be decoded
// or no longer matches any row restarts from the beginning.
func (m *Manager) CursorPaginate(items []Record, params Params, cursorField string) (*Result, error) {
	params, err := m.ValidateParams(params)
	if err != nil {
		return nil, err
	}

	rows := make([]Record, len(items))
	copy(rows, items)
	sortByField(rows, cursorField, params.SortOrder)
	return cursorPage(rows, params, cursorField), nil
}

func cursorPage(rows []Record, params Params, cursorField string) *Result {
	total := len(rows)
	pos := -1
	if params.Cursor != "" {
		if value, err := DecodeCursor(params.Cursor); err == nil {
			pos = indexOf(rows, cursorField, value)
		}
	}

	var start, end int
	switch {
	case pos < 0:
		start, end = 0, min(params.Limit, total)
	case params.Direction == Backward:
		end = pos
		start = max(0, end-params.Limit)
	default:
		start = pos + 1
		end = min(start+params.Limit, total)
	}

	res := &Result{
		Items:  rows[start:end],
		Offset: start,
		Limit:  params.Limit,
	}
	if params.Direction == Backward && pos >= 0 {
		res.HasMore = start > 0
	} else {
		res.HasMore = end < total
	}
	if len(res.Items) > 0 {
		if end < total {
			res.NextCursor = cursorFor(res.Items[len(res.Items)-1], cursorField)
		}
		if start > 0 {
			res.PrevCursor = cursorFor(res.Items[0], cursorField)
		}
	}
	if params.IncludeTotal {
		res.Total = &total
	}
	return res
}

func indexOf(rows []Record, field string, value any) int {
	for i, r := range rows {
		if v, ok := Field(r, field); ok && equal(v, value) {
			return i
		}
	}
	return -1
}

func cursorFor(r Record, field string) string {
	v, _ := Field(r, field)
	c, err := EncodeCursor(v)
	if err != nil {
		return ""
	}
	return c
}

// PaginateSearchResults keeps rows whose scoreField is at least minScore,
// orders them by descending score and pages them by offset. An empty
// scoreField means "score".
func (m *Manager) PaginateSearchResults(items []Record, params Params, scoreField string, minScore float64) (*Result, error) {
	params, err := m.ValidateParams(params)
	if err != nil {
		return nil, err
	}
	if scoreField == "" {
		scoreField = "score"
	}

	rows := make([]Record, 0, len(items))
	for _, r := range items {
		v, _ := Field(r, scoreField)
		if score, ok := toFloat(v); ok && score >= minScore {
			rows = append(rows, r)
		}
	}
	sortByField(rows, scoreField, Desc)
	return offsetPage(rows, params), nil
}

// StreamingPaginate keeps rows whose timestampField falls in
// [now-window, now], orders them newest first and pages them by offset.
// Rows without a readable timestamp are dropped.
func (m *Manager) StreamingPaginate(items []Record, params Params, timestampField string, window time.Duration, now time.Time) (*Result, error) {
	params, err := m.ValidateParams(params)
	if err != nil {
		return nil, err
	}

	from := now.Add(-window)
	type stamped struct {
		r  Record
		at time.Time
	}
	kept := make([]stamped, 0, len(items))
	for _, r := range items {
		v, _ := Field(r, timestampField)
		at, ok := timeOf(v)
		if !ok || at.Before(from) || at.After(now) {
			continue
		}
		kept = append(kept, stamped{r: r, at: at})
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].at.After(kept[j].at) })

	rows := make([]Record, len(kept))
	for i, s := range kept {
		rows[i] = s.r
	}
	return offsetPage(rows, params), nil
}
