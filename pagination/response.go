package pagination

import (
	"net/url"
	"strconv"
)

// Links are navigation URLs derived from a base URL. Unavailable links are
// omitted.
type Links struct {
	First string `json:"first,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
	Last  string `json:"last,omitempty"`
}

// Response is the envelope returned by APIResponse.
type Response struct {
	Data       []Record `json:"data"`
	Pagination *Result  `json:"pagination"`
	Links      *Links   `json:"links,omitempty"`
}

// ResponseOptions select the strategy and link generation for APIResponse.
type ResponseOptions struct {
	// CursorField switches to cursor pagination when set.
	CursorField string
	// BaseURL enables Links. Existing query parameters are kept.
	BaseURL string
	// Filters and Predicate apply as in Options for offset pagination.
	Filters   map[string]any
	Predicate func(Record) bool
}

// APIResponse pages items by cursor when opts.CursorField is set and by
// offset otherwise, and builds navigation links when opts.BaseURL is set.
func (m *Manager) APIResponse(items []Record, params Params, opts ResponseOptions) (*Response, error) {
	params, err := m.ValidateParams(params)
	if err != nil {
		return nil, err
	}

	rows := filter(items, Options{Filters: opts.Filters, Predicate: opts.Predicate})
	var res *Result
	if opts.CursorField != "" {
		sortByField(rows, opts.CursorField, params.SortOrder)
		res = cursorPage(rows, params, opts.CursorField)
	} else {
		if params.SortBy != "" {
			sortByField(rows, params.SortBy, params.SortOrder)
		}
		res = offsetPage(rows, params)
	}

	resp := &Response{Data: res.Items, Pagination: res}
	if opts.BaseURL != "" {
		base, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, err
		}
		if opts.CursorField != "" {
			resp.Links = cursorLinks(base, res)
		} else {
			resp.Links = offsetLinks(base, res, len(rows))
		}
	}
	return resp, nil
}

func offsetLinks(base *url.URL, res *Result, total int) *Links {
	limit := res.Limit
	links := &Links{
		First: withQuery(base, map[string]string{"limit": strconv.Itoa(limit), "offset": "0"}),
	}
	if res.Offset > 0 {
		prev := max(0, res.Offset-limit)
		links.Prev = withQuery(base, map[string]string{"limit": strconv.Itoa(limit), "offset": strconv.Itoa(prev)})
	}
	if res.HasMore {
		links.Next = withQuery(base, map[string]string{"limit": strconv.Itoa(limit), "offset": strconv.Itoa(res.Offset + limit)})
	}
	if total > 0 {
		last := ((total - 1) / limit) * limit
		links.Last = withQuery(base, map[string]string{"limit": strconv.Itoa(limit), "offset": strconv.Itoa(last)})
	}
	return links
}

func cursorLinks(base *url.URL, res *Result) *Links {
	limit := strconv.Itoa(res.Limit)
	links := &Links{
		First: withQuery(base, map[string]string{"limit": limit}),
	}
	if res.PrevCursor != "" {
		links.Prev = withQuery(base, map[string]string{"limit": limit, "cursor": res.PrevCursor, "direction": string(Backward)})
	}
	if res.NextCursor != "" {
		links.Next = withQuery(base, map[string]string{"limit": limit, "cursor": res.NextCursor, "direction": string(Forward)})
	}
	return links
}

func withQuery(base *url.URL, set map[string]string) string {
	u := *base
	q := u.Query()
	q.Del("cursor")
	q.Del("direction")
	q.Del("offset")
	for k, v := range set {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
