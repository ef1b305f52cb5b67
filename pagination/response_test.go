package pagination

import (
	"net/url"
	"testing"
)

func query(t *testing.T, link string) url.Values {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse %q: %v", link, err)
	}
	return u.Query()
}

func TestAPIResponse_OffsetLinks(t *testing.T) {
	m := NewManager(Config{})

	resp, err := m.APIResponse(workflows(25), Params{Limit: 10, Offset: 10}, ResponseOptions{
		BaseURL: "http://localhost:8080/workflows?active=true",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 10 {
		t.Errorf("len(Data) = %d", len(resp.Data))
	}
	if resp.Links == nil {
		t.Fatal("Links = nil")
	}

	tests := []struct {
		name, link, param, want string
	}{
		{"first offset", resp.Links.First, "offset", "0"},
		{"first keeps query", resp.Links.First, "active", "true"},
		{"prev offset", resp.Links.Prev, "offset", "0"},
		{"next offset", resp.Links.Next, "offset", "20"},
		{"last offset", resp.Links.Last, "offset", "20"},
		{"next limit", resp.Links.Next, "limit", "10"},
	}
	for _, tt := range tests {
		if got := query(t, tt.link).Get(tt.param); got != tt.want {
			t.Errorf("%s: %s = %q, want %q", tt.name, tt.param, got, tt.want)
		}
	}
}

func TestAPIResponse_FirstPageHasNoPrev(t *testing.T) {
	m := NewManager(Config{})

	resp, err := m.APIResponse(workflows(5), Params{Limit: 10}, ResponseOptions{BaseURL: "http://x/y"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Links.Prev != "" || resp.Links.Next != "" {
		t.Errorf("prev/next = %q/%q, want empty", resp.Links.Prev, resp.Links.Next)
	}
	if resp.Links.Last == "" {
		t.Error("Last is empty")
	}
}

func TestAPIResponse_CursorLinks(t *testing.T) {
	m := NewManager(Config{})
	items := workflows(10)
	opts := ResponseOptions{CursorField: "id", BaseURL: "http://x/executions"}

	first, err := m.APIResponse(items, Params{Limit: 3}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Links.Prev != "" || first.Links.Next == "" {
		t.Fatalf("first links = %+v", first.Links)
	}

	next := query(t, first.Links.Next)
	if next.Get("direction") != "forward" {
		t.Errorf("direction = %q", next.Get("direction"))
	}

	second, err := m.APIResponse(items, Params{Limit: 3, Cursor: next.Get("cursor")}, opts)
	if err != nil {
		t.Fatal(err)
	}
	assertIDs(t, second.Data, "wf-04", "wf-05", "wf-06")
	if got := query(t, second.Links.Prev).Get("direction"); got != "backward" {
		t.Errorf("prev direction = %q", got)
	}
}

func TestAPIResponse_NoBaseURL(t *testing.T) {
	m := NewManager(Config{})

	resp, err := m.APIResponse(workflows(3), Params{}, ResponseOptions{Filters: map[string]any{"active": true}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Links != nil {
		t.Errorf("Links = %+v, want nil", resp.Links)
	}
	assertIDs(t, resp.Data, "wf-01", "wf-03")
}
