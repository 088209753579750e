package pagination

import (
	"net/url"
	"strconv"
)

// TotalSource says where an endpoint reports the size of its result set.
type TotalSource int

const (
	// TotalFromBody reads {"totalCount": N, "results": [...]}.
	TotalFromBody TotalSource = iota

	// TotalFromHeader reads the x-total-count header; the body is a bare array.
	TotalFromHeader

	// TotalNone marks an unpaginated endpoint returning a bare array.
	TotalNone
)

// FilterStyle says how filter expressions are encoded in the query.
type FilterStyle int

const (
	// FilterIndexed encodes filter[0]=a&filter[1]=b (legacy endpoints).
	FilterIndexed FilterStyle = iota

	// FilterRepeated encodes filter=a&filter=b (v2 endpoints).
	FilterRepeated
)

// TotalCountHeader carries the result set size on v2 endpoints.
const TotalCountHeader = "x-total-count"

// Endpoint describes one paginated list endpoint.
type Endpoint struct {
	// Name labels metrics and progress, e.g. "users"
	Name string

	// Path relative to the API base URL, e.g. "/systemusers"
	Path string

	Total   TotalSource
	Filters FilterStyle

	// Sort is sent as the sort parameter when set, e.g. "_id"
	Sort string

	// Query holds extra parameters sent with every window
	Query url.Values
}

// WithPath returns a copy of ep for a concrete path, e.g. one group's members.
func (ep Endpoint) WithPath(path string) Endpoint {
	ep.Path = path
	return ep
}

func (ep Endpoint) label() string {
	if ep.Name != "" {
		return ep.Name
	}
	return ep.Path
}

// Window is one skip/limit slice of a result set.
type Window struct {
	Skip  int
	Limit int
}

// Windows returns the windows after the first one needed to cover total.
func Windows(total, pageSize int) []Window {
	var windows []Window
	for skip := pageSize; skip < total; skip += pageSize {
		windows = append(windows, Window{Skip: skip, Limit: pageSize})
	}
	return windows
}

// Params builds the query parameters for window w with filters applied.
func (ep Endpoint) Params(w Window, filters []string) url.Values {
	q := make(url.Values, len(ep.Query)+4)
	for name, values := range ep.Query {
		q[name] = append([]string(nil), values...)
	}

	if ep.Total != TotalNone {
		q.Set("skip", strconv.Itoa(w.Skip))
		q.Set("limit", strconv.Itoa(w.Limit))
	}
	if ep.Sort != "" {
		q.Set("sort", ep.Sort)
	}

	for i, expr := range filters {
		switch ep.Filters {
		case FilterRepeated:
			q.Add("filter", expr)
		default:
			q.Set("filter["+strconv.Itoa(i)+"]", expr)
		}
	}
	return q
}
