package backend

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
)

// Envelope wraps every /v1 response body.
type Envelope[T any] struct {
	Message   string `json:"message"`
	Data      T      `json:"data"`
	Success   bool   `json:"success"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
	Cache     bool   `json:"cache"`
}

// Page is the offset pagination shape used by the case listings.
type Page[T any] struct {
	Docs            []T  `json:"docs"`
	Total           int  `json:"total"`
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// DocsPage is the second pagination shape, used by ready-to-close and the
// thana-incharge search.
type DocsPage[T any] struct {
	Docs       []T     `json:"docs"`
	TotalDocs  int     `json:"totalDocs"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
	NextPage   PageRef `json:"nextPage"`
	PrevPage   PageRef `json:"prevPage"`
}

// PageRef is a neighbouring page that the backend reports either as a page
// number, a boolean or null.
type PageRef struct {
	Page    int
	Present bool
}

func (p *PageRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", "false", "":
		*p = PageRef{}
		return nil
	case "true":
		*p = PageRef{Present: true}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = PageRef{Page: n, Present: true}
	return nil
}

func (p PageRef) MarshalJSON() ([]byte, error) {
	if p.Page > 0 {
		return []byte(strconv.Itoa(p.Page)), nil
	}
	if p.Present {
		return []byte("true"), nil
	}
	return []byte("null"), nil
}

type PageQuery struct {
	Page  int
	Limit int
}

func (q PageQuery) Values() url.Values {
	v := url.Values{}
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	return v
}

type ListCasesQuery struct {
	PageQuery
	Stage     string
	Status    string
	CreatedBy string
	SortBy    string
	SortOrder string
}

func (q ListCasesQuery) Values() url.Values {
	v := q.PageQuery.Values()
	setString(v, "stage", q.Stage)
	setString(v, "status", q.Status)
	setString(v, "createdBy", q.CreatedBy)
	setString(v, "sortBy", q.SortBy)
	setString(v, "sortOrder", q.SortOrder)
	return v
}

type SearchQuery struct {
	PageQuery
	Q string
}

func (q SearchQuery) Values() url.Values {
	v := q.PageQuery.Values()
	setString(v, "q", q.Q)
	return v
}

func setInt(v url.Values, key string, n int) {
	if n > 0 {
		v.Set(key, strconv.Itoa(n))
	}
}

func setString(v url.Values, key, s string) {
	if s != "" {
		v.Set(key, s)
	}
}
