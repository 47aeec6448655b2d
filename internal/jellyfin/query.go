package jellyfin

import (
	"net/url"
	"strconv"
	"strings"
)

// Item sort keys and orders.
const (
	SortName              = "SortName"
	SortDateCreated       = "DateCreated"
	SortPremiereDate      = "PremiereDate"
	SortRandom            = "Random"
	SortIndexNumber       = "IndexNumber"
	SortParentIndexNumber = "ParentIndexNumber"

	Ascending  = "Ascending"
	Descending = "Descending"
)

// Item fields requested beyond the server defaults.
var DefaultFields = []string{"Overview", "Tags", "Studios", "Genres", "DateCreated", "DateLastRefreshed", "LockedFields"}

// ItemsQuery configures item listings.
type ItemsQuery struct {
	ParentID         string
	IncludeItemTypes []string
	Filters          []string
	SortBy           []string
	SortOrder        string
	Fields           []string
	SearchTerm       string
	Recursive        bool
	StartIndex       int
	Limit            int
}

func (q ItemsQuery) values() url.Values {
	values := url.Values{}
	if id := strings.TrimSpace(q.ParentID); id != "" {
		values.Set("ParentId", id)
	}
	setList(values, "IncludeItemTypes", q.IncludeItemTypes)
	setList(values, "Filters", q.Filters)
	setList(values, "SortBy", q.SortBy)
	if order := strings.TrimSpace(q.SortOrder); order != "" {
		values.Set("SortOrder", order)
	}
	setList(values, "Fields", q.Fields)
	if term := strings.TrimSpace(q.SearchTerm); term != "" {
		values.Set("SearchTerm", term)
	}
	if q.Recursive {
		values.Set("Recursive", "true")
	}
	if q.StartIndex > 0 {
		values.Set("StartIndex", strconv.Itoa(q.StartIndex))
	}
	if q.Limit > 0 {
		values.Set("Limit", strconv.Itoa(q.Limit))
	}
	return values
}

// PageQuery configures the next-up and resume listings.
type PageQuery struct {
	ParentID   string
	Fields     []string
	StartIndex int
	Limit      int
}

func (q PageQuery) values() url.Values {
	values := url.Values{}
	if id := strings.TrimSpace(q.ParentID); id != "" {
		values.Set("ParentId", id)
	}
	setList(values, "Fields", q.Fields)
	if q.StartIndex > 0 {
		values.Set("StartIndex", strconv.Itoa(q.StartIndex))
	}
	if q.Limit > 0 {
		values.Set("Limit", strconv.Itoa(q.Limit))
	}
	return values
}

func setList(values url.Values, key string, list []string) {
	var kept []string
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) > 0 {
		values.Set(key, strings.Join(kept, ","))
	}
}
