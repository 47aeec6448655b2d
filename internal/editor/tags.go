package editor

import (
	"context"
	"slices"
	"strings"

	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/notify"
)

// FiltersAPI lists the tags in use on the server.
type FiltersAPI interface {
	GetQueryFilters(ctx context.Context, parentID string) (jellyfin.QueryFilters, error)
}

// Tags edits an item's tags.
type Tags struct {
	API FiltersAPI
}

// NewTags builds a tag editor for item.
func NewTags(item jellyfin.Item, api interface {
	ItemAPI
	FiltersAPI
}, bus notify.Publisher) *Editor[string] {
	return New[string]("tags", item, api, Tags{API: api}, bus)
}

func (t Tags) Fetch(ctx context.Context, _ jellyfin.Item) ([]string, error) {
	filters, err := t.API.GetQueryFilters(ctx, "")
	if err != nil {
		return nil, err
	}
	return filters.Tags, nil
}

// Search matches tags containing term, ignoring case.
func (Tags) Search(population []string, term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var out []string
	for _, tag := range population {
		if strings.Contains(strings.ToLower(tag), term) {
			out = append(out, tag)
		}
	}
	return out
}

func (Tags) Add(item jellyfin.Item, tags []string) jellyfin.Item {
	next := slices.Clone(item.Tags)
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(next, tag) {
			continue
		}
		next = append(next, tag)
	}
	item.Tags = next
	return item
}

func (Tags) Remove(item jellyfin.Item, tags []string) jellyfin.Item {
	item.Tags = slices.DeleteFunc(slices.Clone(item.Tags), func(tag string) bool {
		return slices.Contains(tags, tag)
	})
	return item
}

func (Tags) Reorder(item jellyfin.Item, ordered []string) jellyfin.Item {
	item.Tags = slices.Clone(ordered)
	return item
}
