package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/paging"
)

// Library is a paged collection of catalog items keyed by item id.
type Library = paging.Library[jellyfin.Item, string]

// API is the listing half of the media server client.
type API interface {
	GetItems(ctx context.Context, query jellyfin.ItemsQuery) (jellyfin.ItemsResult, error)
	GetNextUp(ctx context.Context, query jellyfin.PageQuery) (jellyfin.ItemsResult, error)
	GetResume(ctx context.Context, query jellyfin.PageQuery) (jellyfin.ItemsResult, error)
	MarkPlayed(ctx context.Context, itemID string) error
	MarkUnplayed(ctx context.Context, itemID string) error
}

// Sort is a listing order.
type Sort struct {
	By    string
	Order string
}

// DefaultSort lists items alphabetically.
var DefaultSort = Sort{By: jellyfin.SortName, Order: jellyfin.Ascending}

// Params narrows an item listing.
type Params struct {
	ParentID  string
	ItemTypes []string
	Filters   []string
	// Sort overrides the catalog's default sort when set.
	Sort Sort
}

// searchTypes are the item kinds a search covers.
var searchTypes = []string{"Movie", "Series", "Episode", "BoxSet", "MusicAlbum", "Audio"}

// Catalog builds libraries over one server.
type Catalog struct {
	api      API
	pageSize int
	sort     Sort
}

// Options configure a Catalog. Zero values use paging.DefaultPageSize and
// DefaultSort.
type Options struct {
	PageSize int
	Sort     Sort
}

// NewCatalog builds a catalog.
func NewCatalog(api API, opts Options) *Catalog {
	sort := opts.Sort
	if strings.TrimSpace(sort.By) == "" {
		sort.By = DefaultSort.By
	}
	if strings.TrimSpace(sort.Order) == "" {
		sort.Order = DefaultSort.Order
	}
	size := opts.PageSize
	if size <= 0 {
		size = paging.DefaultPageSize
	}
	return &Catalog{api: api, pageSize: size, sort: sort}
}

// Items lists items below a parent, recursively.
func (c *Catalog) Items(p Params) *Library {
	sort := p.Sort
	if sort.By == "" {
		sort = c.sort
	}
	base := jellyfin.ItemsQuery{
		ParentID:         p.ParentID,
		IncludeItemTypes: p.ItemTypes,
		Filters:          p.Filters,
		SortBy:           []string{sort.By},
		SortOrder:        sort.Order,
		Fields:           jellyfin.DefaultFields,
		Recursive:        true,
	}
	return c.newLibrary("items", c.itemsFetcher(base))
}

// Search lists items matching term across the common item kinds.
func (c *Catalog) Search(term string) *Library {
	base := jellyfin.ItemsQuery{
		IncludeItemTypes: searchTypes,
		SearchTerm:       term,
		SortBy:           []string{jellyfin.SortName},
		SortOrder:        jellyfin.Ascending,
		Fields:           jellyfin.DefaultFields,
		Recursive:        true,
	}
	return c.newLibrary("search", c.itemsFetcher(base))
}

// Seasons lists the seasons of a series in airing order.
func (c *Catalog) Seasons(seriesID string) *Library {
	base := jellyfin.ItemsQuery{
		ParentID:         seriesID,
		IncludeItemTypes: []string{"Season"},
		SortBy:           []string{jellyfin.SortIndexNumber, jellyfin.SortName},
		SortOrder:        jellyfin.Ascending,
		Fields:           jellyfin.DefaultFields,
	}
	return c.newLibrary("seasons", c.itemsFetcher(base))
}

// Episodes lists the episodes of a season in airing order.
func (c *Catalog) Episodes(seasonID string) *Library {
	base := jellyfin.ItemsQuery{
		ParentID:         seasonID,
		IncludeItemTypes: []string{"Episode"},
		SortBy:           []string{jellyfin.SortParentIndexNumber, jellyfin.SortIndexNumber, jellyfin.SortName},
		SortOrder:        jellyfin.Ascending,
		Fields:           jellyfin.DefaultFields,
	}
	return c.newLibrary("episodes", c.itemsFetcher(base))
}

// NextUp lists the next episode of each series in progress.
func (c *Catalog) NextUp() *Library {
	return c.newLibrary("nextup", c.pageFetcher(c.api.GetNextUp))
}

// Resume lists partially watched items.
func (c *Catalog) Resume() *Library {
	return c.newLibrary("resume", c.pageFetcher(c.api.GetResume))
}

// MarkPlayed sets or clears the played flag of item and refreshes lib so it
// reflects the change.
func (c *Catalog) MarkPlayed(ctx context.Context, lib *Library, itemID string, played bool) error {
	var err error
	if played {
		err = c.api.MarkPlayed(ctx, itemID)
	} else {
		err = c.api.MarkUnplayed(ctx, itemID)
	}
	if err != nil {
		return fmt.Errorf("mark item %s played=%t: %w", itemID, played, err)
	}
	if lib != nil {
		lib.Respond(paging.Refresh{})
	}
	return nil
}

func (c *Catalog) newLibrary(name string, fetch paging.Fetcher[jellyfin.Item]) *Library {
	return paging.New[jellyfin.Item, string](name, fetch, itemID, paging.Config[jellyfin.Item]{PageSize: c.pageSize})
}

func (c *Catalog) itemsFetcher(base jellyfin.ItemsQuery) paging.Fetcher[jellyfin.Item] {
	return func(ctx context.Context, req paging.Request) ([]jellyfin.Item, error) {
		query := base
		query.StartIndex = req.StartIndex
		query.Limit = req.Limit
		if req.Random {
			query.SortBy = []string{jellyfin.SortRandom}
			query.SortOrder = ""
		}
		res, err := c.api.GetItems(ctx, query)
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	}
}

func (c *Catalog) pageFetcher(get func(context.Context, jellyfin.PageQuery) (jellyfin.ItemsResult, error)) paging.Fetcher[jellyfin.Item] {
	return func(ctx context.Context, req paging.Request) ([]jellyfin.Item, error) {
		res, err := get(ctx, jellyfin.PageQuery{
			Fields:     jellyfin.DefaultFields,
			StartIndex: req.StartIndex,
			Limit:      req.Limit,
		})
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	}
}

func itemID(item jellyfin.Item) string { return item.ID }

// API returns the client the catalog lists from.
func (c *Catalog) API() API { return c.api }
