package editor

import (
	"context"
	"slices"
	"strings"

	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/notify"
)

// StudiosAPI lists the studios known to the server.
type StudiosAPI interface {
	GetStudios(ctx context.Context, query jellyfin.StudiosQuery) ([]jellyfin.NameIDPair, error)
}

// Studios edits an item's studios.
type Studios struct {
	API StudiosAPI
}

// NewStudios builds a studio editor for item.
func NewStudios(item jellyfin.Item, api interface {
	ItemAPI
	StudiosAPI
}, bus notify.Publisher) *Editor[jellyfin.NameIDPair] {
	return New[jellyfin.NameIDPair]("studios", item, api, Studios{API: api}, bus)
}

// Fetch lists the studios used below the item's parent.
func (s Studios) Fetch(ctx context.Context, item jellyfin.Item) ([]jellyfin.NameIDPair, error) {
	return s.API.GetStudios(ctx, jellyfin.StudiosQuery{ParentID: item.ParentID})
}

func (Studios) Search(population []jellyfin.NameIDPair, term string) []jellyfin.NameIDPair {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var out []jellyfin.NameIDPair
	for _, studio := range population {
		if strings.Contains(strings.ToLower(studio.Name), term) {
			out = append(out, studio)
		}
	}
	return out
}

func (Studios) Add(item jellyfin.Item, studios []jellyfin.NameIDPair) jellyfin.Item {
	next := slices.Clone(item.Studios)
	for _, studio := range studios {
		if strings.TrimSpace(studio.Name) == "" {
			continue
		}
		if slices.ContainsFunc(next, func(have jellyfin.NameIDPair) bool { return sameStudio(have, studio) }) {
			continue
		}
		next = append(next, studio)
	}
	item.Studios = next
	return item
}

func (Studios) Remove(item jellyfin.Item, studios []jellyfin.NameIDPair) jellyfin.Item {
	item.Studios = slices.DeleteFunc(slices.Clone(item.Studios), func(have jellyfin.NameIDPair) bool {
		return slices.ContainsFunc(studios, func(drop jellyfin.NameIDPair) bool { return sameStudio(have, drop) })
	})
	return item
}

func (Studios) Reorder(item jellyfin.Item, ordered []jellyfin.NameIDPair) jellyfin.Item {
	item.Studios = slices.Clone(ordered)
	return item
}

// sameStudio compares by id when both sides carry one, by name otherwise.
func sameStudio(a, b jellyfin.NameIDPair) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return strings.EqualFold(a.Name, b.Name)
}
