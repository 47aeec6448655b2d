package player

import (
	"context"
	"errors"
	"net/url"

	"github.com/five82/usher/internal/jellyfin"
)

// PlaybackAPI resolves media sources and stream locations.
type PlaybackAPI interface {
	GetPlaybackInfo(ctx context.Context, itemID string) (jellyfin.PlaybackInfo, error)
	StreamURL(itemID string, source jellyfin.MediaSource, playSessionID string) *url.URL
}

// ServerProvider resolves item to a static stream of its first media source.
func ServerProvider(api PlaybackAPI, item jellyfin.Item) Provider {
	return func(ctx context.Context) (PlaybackItem, error) {
		info, err := api.GetPlaybackInfo(ctx, item.ID)
		if err != nil {
			return PlaybackItem{}, err
		}
		if len(info.MediaSources) == 0 {
			return PlaybackItem{}, errors.New("item has no playable media source")
		}
		source := info.MediaSources[0]
		return PlaybackItem{
			Item:          item,
			MediaSource:   source,
			StreamURL:     api.StreamURL(item.ID, source, info.PlaySessionID).String(),
			PlaySessionID: info.PlaySessionID,
		}, nil
	}
}
