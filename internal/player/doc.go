// Package player coordinates playback of a catalog item with an external
// playback engine.
//
// # Overview
//
// A Manager owns the catalog Item, the resolved PlaybackItem (media source
// plus stream URL), the playback Progress, a queue of catalog items and the
// playback Speed. The engine itself lives outside this package: in the TUI
// it is a simulated clock, in `usher play` it is whatever player opens the
// printed stream URL.
//
// # Lifecycle
//
//	New(item, provider)
//	  loadingItem ──resolve ok──→ buffering + StartPlayback
//	       │
//	       └──────resolve err──→ error + Failed
//
//	buffering ⇄ playing ⇄ paused      (Buffer, Play, Pause)
//	any       ──Ended──→ loadingItem
//	any       ──Fail───→ error
//	any       ──Stop───→ stopped + PlaybackStopped   (terminal)
//
// NewWithPlaybackItem skips resolution and starts buffering with the item
// queued.
//
// # Cancellation
//
// Every accepted action cancels the resolve task started by New. When the
// engine reports Fail, or the viewer pauses, while the stream is still
// resolving, the late provider result is dropped: it neither overwrites
// the newer state nor emits StartPlayback. Callers that want the stream
// should wait for StartPlayback before sending transport actions.
//
// Stop emits exactly one PlaybackStopped and moves to the terminal stopped
// state without waiting for the engine; every later action is ignored.
//
// # Progress and Speed
//
// Seek recomputes Progress from the item's run time and keeps the state.
// Items without a run time report seconds only. SetSpeed accepts the rates
// in Speeds and ignores anything else. The queue is append-only: PlayNew
// adds to it and Ended does not consume it.
//
// # Error Handling
//
// Resolution failures surface as the error state plus a Failed event.
// Fail moves to the error state without an event; the engine reporting it
// already knows.
//
// # Usage
//
//	mgr := player.New(item, player.ServerProvider(client, item))
//	defer mgr.Close()
//	for ev := range mgr.Events() {
//		switch ev := ev.(type) {
//		case player.StartPlayback:
//			engine.Open(ev.Item.StreamURL)
//			mgr.Respond(player.Play{})
//		case player.PlaybackStopped:
//			engine.Close()
//		}
//	}
//
// ServerProvider builds the default provider from the media server client:
// playback info plus a static stream URL for the first media source.
package player
