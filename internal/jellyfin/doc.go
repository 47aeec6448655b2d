// Package jellyfin provides a typed HTTP client for the media server API.
//
// # Overview
//
// Client covers the endpoints usher's controllers drive: item listings and
// edits, filters and studios, metadata refresh, devices, the user's profile
// image, scheduled tasks, sessions, next up and resume lists, played state
// and playback info.
//
// Every request carries the MediaBrowser Authorization header built from the
// configured client name, device, device id, version and access token.
//
// # Transport
//
// Requests go through hashicorp/go-retryablehttp, which retries connection
// failures and 5xx responses with exponential backoff and hands the final
// response back unchanged. A golang.org/x/time/rate limiter throttles calls
// when requests_per_second is configured. Retry chatter is logged through
// zerolog.
//
// # Errors
//
// Every method returns *APIError on failure. Kind separates transport,
// decode, server (non-2xx) and precondition failures; Status and Path
// identify the call. Cancelled contexts surface as transport errors that
// unwrap to context.Canceled.
//
// # Usage
//
//	client, err := jellyfin.NewClient(jellyfin.Options{
//		ServerURL:   "http://media.local:8096",
//		UserID:      cfg.UserID,
//		AccessToken: cfg.AccessToken,
//		DeviceID:    prefs.DeviceID,
//	})
//	if err != nil {
//		return err
//	}
//	page, err := client.GetItems(ctx, jellyfin.ItemsQuery{Recursive: true, Limit: 50})
package jellyfin
