// Package metadata triggers a server-side metadata refresh for one item and
// waits for it to finish.
//
// The server only queues refresh work, so after triggering, the item is read
// back with exponential backoff until its DateLastRefreshed advances. The
// wait is bounded; running out of checks is reported as an error. A finished
// refresh publishes notify.TopicItemMetadataDidChange.
package metadata
