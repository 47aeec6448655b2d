// Package editor edits list-valued item metadata such as tags and studios.
//
// Editor is generic over the element type. The element-specific parts live
// behind Elements: Tags works on plain strings taken from the server's
// filter list, Studios on name/id pairs from the studio listing.
//
// Refresh and Search run as background operations so a search can proceed
// while the population reloads. Add, Remove, Reorder and Update replace each
// other: each saves the item, reads it back and publishes
// notify.TopicItemMetadataDidChange with the fresh item.
package editor
