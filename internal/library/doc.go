// Package library builds the paged item collections usher browses: plain
// listings below a parent, search results, next up and resume, and the
// seasons and episodes of a series.
//
// Every collection is a paging.Library over jellyfin.Item keyed by item id.
// Listings sort by the user's default sort unless Params overrides it, and a
// random item is requested with the server's random sort.
package library
