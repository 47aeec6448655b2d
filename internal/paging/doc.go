// Package paging provides Library, a generic cursor over a remote collection
// fetched one page at a time.
//
// # Overview
//
// A Library[T, K] holds the items loaded so far, the zero-based page under
// the cursor, whether another page is expected, and the page size (50 by
// default). Items are identified by a key function and keep the order they
// first arrived in.
//
// # Actions
//
//	Refresh     reset cursor and collection, load page 0       refreshing
//	NextPage    load currentPage+1 and append new identities    gettingNextPage
//	RandomItem  fetch one item in server random order           marker gettingRandomItem
//
// Refresh and NextPage are primary: a Refresh issued while a page is loading
// cancels it, and the cancelled page never lands. Refresh clears the
// collection synchronously, so the screen empties before the first page
// arrives. NextPage is ignored while HasNextPage is false.
//
// RandomItem runs as a concurrent task. It leaves the collection and cursor
// alone and delivers its result as a GotRandomItem event.
//
// # Paging Rules
//
// Page n is requested as StartIndex n*pageSize with Limit pageSize. A page
// shorter than the page size ends pagination. The cursor only advances when
// a page was fetched successfully, so a failed NextPage can be retried and
// asks for the same page. Overlapping pages never produce duplicates.
//
//	pageSize 50, 120 items on the server:
//	Refresh   → 50 items,  HasNextPage true
//	NextPage  → 100 items, HasNextPage true
//	NextPage  → 120 items, HasNextPage false
//
// A library seeded with existing items starts its cursor at
// len(items)/pageSize.
//
// # Error Handling
//
// A failed fetch moves the library to the error state and emits Failed;
// the items loaded before stay available. There is no automatic retry.
// An empty first page is content with zero items, not an error.
package paging
