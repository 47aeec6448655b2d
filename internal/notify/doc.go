// Package notify is usher's process-wide broadcast mechanism.
//
// Controllers announce changes to shared entities (an item's metadata, the
// user's profile image) and app-level toggles (offline mode, display
// preferences) so unrelated views showing the same entity can refresh
// themselves. Delivery is fire-and-forget: Publish never blocks and there is
// no acknowledgement. Every subscriber registered at publish time gets the
// message unless its buffer is full.
//
// The bus is owned by the app package; controllers receive it as a
// Publisher and never manage its lifecycle.
package notify
