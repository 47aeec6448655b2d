// Package devices manages the devices signed in to the media server.
//
// GetDevices loads the list, most recently active first. DeleteDevices
// removes several devices concurrently and reloads the list; the device
// usher runs as is never deleted, and asking for it is not an error.
package devices
