// Package viewer drives the headless browser presence on a live-stream
// page. A Factory launches one browser per task attempt and hands back a
// Session that the watch loop steers: open the stream, assert the player
// is still mounted, fire viewer activities, and capture evidence when
// playback breaks.
package viewer
