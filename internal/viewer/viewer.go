package viewer

import "context"

// Factory creates browser-backed viewer sessions. One session is created
// per task attempt and torn down when the attempt reaches a terminal
// state.
type Factory interface {
	// Create launches a browser instance and prepares it for stream
	// playback. The credentials map carries cookie name/value pairs and
	// is injected best-effort: the session is still returned when cookie
	// installation fails.
	Create(ctx context.Context, credentials map[string]string) (Session, error)
}

// Session is a single browser presence on a live-stream page.
//
// A session belongs to one executor goroutine and is not safe for
// concurrent use.
type Session interface {
	// OpenStream navigates to the stream page for the room and waits for
	// the player mount point to appear. Playback readiness is probed
	// afterwards but not required.
	OpenStream(ctx context.Context, roomID string) error

	// Alive asserts the stream player is still mounted. An error means
	// the stream is no longer watchable.
	Alive(ctx context.Context) error

	// ActivityTick performs one randomly picked viewer activity.
	ActivityTick(ctx context.Context) error

	// Snapshot captures a PNG of the current page into the snapshot
	// directory and returns the written path.
	Snapshot(ctx context.Context, prefix string) (string, error)

	// Close tears the browser down. Safe to call more than once.
	Close(ctx context.Context) error
}
