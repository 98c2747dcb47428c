package viewer

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"vigil/internal/config"
)

// Activity names accepted in watch.activities.
const (
	ActivityRefresh = "refresh"
	ActivityScroll  = "scroll"
	ActivityLike    = "like"
	ActivityChat    = "chat"
)

const (
	refreshWaitTimeout     = 30 * time.Second
	activityElementTimeout = 10 * time.Second
)

const scrollScript = `() => {
	window.scrollTo({
		top: Math.random() * document.body.scrollHeight,
		behavior: 'smooth',
	});
}`

// Activity is one viewer interaction fired during the watch loop. The
// caller absorbs failures, so implementations report errors without
// retrying.
type Activity interface {
	Name() string
	Run(ctx context.Context, page *rod.Page) error
}

// Picker selects the activity for a tick.
type Picker interface {
	Pick(activities []Activity) Activity
}

// NewRandomPicker returns the default uniform-random picker.
func NewRandomPicker() Picker {
	return randomPicker{}
}

type randomPicker struct{}

func (randomPicker) Pick(activities []Activity) Activity {
	if len(activities) == 0 {
		return nil
	}
	return activities[rand.Intn(len(activities))]
}

// buildActivities maps configured activity names onto implementations.
// Config validation already rejected unknown names, so they are skipped
// here.
func buildActivities(watch config.Watch) []Activity {
	activities := make([]Activity, 0, len(watch.Activities))
	for _, name := range watch.Activities {
		switch name {
		case ActivityRefresh:
			activities = append(activities, refreshActivity{})
		case ActivityScroll:
			activities = append(activities, scrollActivity{})
		case ActivityLike:
			activities = append(activities, likeActivity{})
		case ActivityChat:
			activities = append(activities, chatActivity{message: watch.ChatMessage})
		}
	}
	return activities
}

// refreshActivity reloads the page and waits for the player to come
// back.
type refreshActivity struct{}

func (refreshActivity) Name() string { return ActivityRefresh }

func (refreshActivity) Run(ctx context.Context, page *rod.Page) error {
	if err := page.Context(ctx).Reload(); err != nil {
		return err
	}
	_, err := page.Context(ctx).Timeout(refreshWaitTimeout).Element(playerMountSelector)
	return err
}

// scrollActivity scrolls to a random vertical position.
type scrollActivity struct{}

func (scrollActivity) Name() string { return ActivityScroll }

func (scrollActivity) Run(ctx context.Context, page *rod.Page) error {
	_, err := page.Context(ctx).Eval(scrollScript)
	return err
}

// likeActivity clicks the like button when one is present. A missing
// button is not an error.
type likeActivity struct{}

func (likeActivity) Name() string { return ActivityLike }

func (likeActivity) Run(ctx context.Context, page *rod.Page) error {
	found, el, err := page.Context(ctx).Has(likeButtonSelector)
	if err != nil || !found {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// chatActivity types the configured message into the chat box and sends
// it.
type chatActivity struct {
	message string
}

func (chatActivity) Name() string { return ActivityChat }

func (a chatActivity) Run(ctx context.Context, page *rod.Page) error {
	input, err := page.Context(ctx).Timeout(activityElementTimeout).Element(chatInputSelector)
	if err != nil {
		return err
	}
	if err := input.Input(a.message); err != nil {
		return err
	}
	send, err := page.Context(ctx).Timeout(activityElementTimeout).Element(chatSendSelector)
	if err != nil {
		return err
	}
	return send.Click(proto.InputMouseButtonLeft, 1)
}
