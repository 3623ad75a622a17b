package session

import (
	"fmt"
	"math/rand"
	"sync"
)

var poorMessages = []string{
	"You're slouching! Sit up tall, shoulders back.",
	"Head's drifting forward. Tuck your chin, lift your chest.",
	"Time for a posture reset! Imagine a string pulling you up from the top of your head.",
	"Your back called. It wants its posture back.",
	"Shrimp detected! Unshrimp yourself.",
	"You're turning into a human question mark. Straighten up!",
	"Your spine is not a banana. Straighten it out!",
	"Slouch alert! Your future self will thank you for sitting up.",
}

var goodMessages = []string{
	"Great posture! Keep it up!",
	"Looking tall and proud! Nice work.",
	"Your spine is happy right now.",
	"Posture game: strong.",
	"The shrimp approves. Stay straight!",
}

// Messages picks notification text for events.
type Messages struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMessages creates a picker drawing from rnd.
func NewMessages(rnd *rand.Rand) *Messages {
	return &Messages{rnd: rnd}
}

func (m *Messages) pick(from []string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return from[m.rnd.Intn(len(from))]
}

// Compose returns the notification title and body for ev.
func (m *Messages) Compose(ev Event) (title, message string) {
	switch ev.Kind {
	case EventRecovery:
		return "ShrimpWatch: Nice recovery!", m.pick(goodMessages)
	default:
		return fmt.Sprintf("ShrimpWatch: Score %d/100", ev.Score), m.pick(poorMessages)
	}
}
