package subscription

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/rickgao/proctor-live/internal/model"
)

// Kind selects the wire vocabulary for a channel.
type Kind string

const (
	KindRoom Kind = "room"
	KindExam Kind = "exam"
)

// Channel identifies one logical subscription.
type Channel struct {
	Kind Kind
	ID   string
}

// Room returns a room channel.
func Room(id string) Channel { return Channel{Kind: KindRoom, ID: id} }

// Exam returns an exam channel.
func Exam(id string) Channel { return Channel{Kind: KindExam, ID: id} }

func (c Channel) String() string {
	return string(c.Kind) + ":" + c.ID
}

// SubscribeMessage returns the message that activates c on the server.
func (c Channel) SubscribeMessage() (model.Message, error) {
	switch c.Kind {
	case KindRoom:
		return model.NewMessage(model.TypeJoinRoom, model.RoomPayload{RoomID: c.ID})
	case KindExam:
		return model.NewMessage(model.TypeSubscribeExam, model.ExamPayload{ExamID: c.ID})
	default:
		return model.Message{}, fmt.Errorf("unknown channel kind %q", c.Kind)
	}
}

// UnsubscribeMessage returns the message that deactivates c on the server.
func (c Channel) UnsubscribeMessage() (model.Message, error) {
	switch c.Kind {
	case KindRoom:
		return model.NewMessage(model.TypeLeaveRoom, model.RoomPayload{RoomID: c.ID})
	case KindExam:
		return model.NewMessage(model.TypeUnsubscribeExam, model.ExamPayload{ExamID: c.ID})
	default:
		return model.Message{}, fmt.Errorf("unknown channel kind %q", c.Kind)
	}
}

// Sender is the connection the tracker sends through.
type Sender interface {
	Transmit(msg model.Message) error
}

// Tracker remembers channel memberships across connection churn.
//
// While active, Subscribe and Unsubscribe send immediately; otherwise they
// only update the set. Activate takes the replay snapshot and flips to
// active in one step, so a concurrent Subscribe lands in exactly one of the
// replay and the immediate send.
type Tracker struct {
	sender Sender
	logger *slog.Logger

	mu       sync.Mutex
	active   bool
	channels map[Channel]struct{}
}

// NewTracker creates an empty, inactive Tracker.
func NewTracker(sender Sender, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{
		sender:   sender,
		logger:   logger.With("component", "subscriptions"),
		channels: make(map[Channel]struct{}),
	}
}

// Subscribe tracks c and, if active, activates it on the server now.
func (t *Tracker) Subscribe(c Channel) error {
	msg, err := c.SubscribeMessage()
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.channels[c] = struct{}{}
	active := t.active
	t.mu.Unlock()

	if !active {
		t.logger.Debug("channel queued for next connection", "channel", c.String())
		return nil
	}
	return t.transmit(c, msg)
}

// Unsubscribe stops tracking c and, if active, deactivates it on the server now.
func (t *Tracker) Unsubscribe(c Channel) error {
	msg, err := c.UnsubscribeMessage()
	if err != nil {
		return err
	}

	t.mu.Lock()
	delete(t.channels, c)
	active := t.active
	t.mu.Unlock()

	if !active {
		return nil
	}
	return t.transmit(c, msg)
}

// Activate marks the tracker live and returns the channels to replay.
// It does not send; pass the result to Replay.
func (t *Tracker) Activate() []Channel {
	t.mu.Lock()
	t.active = true
	out := t.snapshotLocked()
	t.mu.Unlock()
	return out
}

// Suspend stops immediate sends until the next Activate. Idempotent.
func (t *Tracker) Suspend() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
}

// Active reports whether changes are sent immediately.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Replay sends a subscribe message for each channel and returns the number
// transmitted.
func (t *Tracker) Replay(channels []Channel) int {
	sent := 0
	for _, c := range channels {
		msg, err := c.SubscribeMessage()
		if err != nil {
			continue
		}
		if err := t.transmit(c, msg); err != nil {
			continue
		}
		sent++
	}

	if len(channels) > 0 {
		t.logger.Info("replayed subscriptions", "tracked", len(channels), "sent", sent)
	}
	return sent
}

// ReplayAll activates the tracker and sends a subscribe message for every
// tracked channel. The order is not a contract.
func (t *Tracker) ReplayAll() int {
	return t.Replay(t.Activate())
}

// Channels returns a snapshot of the tracked set, sorted for stable output.
func (t *Tracker) Channels() []Channel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() []Channel {
	out := make([]Channel, 0, len(t.channels))
	for c := range t.channels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Has reports whether c is tracked.
func (t *Tracker) Has(c Channel) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.channels[c]
	return ok
}

func (t *Tracker) transmit(c Channel, msg model.Message) error {
	if err := t.sender.Transmit(msg); err != nil {
		t.logger.Warn("failed to send subscription change",
			"channel", c.String(),
			"type", msg.Type,
			"error", err,
		)
		return fmt.Errorf("send %s for %s: %w", msg.Type, c, err)
	}
	return nil
}
