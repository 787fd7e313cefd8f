package subscription

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rickgao/proctor-live/internal/model"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []model.Message
	err  error
}

func (f *fakeSender) Transmit(msg model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) messages() []model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Message(nil), f.sent...)
}

func TestChannel_Messages(t *testing.T) {
	tests := []struct {
		channel   Channel
		subType   string
		unsubType string
		payload   string
	}{
		{Room("r-1"), model.TypeJoinRoom, model.TypeLeaveRoom, `{"room_id":"r-1"}`},
		{Exam("42"), model.TypeSubscribeExam, model.TypeUnsubscribeExam, `{"exam_id":"42"}`},
	}

	for _, tt := range tests {
		t.Run(tt.channel.String(), func(t *testing.T) {
			sub, err := tt.channel.SubscribeMessage()
			if err != nil {
				t.Fatalf("SubscribeMessage: %v", err)
			}
			if sub.Type != tt.subType || string(sub.Payload) != tt.payload {
				t.Errorf("subscribe = %s %s", sub.Type, sub.Payload)
			}

			unsub, err := tt.channel.UnsubscribeMessage()
			if err != nil {
				t.Fatalf("UnsubscribeMessage: %v", err)
			}
			if unsub.Type != tt.unsubType || string(unsub.Payload) != tt.payload {
				t.Errorf("unsubscribe = %s %s", unsub.Type, unsub.Payload)
			}
		})
	}

	if _, err := (Channel{Kind: "bogus", ID: "x"}).SubscribeMessage(); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestTracker_SubscribeWhileDisconnected(t *testing.T) {
	s := &fakeSender{}
	tr := NewTracker(s, nil)

	if err := tr.Subscribe(Exam("7")); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if len(s.messages()) != 0 {
		t.Fatalf("sent %d messages while disconnected", len(s.messages()))
	}
	if !tr.Has(Exam("7")) {
		t.Fatal("channel not tracked")
	}

	if n := tr.ReplayAll(); n != 1 {
		t.Errorf("ReplayAll sent %d, want 1", n)
	}

	msgs := s.messages()
	if len(msgs) != 1 || msgs[0].Type != model.TypeSubscribeExam {
		t.Fatalf("messages = %+v", msgs)
	}
	var p model.ExamPayload
	if err := json.Unmarshal(msgs[0].Payload, &p); err != nil || p.ExamID != "7" {
		t.Errorf("payload = %s", msgs[0].Payload)
	}
}

func TestTracker_SubscribeWhileConnected(t *testing.T) {
	s := &fakeSender{}
	tr := NewTracker(s, nil)
	tr.Activate()

	if err := tr.Subscribe(Room("lobby")); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	msgs := s.messages()
	if len(msgs) != 1 || msgs[0].Type != model.TypeJoinRoom {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestTracker_Unsubscribe(t *testing.T) {
	s := &fakeSender{}
	tr := NewTracker(s, nil)
	tr.Activate()

	tr.Subscribe(Room("a"))
	tr.Subscribe(Room("b"))
	if err := tr.Unsubscribe(Room("a")); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	msgs := s.messages()
	if last := msgs[len(msgs)-1]; last.Type != model.TypeLeaveRoom || string(last.Payload) != `{"room_id":"a"}` {
		t.Errorf("last message = %s %s", last.Type, last.Payload)
	}

	got := tr.Channels()
	if len(got) != 1 || got[0] != Room("b") {
		t.Errorf("Channels = %v, want [room:b]", got)
	}
}

func TestTracker_UnsubscribeWhileDisconnected(t *testing.T) {
	s := &fakeSender{}
	tr := NewTracker(s, nil)

	tr.Subscribe(Exam("1"))
	tr.Unsubscribe(Exam("1"))

	if len(s.messages()) != 0 {
		t.Errorf("sent messages while disconnected")
	}
	if n := tr.ReplayAll(); n != 0 {
		t.Errorf("ReplayAll sent %d for an untracked channel", n)
	}
}

func TestTracker_ReplayAllIsSet(t *testing.T) {
	s := &fakeSender{}
	tr := NewTracker(s, nil)

	for _, c := range []Channel{Exam("3"), Room("x"), Exam("1"), Exam("3")} {
		tr.Subscribe(c)
	}

	if n := tr.ReplayAll(); n != 3 {
		t.Errorf("ReplayAll sent %d, want 3 distinct channels", n)
	}

	// A second connection replays the same set again.
	if n := tr.ReplayAll(); n != 3 {
		t.Errorf("second ReplayAll sent %d, want 3", n)
	}
}

func TestTracker_TransmitFailure(t *testing.T) {
	s := &fakeSender{err: errors.New("write: broken pipe")}
	tr := NewTracker(s, nil)
	tr.Activate()

	if err := tr.Subscribe(Room("a")); err == nil {
		t.Error("expected error from failed transmit")
	}
	if !tr.Has(Room("a")) {
		t.Error("failed transmit must keep the channel tracked for replay")
	}
	if n := tr.ReplayAll(); n != 0 {
		t.Errorf("ReplayAll counted %d failed sends", n)
	}
}

func TestTracker_SuspendQueues(t *testing.T) {
	s := &fakeSender{}
	tr := NewTracker(s, nil)
	tr.ReplayAll()

	tr.Subscribe(Room("a"))
	tr.Suspend()
	tr.Suspend()
	if tr.Active() {
		t.Fatal("tracker active after Suspend")
	}
	tr.Subscribe(Room("b"))
	tr.Unsubscribe(Room("a"))

	if n := len(s.messages()); n != 1 {
		t.Fatalf("sent %d messages, want 1 before Suspend", n)
	}
	if n := tr.ReplayAll(); n != 1 {
		t.Errorf("ReplayAll sent %d, want 1 (room:b)", n)
	}
}

func TestTracker_SubscribeDuringActivateSentOnce(t *testing.T) {
	const n = 50

	s := &fakeSender{}
	tr := NewTracker(s, nil)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			tr.Subscribe(Room(fmt.Sprintf("r-%02d", i)))
		}(i)
	}

	close(start)
	tr.Replay(tr.Activate())
	wg.Wait()

	seen := make(map[string]int)
	for _, msg := range s.messages() {
		seen[string(msg.Payload)]++
	}
	if len(seen) != n {
		t.Fatalf("distinct rooms sent = %d, want %d", len(seen), n)
	}
	for payload, count := range seen {
		if count != 1 {
			t.Errorf("%s sent %d times", payload, count)
		}
	}
}
