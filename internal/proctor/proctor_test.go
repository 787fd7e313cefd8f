package proctor

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rickgao/proctor-live/internal/model"
	"github.com/rickgao/proctor-live/internal/router"
)

// fakeChannel routes through a real Router and records sends.
type fakeChannel struct {
	*router.Router
	sent    []model.Message
	sendErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{Router: router.NewRouter(nil, nil)}
}

func (c *fakeChannel) Send(msgType string, payload any) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	msg, err := model.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func TestOnViolationAlert(t *testing.T) {
	ch := newFakeChannel()

	var got []Violation
	unsub := OnViolationAlert(ch, func(v Violation) { got = append(got, v) })

	ch.Route([]byte(`{"type":"violation_alert","payload":{
		"id":"violation_1","student_id":"student_123","exam_id":"exam-9",
		"type":"face_not_detected","severity":"high","confidence":0.92,
		"timestamp":"2026-03-01T10:00:00Z","metadata":{"frame":42}}}`))

	if len(got) != 1 {
		t.Fatalf("received %d alerts, want 1", len(got))
	}
	v := got[0]
	if v.StudentID != "student_123" || v.Type != "face_not_detected" || v.Severity != SeverityHigh {
		t.Errorf("violation = %+v", v)
	}
	if v.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", v.Confidence)
	}
	if !v.Timestamp.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", v.Timestamp)
	}
	if v.Metadata["frame"] != float64(42) {
		t.Errorf("Metadata = %v", v.Metadata)
	}

	unsub()
	ch.Route([]byte(`{"type":"violation_alert","payload":{"id":"violation_2"}}`))
	if len(got) != 1 {
		t.Errorf("received %d alerts after unsubscribe, want 1", len(got))
	}
}

func TestOnAnalyticsData(t *testing.T) {
	ch := newFakeChannel()

	var got Analytics
	OnAnalyticsData(ch, func(a Analytics) { got = a })

	ch.Route([]byte(`{"type":"analytics_data","payload":{
		"overview":{"total_exams":150,"active_users":45,"violations":12,"trust_score":87.5},
		"recent_violations":[{"id":"v1","type":"face_not_detected","student_id":"student_123","severity":"high"}],
		"timestamp":"2026-03-01T10:00:00Z"}}`))

	if got.Overview.TotalExams != 150 || got.Overview.TrustScore != 87.5 {
		t.Errorf("overview = %+v", got.Overview)
	}
	if len(got.RecentViolations) != 1 || got.RecentViolations[0].ID != "v1" {
		t.Errorf("recent = %+v", got.RecentViolations)
	}
}

func TestOnServerErrorAndWelcome(t *testing.T) {
	ch := newFakeChannel()

	var serverErr ServerError
	var welcome Welcome
	OnServerError(ch, func(e ServerError) { serverErr = e })
	OnConnectionEstablished(ch, func(w Welcome) { welcome = w })

	ch.Route([]byte(`{"type":"error","payload":{"message":"Invalid JSON format","timestamp":"2026-03-01T10:00:00Z"}}`))
	ch.Route([]byte(`{"type":"connection_established","payload":{"message":"Connected","timestamp":"2026-03-01T10:00:00Z"}}`))

	if serverErr.Message != "Invalid JSON format" {
		t.Errorf("error message = %q", serverErr.Message)
	}
	if welcome.Message != "Connected" {
		t.Errorf("welcome message = %q", welcome.Message)
	}
}

func TestTypedConsumer_DecodeFailureIsolated(t *testing.T) {
	ch := newFakeChannel()

	calls := 0
	OnViolationAlert(ch, func(Violation) { calls++ })
	raw := 0
	ch.On(TypeViolationAlert, func(json.RawMessage) error {
		raw++
		return nil
	})

	ch.Route([]byte(`{"type":"violation_alert","payload":{"confidence":"very"}}`))

	if calls != 0 {
		t.Errorf("typed consumer called %d times, want 0", calls)
	}
	if raw != 1 {
		t.Errorf("raw consumer called %d times, want 1", raw)
	}
	if got := ch.Stats().HandlerErrors; got != 1 {
		t.Errorf("HandlerErrors = %d, want 1", got)
	}
}

func TestReportViolation(t *testing.T) {
	tests := []struct {
		name    string
		report  ViolationReport
		wantErr error
	}{
		{
			name:   "valid",
			report: ViolationReport{StudentID: "s1", ExamID: "e1", Type: "tab_switch", Severity: SeverityLow},
		},
		{
			name:   "default severity",
			report: ViolationReport{StudentID: "s1", Type: "tab_switch"},
		},
		{
			name:    "missing student",
			report:  ViolationReport{Type: "tab_switch"},
			wantErr: ErrMissingStudent,
		},
		{
			name:    "missing type",
			report:  ViolationReport{StudentID: "s1"},
			wantErr: ErrMissingType,
		},
		{
			name:    "bad severity",
			report:  ViolationReport{StudentID: "s1", Type: "tab_switch", Severity: "extreme"},
			wantErr: ErrInvalidSeverity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := newFakeChannel()
			err := ReportViolation(ch, tt.report)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				if len(ch.sent) != 0 {
					t.Error("invalid report should not be sent")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReportViolation failed: %v", err)
			}
			if len(ch.sent) != 1 || ch.sent[0].Type != TypeViolationReport {
				t.Fatalf("sent = %+v", ch.sent)
			}
			var got ViolationReport
			if err := json.Unmarshal(ch.sent[0].Payload, &got); err != nil {
				t.Fatalf("decode payload: %v", err)
			}
			if got.StudentID != tt.report.StudentID || got.Type != tt.report.Type {
				t.Errorf("payload = %+v", got)
			}
		})
	}
}

func TestRequestAnalytics(t *testing.T) {
	ch := newFakeChannel()

	if err := RequestAnalytics(ch, AnalyticsRequest{ExamID: "exam-9"}); err != nil {
		t.Fatalf("RequestAnalytics failed: %v", err)
	}
	if string(ch.sent[0].Payload) != `{"exam_id":"exam-9"}` {
		t.Errorf("payload = %s", ch.sent[0].Payload)
	}

	ch.sendErr = errors.New("not connected")
	if err := RequestAnalytics(ch, AnalyticsRequest{}); err == nil {
		t.Error("expected send error to propagate")
	}
}

func TestMarkNotificationRead(t *testing.T) {
	ch := newFakeChannel()

	if err := MarkNotificationRead(ch, ""); !errors.Is(err, ErrMissingNotification) {
		t.Errorf("error = %v, want ErrMissingNotification", err)
	}

	if err := MarkNotificationRead(ch, "n-1"); err != nil {
		t.Fatalf("MarkNotificationRead failed: %v", err)
	}
	if ch.sent[0].Type != TypeNotificationRead || string(ch.sent[0].Payload) != `{"notification_id":"n-1"}` {
		t.Errorf("sent = %+v", ch.sent[0])
	}
}
