package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/slack-go/slack"
)

type failingSink struct{}

func (failingSink) Post(context.Context, Event) error { return errors.New("down") }

func TestFanoutPostsToAllSinks(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	err := Fanout{a, failingSink{}, b}.Post(context.Background(), Event{Subject: "Equipment Issued"})
	if err == nil {
		t.Error("expected joined error from the failing sink")
	}
	if a.Count("Equipment Issued") != 1 || b.Count("Equipment Issued") != 1 {
		t.Error("every healthy sink should still receive the event")
	}
}

func TestDispatchSwallowsErrors(t *testing.T) {
	rec := &Recorder{}
	Dispatch(context.Background(), Fanout{failingSink{}, rec}, nil, []Event{{Subject: "a"}, {Subject: "b"}})
	if len(rec.Events()) != 2 {
		t.Errorf("expected 2 events, got %d", len(rec.Events()))
	}
}

func TestSlackSinkOnlyTargeted(t *testing.T) {
	var calls int32
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = r.ParseForm()
		body = r.PostForm.Get("text")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1.0"}`))
	}))
	defer srv.Close()

	s := &SlackSink{
		API:     slack.New("xoxb-test", slack.OptionAPIURL(srv.URL+"/")),
		Channel: "C1",
		Names: func(_ context.Context, ids []string) []string {
			return []string{"Alice"}
		},
	}
	ctx := context.Background()
	if err := s.Post(ctx, Event{Subject: "history only", Body: "x"}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("history-only events must not reach Slack")
	}
	if err := s.Post(ctx, Event{Subject: "Overdue Equipment", Body: "return it", Recipients: []string{"u1"}}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one Slack call, got %d", calls)
	}
	if !strings.Contains(body, "Overdue Equipment") || !strings.Contains(body, "Alice") {
		t.Errorf("unexpected slack text %q", body)
	}
}
