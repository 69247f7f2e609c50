// Package notify carries audit trail entries and targeted notifications out of
// the workflow operations. Sinks run after commit and never affect the outcome
// of the operation that produced the event.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Subject types used on events.
const (
	SubjectEquipment   = "equipment"
	SubjectLoan        = "loan"
	SubjectMaintenance = "maintenance"
	SubjectReservation = "reservation"
)

type Event struct {
	SubjectType string
	SubjectID   string
	Subject     string
	Body        string
	AuthorID    string
	// Recipients are user ids; empty means a plain history post.
	Recipients []string
}

func (e Event) Targeted() bool { return len(e.Recipients) > 0 }

func (e Event) String() string {
	if e.Subject == "" {
		return e.Body
	}
	return fmt.Sprintf("%s: %s", e.Subject, e.Body)
}

type Sink interface {
	Post(ctx context.Context, ev Event) error
}

// Fanout posts every event to all sinks and joins their errors.
type Fanout []Sink

func (f Fanout) Post(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Post(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to logrus.
type LogSink struct{ Log *logrus.Logger }

func (s LogSink) Post(_ context.Context, ev Event) error {
	s.Log.WithFields(logrus.Fields{
		"subjectType": ev.SubjectType,
		"subjectId":   ev.SubjectID,
		"author":      ev.AuthorID,
		"recipients":  strings.Join(ev.Recipients, ","),
	}).Info(ev.String())
	return nil
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Post(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events carry the given subject line.
func (r *Recorder) Count(subject string) int {
	n := 0
	for _, ev := range r.Events() {
		if ev.Subject == subject {
			n++
		}
	}
	return n
}

// Dispatch posts events in order. Failures are logged and swallowed.
func Dispatch(ctx context.Context, sink Sink, log *logrus.Logger, events []Event) {
	if sink == nil {
		return
	}
	for _, ev := range events {
		if err := sink.Post(ctx, ev); err != nil && log != nil {
			log.WithFields(logrus.Fields{
				"module":      "notify",
				"subjectType": ev.SubjectType,
				"subjectId":   ev.SubjectID,
			}).Warn("notification failed: " + err.Error())
		}
	}
}
