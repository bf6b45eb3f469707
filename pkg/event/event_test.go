package event

import (
	"context"
	"testing"
)

func TestFireCallsListenersInOrder(t *testing.T) {
	b := New()
	var got []string
	b.Listen("course.created", func(_ context.Context, p interface{}) { got = append(got, "a:"+p.(string)) })
	b.Listen("course.created", func(_ context.Context, p interface{}) { got = append(got, "b:"+p.(string)) })
	b.Listen("course.deleted", func(context.Context, interface{}) { t.Error("wrong event delivered") })

	b.Fire(context.Background(), "course.created", "x")

	if len(got) != 2 || got[0] != "a:x" || got[1] != "b:x" {
		t.Errorf("unexpected calls: %v", got)
	}
}

func TestFireSurvivesPanic(t *testing.T) {
	b := New()
	called := false
	b.Listen("e", func(context.Context, interface{}) { panic("boom") })
	b.Listen("e", func(context.Context, interface{}) { called = true })

	b.Fire(context.Background(), "e", nil)
	if !called {
		t.Error("second listener must run after the first panics")
	}
}

func TestFlush(t *testing.T) {
	b := New()
	b.Listen("e", func(context.Context, interface{}) { t.Error("flushed listener called") })
	b.Flush()
	b.Fire(context.Background(), "e", nil)
}
