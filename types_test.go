package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		format string
		args   []any
		want   string
	}{
		{name: "printf", format: "user %s failed %d times", args: []any{"alice", 3}, want: "user alice failed 3 times\n"},
		{name: "key values", format: "login rejected", args: []any{"identifier", "alice", "reason", "password mismatch"}, want: "login rejected identifier=alice reason=password mismatch\n"},
		{name: "odd args", format: "refresh rejected", args: []any{"reason"}, want: "refresh rejected reason\n"},
		{name: "keeps newline", format: "done\n", want: "done\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(tt.format, tt.args...))
		})
	}
}

func TestNormalizeActivitySink(t *testing.T) {
	assert.IsType(t, noopActivitySink{}, normalizeActivitySink(nil))

	var seen []ActivityEventType
	multi := MultiActivitySink{nil, ActivitySinkFunc(func(_ context.Context, e ActivityEvent) error {
		seen = append(seen, e.EventType)
		return nil
	})}
	assert.NoError(t, multi.Record(context.TODO(), ActivityEvent{EventType: ActivityEventLogout}))
	assert.Equal(t, []ActivityEventType{ActivityEventLogout}, seen)

	var fn ActivitySinkFunc
	assert.NoError(t, fn.Record(context.TODO(), ActivityEvent{}))
}
