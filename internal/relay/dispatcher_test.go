package relay

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxrelay/internal/logger"
	"wxrelay/internal/wechat"
)

func TestDispatchPartialSuccess(t *testing.T) {
	d := NewDispatcher(logger.NopLogger())

	result, err := d.Dispatch(context.Background(), []string{"A", "B", "C"},
		func(ctx context.Context, recipient string) (*wechat.SendResult, error) {
			if recipient == "B" {
				return &wechat.SendResult{ErrCode: 43004, ErrMsg: "require subscribe"}, nil
			}
			return &wechat.SendResult{ErrMsg: "ok"}, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Len(t, result.Outcomes, 3)
	assert.True(t, result.Outcomes[0].Success)
	assert.False(t, result.Outcomes[1].Success)
	assert.True(t, result.Outcomes[2].Success)
}

func TestDispatchAllFailReportsFirstErrorInOrder(t *testing.T) {
	d := NewDispatcher(logger.NopLogger())

	result, err := d.Dispatch(context.Background(), []string{"A", "B", "C"},
		func(ctx context.Context, recipient string) (*wechat.SendResult, error) {
			return &wechat.SendResult{ErrMsg: "error for " + recipient}, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, "error for A", result.FirstError())
}

func TestDispatchRunsAllSendsConcurrently(t *testing.T) {
	d := NewDispatcher(logger.NopLogger())

	var mu sync.Mutex
	var seen []string

	result, err := d.Dispatch(context.Background(), []string{"A", "B", "C", "D"},
		func(ctx context.Context, recipient string) (*wechat.SendResult, error) {
			mu.Lock()
			seen = append(seen, recipient)
			mu.Unlock()
			return &wechat.SendResult{ErrMsg: "ok"}, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 4, result.Succeeded)
	assert.ElementsMatch(t, []string{"A", "B", "C", "D"}, seen)
}

func TestDispatchTransportErrorDoesNotCancelSiblings(t *testing.T) {
	d := NewDispatcher(logger.NopLogger())

	var mu sync.Mutex
	calls := 0

	result, err := d.Dispatch(context.Background(), []string{"A", "B", "C"},
		func(ctx context.Context, recipient string) (*wechat.SendResult, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			if recipient == "A" {
				return nil, errors.New("connection refused")
			}
			return &wechat.SendResult{ErrMsg: "ok"}, nil
		})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, result.Succeeded)
}

func TestDispatchEmptyRecipients(t *testing.T) {
	d := NewDispatcher(logger.NopLogger())

	result, err := d.Dispatch(context.Background(), nil,
		func(ctx context.Context, recipient string) (*wechat.SendResult, error) {
			t.Fatal("send must not be called")
			return nil, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Succeeded)
}

func TestSplitRecipients(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "trims and filters",
			input: "A| B |C",
			want:  []string{"A", "B", "C"},
		},
		{
			name:  "single recipient",
			input: "OPENID1",
			want:  []string{"OPENID1"},
		},
		{
			name:  "empty segments dropped",
			input: "|A||B|",
			want:  []string{"A", "B"},
		},
		{
			name:  "all empty",
			input: " | | ",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitRecipients(tt.input))
		})
	}
}
