package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_Generate(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("hello", "world")

	for _, stream := range []bool{false, true} {
		respCh, errCh := m.Generate(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Text: "hello"}}, Stream: stream})
		text, err := Collect(context.Background(), respCh, errCh)
		require.NoError(t, err)
		assert.Equal(t, "world", text)
	}

	respCh, errCh := m.Generate(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Text: "other"}}})
	text, err := Collect(context.Background(), respCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: other", text)

	assert.Len(t, m.Requests(), 3)
	assert.Equal(t, Info{Name: "mock", Provider: "test"}, m.Info())
}

func TestMockModel_NoTurns(t *testing.T) {
	m := NewMockModel("mock", "test")
	respCh, errCh := m.Generate(context.Background(), Request{})
	_, err := Collect(context.Background(), respCh, errCh)
	assert.Error(t, err)
}

func TestCollect(t *testing.T) {
	t.Run("partials only", func(t *testing.T) {
		respCh := make(chan Response, 2)
		errCh := make(chan error)
		respCh <- Response{Partial: true, Text: "ab"}
		respCh <- Response{Partial: true, Text: "c"}
		close(respCh)
		close(errCh)

		text, err := Collect(context.Background(), respCh, errCh)
		require.NoError(t, err)
		assert.Equal(t, "abc", text)
	})

	t.Run("empty stream", func(t *testing.T) {
		respCh := make(chan Response)
		errCh := make(chan error)
		close(respCh)
		close(errCh)

		_, err := Collect(context.Background(), respCh, errCh)
		assert.ErrorIs(t, err, ErrNoOutput)
	})

	t.Run("error", func(t *testing.T) {
		respCh := make(chan Response)
		errCh := make(chan error, 1)
		errCh <- errors.New("boom")
		close(respCh)
		close(errCh)

		_, err := Collect(context.Background(), respCh, errCh)
		assert.EqualError(t, err, "boom")
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Collect(ctx, make(chan Response), make(chan error))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
