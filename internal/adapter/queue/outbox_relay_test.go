package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lavanya11112/SEPROJECT/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOutbox struct{ mock.Mock }

func (m *mockOutbox) FetchDue(ctx context.Context, limit int) ([]usecase.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	msgs, _ := args.Get(0).([]usecase.OutboxMessage)
	return msgs, args.Error(1)
}

func (m *mockOutbox) MarkSent(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOutbox) MarkRetry(ctx context.Context, id int64, retryCount int, next time.Time, dead bool) error {
	return m.Called(ctx, id, retryCount, next, dead).Error(0)
}

type mockRaw struct{ mock.Mock }

func (m *mockRaw) PublishRaw(ctx context.Context, routingKey string, body []byte) error {
	return m.Called(ctx, routingKey, body).Error(0)
}

var relayNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newRelay(repo *mockOutbox, pub *mockRaw) *OutboxRelay {
	r := NewOutboxRelay(repo, pub, RelayOptions{BatchSize: 10})
	r.now = func() time.Time { return relayNow }
	return r
}

func TestRelay_PublishesAndMarksSent(t *testing.T) {
	repo, pub := &mockOutbox{}, &mockRaw{}
	repo.On("FetchDue", mock.Anything, 10).Return([]usecase.OutboxMessage{
		{ID: 1, Channel: usecase.ChannelOrderPlaced, Payload: []byte(`{"order_id":"o1"}`)},
		{ID: 2, Channel: usecase.ChannelOrderPlaced, Payload: []byte(`{"order_id":"o2"}`)},
	}, nil).Once()
	pub.On("PublishRaw", mock.Anything, usecase.ChannelOrderPlaced, mock.Anything).Return(nil).Twice()
	repo.On("MarkSent", mock.Anything, int64(1)).Return(nil).Once()
	repo.On("MarkSent", mock.Anything, int64(2)).Return(nil).Once()

	n, err := newRelay(repo, pub).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestRelay_FailedPublishBacksOff(t *testing.T) {
	repo, pub := &mockOutbox{}, &mockRaw{}
	repo.On("FetchDue", mock.Anything, 10).Return([]usecase.OutboxMessage{
		{ID: 7, Channel: usecase.ChannelOrderPlaced, Payload: []byte(`{}`), RetryCount: 2},
	}, nil).Once()
	pub.On("PublishRaw", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	repo.On("MarkRetry", mock.Anything, int64(7), 3, relayNow.Add(90*time.Second), false).Return(nil).Once()

	n, err := newRelay(repo, pub).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything)
}

func TestRelay_GivesUpAfterMaxRetries(t *testing.T) {
	repo, pub := &mockOutbox{}, &mockRaw{}
	repo.On("FetchDue", mock.Anything, 10).Return([]usecase.OutboxMessage{
		{ID: 9, Channel: usecase.ChannelOrderPlaced, RetryCount: 9},
	}, nil).Once()
	pub.On("PublishRaw", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("nack")).Once()
	repo.On("MarkRetry", mock.Anything, int64(9), 10, mock.Anything, true).Return(nil).Once()

	_, err := newRelay(repo, pub).RunOnce(context.Background())
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRelay_FetchError(t *testing.T) {
	repo := &mockOutbox{}
	repo.On("FetchDue", mock.Anything, 10).Return(nil, errors.New("db gone")).Once()

	_, err := newRelay(repo, &mockRaw{}).RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	repo := &mockOutbox{}
	repo.On("FetchDue", mock.Anything, 10).Return(nil, nil)
	r := newRelay(repo, &mockRaw{})
	r.opts.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
