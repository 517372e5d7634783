package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/application/usecase"
	"github.com/bibbank/fund/internal/domain/event"
	"github.com/bibbank/fund/pkg/events"
	"github.com/bibbank/fund/pkg/testutil"
)

func TestRelayOutbox_Execute(t *testing.T) {
	f := newFixture(t, testutil.Date(2025, time.March, 10))
	f.activeMembers(t)
	reportPayment(t, f, "134000", "n-1")
	_, err := usecase.NewRequestWithdrawalUseCase(f.deps).Execute(context.Background(), dto.RequestWithdrawalRequest{
		MemberID: testutil.MemberID2, Reason: "retiring",
	})
	require.NoError(t, err)

	t.Run("failed topic stays unpublished", func(t *testing.T) {
		publisher := &mockEventPublisher{
			publishFn: func(_ context.Context, topic string, _ ...events.OutboxEntry) error {
				if topic == event.TopicMemberEvents {
					return errors.New("broker unavailable")
				}
				return nil
			},
		}

		resp, err := usecase.NewRelayOutboxUseCase(f.deps, publisher).Execute(context.Background(), dto.RelayOutboxRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Published)
		assert.Equal(t, 1, resp.Failed)

		require.Len(t, publisher.published[event.TopicPaymentEvents], 1)
		assert.Equal(t, "fund.payment.reported", publisher.published[event.TopicPaymentEvents][0].EventType)
		assert.Empty(t, publisher.published[event.TopicMemberEvents])

		pending, err := f.store.Outbox().FetchUnpublished(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "fund.withdrawal.status_changed", pending[0].EventType)
	})

	t.Run("retry publishes the remainder", func(t *testing.T) {
		publisher := &mockEventPublisher{}

		resp, err := usecase.NewRelayOutboxUseCase(f.deps, publisher).Execute(context.Background(), dto.RelayOutboxRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Published)
		assert.Zero(t, resp.Failed)
		assert.Len(t, publisher.published[event.TopicMemberEvents], 1)
	})

	t.Run("nothing left", func(t *testing.T) {
		publisher := &mockEventPublisher{}

		resp, err := usecase.NewRelayOutboxUseCase(f.deps, publisher).Execute(context.Background(), dto.RelayOutboxRequest{})
		require.NoError(t, err)
		assert.Equal(t, dto.RelayOutboxResponse{}, resp)
		assert.Empty(t, publisher.published)
	})
}

func TestRelayOutbox_BatchSize(t *testing.T) {
	f := newFixture(t, testutil.Date(2025, time.March, 10))
	f.activeMembers(t)
	for _, nonce := range []string{"a", "b", "c"} {
		reportPayment(t, f, "1000", nonce)
	}
	publisher := &mockEventPublisher{}

	resp, err := usecase.NewRelayOutboxUseCase(f.deps, publisher).Execute(context.Background(), dto.RelayOutboxRequest{BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Published)

	pending, err := f.store.Outbox().FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
