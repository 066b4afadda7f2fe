package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	databaseMocks "github.com/allisson/natter/internal/database/mocks"
	"github.com/allisson/natter/internal/metrics"
	usecaseMocks "github.com/allisson/natter/internal/token/usecase/mocks"
)

// mockTokenMetrics is a mock implementation of metrics.TokenMetrics for testing.
type mockTokenMetrics struct {
	mock.Mock
}

func (m *mockTokenMetrics) RecordOperation(ctx context.Context, kind, operation, status string) {
	m.Called(ctx, kind, operation, status)
}

func (m *mockTokenMetrics) RecordDuration(
	ctx context.Context,
	kind, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, kind, operation, duration, status)
}

func (m *mockTokenMetrics) RecordSwept(ctx context.Context, kind string, count int64) {
	m.Called(ctx, kind, count)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanupUseCase_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	fixedNow := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	newUseCase := func(
		txManager *databaseMocks.MockTxManager,
		m metrics.TokenMetrics,
		sessions, capabilities *usecaseMocks.MockExpiredTokenRepository,
	) *cleanupUseCase {
		uc := NewCleanupUseCase(
			txManager,
			m,
			discardLogger(),
			SweepTarget{Kind: "session", Repo: sessions},
			SweepTarget{Kind: "capability", Repo: capabilities},
		).(*cleanupUseCase)
		uc.now = func() time.Time { return fixedNow }
		return uc
	}

	t.Run("Success_DeletesAndRecordsMetrics", func(t *testing.T) {
		txManager := databaseMocks.NewMockTxManager(t)
		sessions := usecaseMocks.NewMockExpiredTokenRepository(t)
		capabilities := usecaseMocks.NewMockExpiredTokenRepository(t)
		m := &mockTokenMetrics{}

		txManager.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		sessions.On("DeleteExpired", ctx, fixedNow).Return(int64(3), nil).Once()
		capabilities.On("DeleteExpired", ctx, fixedNow).Return(int64(2), nil).Once()
		m.On("RecordSwept", ctx, "session", int64(3)).Return().Once()
		m.On("RecordSwept", ctx, "capability", int64(2)).Return().Once()

		total, err := newUseCase(txManager, m, sessions, capabilities).CleanupExpired(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		m.AssertExpectations(t)
	})

	t.Run("Success_DryRunOnlyCounts", func(t *testing.T) {
		txManager := databaseMocks.NewMockTxManager(t)
		sessions := usecaseMocks.NewMockExpiredTokenRepository(t)
		capabilities := usecaseMocks.NewMockExpiredTokenRepository(t)
		m := &mockTokenMetrics{}

		txManager.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		sessions.On("CountExpired", ctx, fixedNow).Return(int64(4), nil).Once()
		capabilities.On("CountExpired", ctx, fixedNow).Return(int64(0), nil).Once()

		total, err := newUseCase(txManager, m, sessions, capabilities).CleanupExpired(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		m.AssertNotCalled(t, "RecordSwept", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_RepositoryFailureStopsSweep", func(t *testing.T) {
		txManager := databaseMocks.NewMockTxManager(t)
		sessions := usecaseMocks.NewMockExpiredTokenRepository(t)
		capabilities := usecaseMocks.NewMockExpiredTokenRepository(t)
		m := &mockTokenMetrics{}

		txManager.On("WithTx", ctx, mock.Anything).Return(nil).Once()
		sessions.On("DeleteExpired", ctx, fixedNow).Return(int64(0), errors.New("database down")).Once()

		total, err := newUseCase(txManager, m, sessions, capabilities).CleanupExpired(ctx, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to clean up expired session tokens")
		assert.Zero(t, total)
		capabilities.AssertNotCalled(t, "DeleteExpired", mock.Anything, mock.Anything)
	})

	t.Run("Error_TransactionFailure", func(t *testing.T) {
		txManager := databaseMocks.NewMockTxManager(t)
		sessions := usecaseMocks.NewMockExpiredTokenRepository(t)
		capabilities := usecaseMocks.NewMockExpiredTokenRepository(t)

		txManager.On("WithTx", ctx, mock.Anything).Return(errors.New("begin failed")).Once()

		_, err := newUseCase(txManager, metrics.NewNoOpTokenMetrics(), sessions, capabilities).
			CleanupExpired(ctx, false)
		assert.EqualError(t, err, "begin failed")
	})
}
