// Package mocks provides mock implementations of the token usecase interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockExpiredTokenRepository is a mock implementation of usecase.ExpiredTokenRepository.
type MockExpiredTokenRepository struct {
	mock.Mock
}

// NewMockExpiredTokenRepository creates a mock that asserts its expectations on test cleanup.
func NewMockExpiredTokenRepository(t testingT) *MockExpiredTokenRepository {
	m := &MockExpiredTokenRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// DeleteExpired mocks the DeleteExpired method.
func (m *MockExpiredTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// CountExpired mocks the CountExpired method.
func (m *MockExpiredTokenRepository) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockCleanupUseCase is a mock implementation of usecase.CleanupUseCase.
type MockCleanupUseCase struct {
	mock.Mock
}

// NewMockCleanupUseCase creates a mock that asserts its expectations on test cleanup.
func NewMockCleanupUseCase(t testingT) *MockCleanupUseCase {
	m := &MockCleanupUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// CleanupExpired mocks the CleanupExpired method.
func (m *MockCleanupUseCase) CleanupExpired(ctx context.Context, dryRun bool) (int64, error) {
	args := m.Called(ctx, dryRun)
	return args.Get(0).(int64), args.Error(1)
}
