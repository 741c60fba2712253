// api/audit/service_test.go
package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, entry DecisionLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) IndexDecision(ctx context.Context, entry DecisionLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockRepository) QueryDecisions(ctx context.Context, filter QueryFilter) ([]DecisionLog, error) {
	args := m.Called(ctx, filter)
	if logs := args.Get(0); logs != nil {
		return logs.([]DecisionLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func sampleEntry() DecisionLog {
	return DecisionLog{
		ID:             "dec-1",
		OrganizationID: "org-1",
		UserID:         "u-1",
		ResourceType:   "document",
		Action:         "read",
		Result:         true,
		Reason:         "Allowed by policy: engineering-read",
		Timestamp:      time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC),
	}
}

func TestRecordDecisionEnqueues(t *testing.T) {
	queue := new(mockEnqueuer)
	repo := new(mockRepository)
	entry := sampleEntry()

	queue.On("Enqueue", mock.Anything, entry).Return(nil)

	svc := NewService(queue, repo, time.Second)
	err := svc.RecordDecision(context.Background(), entry)

	require.NoError(t, err)
	queue.AssertExpectations(t)
	repo.AssertNotCalled(t, "IndexDecision", mock.Anything, mock.Anything)
}

// A failed enqueue falls back to a synchronous repository write carrying the
// same record.
func TestRecordDecisionFallsBackOnEnqueueFailure(t *testing.T) {
	queue := new(mockEnqueuer)
	repo := new(mockRepository)
	entry := sampleEntry()

	queue.On("Enqueue", mock.Anything, entry).Return(errors.New("stream full"))
	repo.On("IndexDecision", mock.Anything, entry).Return(nil)

	svc := NewService(queue, repo, time.Second)
	err := svc.RecordDecision(context.Background(), entry)

	require.NoError(t, err)
	queue.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestRecordDecisionWithoutQueueWritesDirectly(t *testing.T) {
	repo := new(mockRepository)
	entry := sampleEntry()

	repo.On("IndexDecision", mock.Anything, entry).Return(nil)

	svc := NewService(nil, repo, time.Second)
	err := svc.RecordDecision(context.Background(), entry)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRecordDecisionReportsRepositoryFailure(t *testing.T) {
	queue := new(mockEnqueuer)
	repo := new(mockRepository)
	entry := sampleEntry()
	repoErr := errors.New("index unavailable")

	queue.On("Enqueue", mock.Anything, entry).Return(errors.New("stream full"))
	repo.On("IndexDecision", mock.Anything, entry).Return(repoErr)

	svc := NewService(queue, repo, time.Second)
	err := svc.RecordDecision(context.Background(), entry)

	assert.ErrorIs(t, err, repoErr)
}

// The enqueue attempt runs under its own deadline so a stalled queue cannot
// hold up the caller.
func TestRecordDecisionBoundsEnqueueTime(t *testing.T) {
	queue := new(mockEnqueuer)
	repo := new(mockRepository)
	entry := sampleEntry()

	var sawDeadline bool
	queue.On("Enqueue", mock.Anything, entry).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, sawDeadline = ctx.Deadline()
		}).
		Return(nil)

	svc := NewService(queue, repo, 0) // zero falls back to the default timeout
	err := svc.RecordDecision(context.Background(), entry)

	require.NoError(t, err)
	assert.True(t, sawDeadline)
}

func TestQueryDecisionsDelegates(t *testing.T) {
	repo := new(mockRepository)
	filter := QueryFilter{OrganizationID: "org-1", Action: "read", Limit: 10}
	expected := []DecisionLog{sampleEntry()}

	repo.On("QueryDecisions", mock.Anything, filter).Return(expected, nil)

	svc := NewService(nil, repo, time.Second)
	logs, err := svc.QueryDecisions(context.Background(), filter)

	require.NoError(t, err)
	assert.Equal(t, expected, logs)
}
