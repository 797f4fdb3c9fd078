package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type submitterStub struct {
	payloads []interface{}
	err      error
}

func (s *submitterStub) Submit(jobType string, payload interface{}) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.payloads = append(s.payloads, payload)
	return fmt.Sprintf("job-%d", len(s.payloads)), nil
}

type refresherStub struct {
	students []string
	err      error
}

func (r *refresherStub) Refresh(ctx context.Context, studentID string) error {
	r.students = append(r.students, studentID)
	return r.err
}

func TestWarmupServiceEnqueuesDistinctStudents(t *testing.T) {
	queue := &submitterStub{}
	svc := NewWarmupService(queue, nil, zap.NewNop())

	resp, err := svc.Enqueue(context.Background(), dto.WarmupRequest{StudentIDs: []string{"stu-1", " stu-1 ", "  ", "stu-2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1", "job-2"}, resp.JobIDs)
	assert.Equal(t, []interface{}{"stu-1", "stu-2"}, queue.payloads)
}

func TestWarmupServiceValidation(t *testing.T) {
	svc := NewWarmupService(&submitterStub{}, nil, zap.NewNop())
	_, err := svc.Enqueue(context.Background(), dto.WarmupRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Enqueue(context.Background(), dto.WarmupRequest{StudentIDs: []string{" ", "\t"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	failing := NewWarmupService(&submitterStub{err: errors.New("queue warmup not started")}, nil, zap.NewNop())
	_, err = failing.Enqueue(context.Background(), dto.WarmupRequest{StudentIDs: []string{"stu-1"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestRecommendationWorkerHandle(t *testing.T) {
	refresher := &refresherStub{}
	metrics := NewMetricsService()
	worker := NewRecommendationWorker(refresher, metrics, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "j1", Type: JobTypeRecommendationWarmup, Payload: "stu-1"}))
	assert.Equal(t, []string{"stu-1"}, refresher.students)

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "j2", Payload: 42}), "bad payloads are dropped")
	assert.Len(t, refresher.students, 1)

	refresher.err = errors.New("db down")
	err := worker.Handle(context.Background(), jobs.Job{ID: "j3", Payload: "stu-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stu-2")
}
