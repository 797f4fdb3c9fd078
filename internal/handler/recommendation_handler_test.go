package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type recommenderMock struct {
	studentID string
	captured  dto.RecommendationRequest
	cached    bool
	err       error
}

func (m *recommenderMock) Recommend(ctx context.Context, studentID string, req dto.RecommendationRequest) (*dto.RecommendationResponse, bool, error) {
	m.studentID = studentID
	m.captured = req
	if m.err != nil {
		return nil, false, m.err
	}
	return &dto.RecommendationResponse{StudentID: studentID, TotalEligibleSubjects: 2, Warnings: []dto.Warning{}}, m.cached, nil
}

type warmupMock struct {
	captured dto.WarmupRequest
}

func (m *warmupMock) Enqueue(ctx context.Context, req dto.WarmupRequest) (*dto.WarmupResponse, error) {
	m.captured = req
	return &dto.WarmupResponse{JobIDs: []string{"job-1"}}, nil
}

func newRecommendationRouter(svc *recommenderMock, warmup *warmupMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewRecommendationHandler(svc, warmup, nil)
	router := gin.New()
	router.Use(internalmiddleware.WithResponseMeta())
	router.POST("/students/:id/recommendations", handler.Recommend)
	router.POST("/recommendations/warmup", handler.Warmup)
	return router
}

func TestRecommendationHandlerSuccess(t *testing.T) {
	svc := &recommenderMock{cached: true}
	router := newRecommendationRouter(svc, &warmupMock{})

	req := httptest.NewRequest(http.MethodPost, "/students/stu-1/recommendations", bytes.NewReader([]byte(`{"topN":3,"weights":{"passRate":1,"evaluation":0}}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", svc.studentID)
	assert.Equal(t, 3, svc.captured.TopN)
	require.NotNil(t, svc.captured.Weights)
	assert.Equal(t, 1.0, svc.captured.Weights.PassRate)

	var body struct {
		Data dto.RecommendationResponse `json:"data"`
		Meta map[string]interface{}      `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "stu-1", body.Data.StudentID)
	assert.Equal(t, true, body.Meta["cached"])
}

func TestRecommendationHandlerAcceptsEmptyBody(t *testing.T) {
	svc := &recommenderMock{}
	router := newRecommendationRouter(svc, &warmupMock{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/students/stu-1/recommendations", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, svc.captured.TopN)
}

func TestRecommendationHandlerErrors(t *testing.T) {
	router := newRecommendationRouter(&recommenderMock{}, &warmupMock{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/students/stu-1/recommendations", bytes.NewReader([]byte(`{"topN":`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	failing := &recommenderMock{err: appErrors.Clone(appErrors.ErrInvalidTimeBlock, "section MAT-1 misaligned")}
	router = newRecommendationRouter(failing, &warmupMock{})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/students/stu-1/recommendations", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TIME_BLOCK")
}

func TestRecommendationHandlerWarmup(t *testing.T) {
	warmup := &warmupMock{}
	router := newRecommendationRouter(&recommenderMock{}, warmup)

	req := httptest.NewRequest(http.MethodPost, "/recommendations/warmup", bytes.NewReader([]byte(`{"studentIds":["stu-1","stu-2"]}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"stu-1", "stu-2"}, warmup.captured.StudentIDs)
	assert.Contains(t, w.Body.String(), "job-1")
}
