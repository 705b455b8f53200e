package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"servicehub/internal/shared"
	"servicehub/internal/storefront/dto"
	"servicehub/internal/storefront/models"
	"servicehub/internal/storefront/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// blockingAggregator holds ListRatings for service 1 until the load is cancelled.
type blockingAggregator struct {
	started chan struct{}
}

func (b *blockingAggregator) ListRatings(ctx context.Context, serviceID int64) ([]models.Rating, error) {
	if serviceID != 1 {
		return []models.Rating{rating(1, 50, serviceID, 3)}, nil
	}
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingAggregator) Submit(context.Context, *session.Session, models.Service, int, string, Eligibility) (*models.Rating, error) {
	return nil, errors.New("not supported")
}

func waitStarted(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("load never started")
	}
}

func TestRatingPanel_ScoreFourScenario(t *testing.T) {
	orderRepo, ratingRepo, agg := newAggregatorFixture()
	panel := NewRatingPanel(NewContractLedger(orderRepo), agg)
	defer panel.Close()
	ctx := context.Background()
	svc := models.Service{ID: 1, Name: "Corte de cabelo"}
	sess := clientSession(7)
	comment := "Ótimo atendimento"
	stored := models.Rating{ID: 1, OrderID: 11, ClientID: 7, ServiceID: 1, Score: 4, Comment: &comment}

	orderRepo.On("ListOrders", mock.Anything, dto.OrderFilter{ClientID: 7}).
		Return([]models.Order{order(11, 7, 1, models.OrderActive, 0)}, nil)
	ratingRepo.On("ListRatingsByService", mock.Anything, int64(1)).Return([]models.Rating{}, nil).Times(2)
	ratingRepo.On("CreateRating", mock.Anything, mock.AnythingOfType("dto.CreateRatingRequest")).Return(&stored, nil).Once()
	ratingRepo.On("ListRatingsByService", mock.Anything, int64(1)).Return([]models.Rating{stored}, nil)

	state, err := panel.Load(ctx, sess, svc)
	require.NoError(t, err)
	require.True(t, state.Ready)
	assert.True(t, state.Eligibility.Allowed)
	assert.Nil(t, state.Summary.Average)

	created, next, err := panel.Submit(ctx, sess, svc, 4, comment)
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.OrderID)

	require.True(t, next.Ready)
	assert.Equal(t, 1, next.Summary.Count)
	require.NotNil(t, next.Summary.Average)
	assert.Equal(t, 4.0, *next.Summary.Average)
	assert.False(t, next.Eligibility.Allowed)
	assert.Equal(t, ReasonAlreadyRated, next.Eligibility.Reason)
	assert.Equal(t, next.Token, panel.State().Token)
}

func TestRatingPanel_ShortCommentRejected(t *testing.T) {
	orderRepo, ratingRepo, agg := newAggregatorFixture()
	panel := NewRatingPanel(NewContractLedger(orderRepo), agg)
	ctx := context.Background()
	svc := models.Service{ID: 1}

	orderRepo.On("ListOrders", mock.Anything, dto.OrderFilter{ClientID: 7}).
		Return([]models.Order{order(11, 7, 1, models.OrderActive, 0)}, nil)
	ratingRepo.On("ListRatingsByService", mock.Anything, int64(1)).Return([]models.Rating{}, nil)

	_, err := panel.Load(ctx, clientSession(7), svc)
	require.NoError(t, err)

	_, state, err := panel.Submit(ctx, clientSession(7), svc, 5, "curto")
	assert.True(t, errors.Is(err, shared.ErrValidationFailed))
	assert.True(t, state.Eligibility.Allowed)
	ratingRepo.AssertNotCalled(t, "CreateRating", mock.Anything, mock.Anything)
}

func TestRatingPanel_ProviderAndAnonymous(t *testing.T) {
	orderRepo, ratingRepo, agg := newAggregatorFixture()
	panel := NewRatingPanel(NewContractLedger(orderRepo), agg)
	ctx := context.Background()
	svc := models.Service{ID: 1}

	ratingRepo.On("ListRatingsByService", mock.Anything, int64(1)).Return([]models.Rating{rating(1, 3, 1, 5)}, nil)

	state, err := panel.Load(ctx, providerSession(200), svc)
	require.NoError(t, err)
	assert.True(t, state.Ready)
	assert.Equal(t, ReasonWrongRole, state.Eligibility.Reason)
	assert.Equal(t, 1, state.Summary.Count)

	state, err = panel.Load(ctx, nil, svc)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotAuthenticated, state.Eligibility.Reason)

	_, _, err = panel.Submit(ctx, nil, svc, 5, "")
	assert.True(t, errors.Is(err, shared.ErrNotAuthenticated))

	orderRepo.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything)
}

func TestRatingPanel_PartialDataIsNotEvaluable(t *testing.T) {
	orderRepo, ratingRepo, agg := newAggregatorFixture()
	panel := NewRatingPanel(NewContractLedger(orderRepo), agg)
	ctx := context.Background()
	svc := models.Service{ID: 1}

	orderRepo.On("ListOrders", mock.Anything, mock.Anything).
		Return(nil, shared.Unavailable("GET /orders", errors.New("connection refused")))
	ratingRepo.On("ListRatingsByService", mock.Anything, int64(1)).Return([]models.Rating{}, nil).Maybe()

	state, err := panel.Load(ctx, clientSession(7), svc)

	assert.True(t, errors.Is(err, shared.ErrUnavailable))
	assert.False(t, state.Ready)
	assert.False(t, state.Eligibility.Allowed)
	assert.Equal(t, ReasonNotEvaluable, state.Eligibility.Reason)
	assert.Error(t, state.Err)

	_, _, err = panel.Submit(ctx, clientSession(7), svc, 5, "")
	assert.True(t, errors.Is(err, shared.ErrNotEligible))
	ratingRepo.AssertNotCalled(t, "CreateRating", mock.Anything, mock.Anything)
}

func TestRatingPanel_SubmitRequiresSameSubject(t *testing.T) {
	orderRepo, ratingRepo, agg := newAggregatorFixture()
	panel := NewRatingPanel(NewContractLedger(orderRepo), agg)
	ctx := context.Background()

	orderRepo.On("ListOrders", mock.Anything, dto.OrderFilter{ClientID: 7}).
		Return([]models.Order{order(11, 7, 1, models.OrderActive, 0)}, nil)
	ratingRepo.On("ListRatingsByService", mock.Anything, int64(1)).Return([]models.Rating{}, nil)

	_, err := panel.Load(ctx, clientSession(7), models.Service{ID: 1})
	require.NoError(t, err)

	_, _, err = panel.Submit(ctx, clientSession(7), models.Service{ID: 2}, 5, "")
	assert.True(t, errors.Is(err, shared.ErrNotEligible))

	_, _, err = panel.Submit(ctx, clientSession(8), models.Service{ID: 1}, 5, "")
	assert.True(t, errors.Is(err, shared.ErrNotEligible))
	ratingRepo.AssertNotCalled(t, "CreateRating", mock.Anything, mock.Anything)
}

func TestRatingPanel_StaleResultDiscarded(t *testing.T) {
	agg := &blockingAggregator{started: make(chan struct{})}
	panel := NewRatingPanel(NewContractLedger(new(MockOrderRepository)), agg)
	defer panel.Close()
	ctx := context.Background()

	type result struct {
		state PanelState
		err   error
	}
	first := make(chan result, 1)
	go func() {
		s, err := panel.Load(ctx, nil, models.Service{ID: 1})
		first <- result{s, err}
	}()
	waitStarted(t, agg.started)

	second, err := panel.Load(ctx, nil, models.Service{ID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Subject.ServiceID)

	var stale result
	select {
	case stale = <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("first load never returned")
	}
	assert.True(t, errors.Is(stale.err, shared.ErrStaleResult))
	assert.False(t, stale.state.Ready)

	current := panel.State()
	assert.Equal(t, int64(2), current.Subject.ServiceID)
	assert.Equal(t, second.Token, current.Token)
	assert.Equal(t, 1, current.Summary.Count)
}

func TestRatingPanel_CloseDiscardsInFlight(t *testing.T) {
	agg := &blockingAggregator{started: make(chan struct{})}
	panel := NewRatingPanel(NewContractLedger(new(MockOrderRepository)), agg)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := panel.Load(ctx, nil, models.Service{ID: 1})
		done <- err
	}()
	waitStarted(t, agg.started)

	panel.Close()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, shared.ErrStaleResult))
	case <-time.After(2 * time.Second):
		t.Fatal("load was not cancelled")
	}
	state := panel.State()
	assert.False(t, state.Ready)
	assert.Equal(t, ReasonNotEvaluable, state.Eligibility.Reason)
}

func TestRatingPanel_CloseCancelsSubmission(t *testing.T) {
	orderRepo, ratingRepo, agg := newAggregatorFixture()
	panel := NewRatingPanel(NewContractLedger(orderRepo), agg)
	ctx := context.Background()
	svc := models.Service{ID: 1}
	sess := clientSession(7)
	recheck := make(chan struct{})

	orderRepo.On("ListOrders", mock.Anything, dto.OrderFilter{ClientID: 7}).
		Return([]models.Order{order(11, 7, 1, models.OrderActive, 0)}, nil).Once()
	orderRepo.On("ListOrders", mock.Anything, dto.OrderFilter{ClientID: 7}).
		Run(func(args mock.Arguments) {
			close(recheck)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()
	ratingRepo.On("ListRatingsByService", mock.Anything, int64(1)).Return([]models.Rating{}, nil)

	state, err := panel.Load(ctx, sess, svc)
	require.NoError(t, err)
	require.True(t, state.Eligibility.Allowed)

	done := make(chan error, 1)
	go func() {
		_, _, err := panel.Submit(ctx, sess, svc, 5, "")
		done <- err
	}()
	waitStarted(t, recheck)

	panel.Close()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("submission was not cancelled")
	}
	ratingRepo.AssertNotCalled(t, "CreateRating", mock.Anything, mock.Anything)

	_, err = panel.Load(ctx, sess, svc)
	assert.True(t, errors.Is(err, shared.ErrStaleResult))
	_, _, err = panel.Submit(ctx, sess, svc, 5, "")
	assert.True(t, errors.Is(err, shared.ErrStaleResult))
	orderRepo.AssertNumberOfCalls(t, "ListOrders", 2)
}
