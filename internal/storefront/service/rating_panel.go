package service

import (
	"context"
	"errors"
	"sync"

	"servicehub/internal/logger"
	"servicehub/internal/shared"
	"servicehub/internal/storefront/models"
	"servicehub/internal/storefront/session"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Subject identifies what a panel load is about.
type Subject struct {
	UserID    int64
	ServiceID int64
}

func subjectOf(sess *session.Session, service models.Service) Subject {
	return Subject{UserID: sess.UserID(), ServiceID: service.ID}
}

// PanelState is one fully evaluated (or failed) load of the rating panel.
// Ready is false until both the orders and the ratings have been fetched;
// an unready state is never eligible.
type PanelState struct {
	Subject     Subject
	Token       uuid.UUID
	Ready       bool
	Ratings     []models.Rating
	Summary     Summary
	Eligibility Eligibility
	Err         error
}

// RatingPanel drives the rating view of one service for one user.
// Every load or submission is tagged with a fresh token and runs on a context the
// panel owns; starting another one or calling Close cancels it. A load that
// finishes after a newer one started (or after Close) is discarded with
// shared.ErrStaleResult. A closed panel stays closed.
type RatingPanel struct {
	ledger     ContractLedger
	aggregator RatingAggregator

	mu      sync.Mutex
	current uuid.UUID
	cancel  context.CancelFunc
	closed  bool
	state   PanelState
}

func NewRatingPanel(ledger ContractLedger, aggregator RatingAggregator) *RatingPanel {
	return &RatingPanel{
		ledger:     ledger,
		aggregator: aggregator,
		state:      PanelState{Eligibility: Eligibility{Reason: ReasonNotEvaluable}},
	}
}

// Load fetches the service's ratings and the user's active orders, waits for both
// and evaluates eligibility. Starting a load cancels the one in flight.
func (p *RatingPanel) Load(ctx context.Context, sess *session.Session, service models.Service) (PanelState, error) {
	subject := subjectOf(sess, service)
	token, loadCtx, ok := p.begin(ctx)
	if !ok {
		return PanelState{Subject: subject, Eligibility: Eligibility{Reason: ReasonNotEvaluable}}, shared.ErrStaleResult
	}
	log := logger.FromContext(ctx).With().
		Str("request_token", token.String()).
		Int64("user_id", subject.UserID).
		Int64("service_id", subject.ServiceID).
		Logger()

	var (
		orders  []models.Order
		ratings []models.Rating
	)
	g, gctx := errgroup.WithContext(loadCtx)
	g.Go(func() (err error) {
		ratings, err = p.aggregator.ListRatings(gctx, service.ID)
		return err
	})
	if sess.Authenticated() && sess.User.IsClient() {
		g.Go(func() (err error) {
			orders, err = p.ledger.ListActiveOrders(gctx, sess.User.ID)
			return err
		})
	}
	err := g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != token {
		log.Warn().Msg("discarding stale rating panel result")
		return PanelState{Subject: subject, Token: token, Eligibility: Eligibility{Reason: ReasonNotEvaluable}}, shared.ErrStaleResult
	}
	p.release()

	state := PanelState{Subject: subject, Token: token}
	if err != nil {
		log.Error().Err(err).Msg("rating panel load failed")
		state.Err = err
		state.Eligibility = Eligibility{Reason: ReasonNotEvaluable}
		p.state = state
		return state.copy(), err
	}

	state.Ready = true
	state.Ratings = ratings
	state.Summary = Summarize(ratings)
	state.Eligibility = CanRate(sess, service, orders, ratings)
	p.state = state

	log.Debug().
		Bool("allowed", state.Eligibility.Allowed).
		Str("reason", string(state.Eligibility.Reason)).
		Int("ratings", state.Summary.Count).
		Msg("rating panel evaluated")
	return state.copy(), nil
}

// Submit sends a rating using the eligibility of the current state, then reloads
// the panel so the new rating and the AlreadyRated outcome are reflected.
// A failed reload does not undo the submission; it is reported in the returned state.
// If the panel is closed or a load starts while the rating is being sent, the
// submission is cancelled and no reload happens.
func (p *RatingPanel) Submit(ctx context.Context, sess *session.Session, service models.Service, score int, comment string) (*models.Rating, PanelState, error) {
	state := p.State()
	if !state.Ready || state.Subject != subjectOf(sess, service) {
		return nil, state, &IneligibleError{Reason: ReasonNotEvaluable}
	}

	token, submitCtx, ok := p.begin(ctx)
	if !ok {
		return nil, state, shared.ErrStaleResult
	}
	rating, err := p.aggregator.Submit(submitCtx, sess, service, score, comment, state.Eligibility)
	current := p.finish(token)
	if err != nil {
		return nil, state, err
	}
	if !current {
		return rating, state, nil
	}

	next, err := p.Load(ctx, sess, service)
	if err != nil && !errors.Is(err, shared.ErrStaleResult) {
		logger.FromContext(ctx).Warn().Err(err).Int64("rating_id", rating.ID).Msg("rating saved but panel refresh failed")
	}
	return rating, next, nil
}

// State returns the last accepted state.
func (p *RatingPanel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.copy()
}

// Close cancels any in-flight load or submission; its result will be discarded.
// Later loads and submissions fail with shared.ErrStaleResult.
func (p *RatingPanel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release()
	p.current = uuid.Nil
	p.closed = true
}

// begin cancels whatever is in flight and issues a new token with its context.
// It reports false once the panel is closed.
func (p *RatingPanel) begin(ctx context.Context) (uuid.UUID, context.Context, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return uuid.Nil, nil, false
	}
	p.release()
	opCtx, cancel := context.WithCancel(ctx)
	p.current = uuid.New()
	p.cancel = cancel
	return p.current, opCtx, true
}

// finish releases the context of token and reports whether token was still current.
func (p *RatingPanel) finish(token uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != token {
		return false
	}
	p.release()
	return true
}

// release cancels the in-flight context, if any. Callers hold p.mu.
func (p *RatingPanel) release() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (s PanelState) copy() PanelState {
	if s.Ratings != nil {
		s.Ratings = append([]models.Rating(nil), s.Ratings...)
	}
	return s
}
