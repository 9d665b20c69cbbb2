// Package controller gates, assembles and issues habitability predictions and
// relays their outcome to a renderer.
package controller

import (
	"context"
	"errors"
	"sync"

	"exohabit/planet"
	"exohabit/scoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSuperseded is returned to a submission that was cancelled by a newer
	// one (or by Cancel). Nothing is rendered for it.
	ErrSuperseded = errors.New("submission superseded")
	// ErrInFlight is returned by SubmitIfIdle while a submission is outstanding.
	ErrInFlight = errors.New("a submission is already in flight")
)

const DefaultRankLimit = 10

// FormSource supplies the raw text of the six input fields.
type FormSource interface {
	Values() planet.RawValues
}

// Scorer is the remote scoring service.
type Scorer interface {
	Predict(ctx context.Context, req planet.PredictionRequest) (*scoring.Prediction, error)
	Stats(ctx context.Context) (*scoring.Stats, error)
	Rank(ctx context.Context, limit int) (*scoring.Ranking, error)
	Ping(ctx context.Context) error
}

// Renderer owns the display surfaces. Calls are serialized by the controller
// and must not call back into it.
type Renderer interface {
	SetBusy(busy bool)
	ShowMessage(text string)
	// ShowInvalid marks the offending field; nil clears every marker.
	ShowInvalid(err *planet.ValidationError)
	ShowOutcome(o Outcome)
	ShowStats(s scoring.Stats)
	ShowRanking(r scoring.Ranking)
}

type submission struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
}

type Controller struct {
	form      FormSource
	scorer    Scorer
	renderer  Renderer
	logger    *zap.Logger
	rankLimit int

	mu       sync.Mutex
	inflight *submission
}

func New(form FormSource, scorer Scorer, renderer Renderer, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		form:      form,
		scorer:    scorer,
		renderer:  renderer,
		logger:    logger.Named("controller"),
		rankLimit: DefaultRankLimit,
	}
}

// SetRankLimit changes how many leaderboard entries Refresh asks for.
func (c *Controller) SetRankLimit(limit int) {
	if limit <= 0 {
		limit = DefaultRankLimit
	}
	c.mu.Lock()
	c.rankLimit = limit
	c.mu.Unlock()
}

// Validate checks the current form values without side effects.
func (c *Controller) Validate() error {
	return planet.Validate(c.formValues())
}

// InFlight reports whether a submission is outstanding.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

// Submit validates the form and requests a prediction. A submission still
// outstanding is cancelled first and gets ErrSuperseded. Invalid input
// returns *planet.ValidationError without touching the network; a failed
// call returns *scoring.RequestError.
func (c *Controller) Submit(ctx context.Context) (*Outcome, error) {
	sub, _ := c.begin(ctx, false)
	return c.run(sub, c.formValues())
}

// SubmitValues is Submit for values that did not come from the form source,
// such as a request body or command-line flags.
func (c *Controller) SubmitValues(ctx context.Context, values planet.RawValues) (*Outcome, error) {
	sub, _ := c.begin(ctx, false)
	return c.run(sub, values)
}

// SubmitIfIdle is Submit without pre-emption: it is a no-op returning
// ErrInFlight while another submission is outstanding.
func (c *Controller) SubmitIfIdle(ctx context.Context) (*Outcome, error) {
	sub, err := c.begin(ctx, true)
	if err != nil {
		return nil, err
	}
	return c.run(sub, c.formValues())
}

// Cancel aborts the outstanding submission, if any.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight == nil {
		return
	}
	c.inflight.cancel()
	c.inflight = nil
	c.renderer.SetBusy(false)
}

func (c *Controller) begin(ctx context.Context, exclusive bool) (*submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != nil {
		if exclusive {
			return nil, ErrInFlight
		}
		c.logger.Debug("cancelling previous submission", zap.String("submission", c.inflight.id))
		c.inflight.cancel()
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &submission{id: uuid.NewString(), ctx: subCtx, cancel: cancel}
	c.inflight = sub
	return sub, nil
}

func (c *Controller) finish(sub *submission) {
	c.release(sub)
	sub.cancel()
}

// release frees the in-flight slot without cancelling sub's context.
func (c *Controller) release(sub *submission) {
	c.mu.Lock()
	if c.inflight == sub {
		c.inflight = nil
	}
	c.mu.Unlock()
}

// apply runs fn against the renderer only while sub is the current submission.
func (c *Controller) apply(sub *submission, fn func(r Renderer)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != sub {
		return false
	}
	fn(c.renderer)
	return true
}

func (c *Controller) formValues() planet.RawValues {
	if c.form == nil {
		return planet.RawValues{}
	}
	return c.form.Values()
}

func (c *Controller) run(sub *submission, values planet.RawValues) (*Outcome, error) {
	defer c.finish(sub)
	logger := c.logger.With(zap.String("submission", sub.id))

	if err := planet.Validate(values); err != nil {
		var verr *planet.ValidationError
		errors.As(err, &verr)
		applied := c.apply(sub, func(r Renderer) {
			r.ShowInvalid(verr)
			r.SetBusy(false)
			r.ShowMessage(MsgInvalidInput)
		})
		if !applied {
			return nil, ErrSuperseded
		}
		logger.Info("rejected invalid input", zap.String("field", string(verr.Field)), zap.String("reason", verr.Reason))
		return nil, err
	}

	if !c.apply(sub, func(r Renderer) {
		r.ShowInvalid(nil)
		r.SetBusy(true)
		r.ShowMessage(MsgScanning)
	}) {
		return nil, ErrSuperseded
	}

	pred, err := c.scorer.Predict(sub.ctx, planet.BuildRequest(values))
	if err != nil {
		var reqErr *scoring.RequestError
		isReqErr := errors.As(err, &reqErr)
		applied := c.apply(sub, func(r Renderer) {
			r.SetBusy(false)
			if isReqErr {
				r.ShowMessage(MsgConnectionFailed)
			}
		})
		switch {
		case !applied:
			return nil, ErrSuperseded
		case isReqErr:
			logger.Warn("prediction failed", zap.String("cause", reqErr.Detail()))
			return nil, err
		default:
			logger.Debug("prediction cancelled", zap.Error(err))
			return nil, err
		}
	}

	outcome := NewOutcome(sub.id, pred)
	if !c.apply(sub, func(r Renderer) {
		r.ShowOutcome(outcome)
		r.SetBusy(false)
	}) {
		logger.Debug("discarding stale prediction")
		return nil, ErrSuperseded
	}
	logger.Info("prediction received",
		zap.String("prediction", outcome.Prediction.String()),
		zap.Float64("habitability_score", outcome.Score))

	// The prediction is done; the panels refresh outside the in-flight slot.
	c.release(sub)
	c.Refresh(sub.ctx)
	return &outcome, nil
}

// Refresh reloads the leaderboard and the stats panel concurrently. Each
// fetch is best-effort: a failure is logged and the surface keeps its
// previous content.
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	limit := c.rankLimit
	c.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		ranking, err := c.scorer.Rank(ctx, limit)
		if err != nil {
			c.logBestEffort("rank", err)
			return nil
		}
		c.render(ctx, func(r Renderer) { r.ShowRanking(*ranking) })
		return nil
	})
	g.Go(func() error {
		stats, err := c.scorer.Stats(ctx)
		if err != nil {
			c.logBestEffort("stats", err)
			return nil
		}
		c.render(ctx, func(r Renderer) { r.ShowStats(*stats) })
		return nil
	})
	_ = g.Wait()
}

// Boot runs the startup sequence: a liveness probe that is only logged,
// then a first refresh of the auxiliary panels.
func (c *Controller) Boot(ctx context.Context) {
	if err := c.scorer.Ping(ctx); err != nil {
		c.logger.Warn("API offline", zap.Error(err))
	} else {
		c.logger.Info("API OK")
	}
	c.Refresh(ctx)
}

func (c *Controller) render(ctx context.Context, fn func(r Renderer)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	fn(c.renderer)
}

func (c *Controller) logBestEffort(op string, err error) {
	var reqErr *scoring.RequestError
	if errors.As(err, &reqErr) {
		c.logger.Warn(op+" unavailable", zap.String("cause", reqErr.Detail()))
		return
	}
	c.logger.Debug(op+" refresh cancelled", zap.Error(err))
}
