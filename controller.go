// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package md2pdf

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Request is a single conversion attempt. Result, Applied and Delivery are
// valid once Done is closed.
type Request struct {
	ID            uint64
	CorrelationID string
	Filename      string
	StartedAt     time.Time

	done        chan struct{}
	result      Result
	applied     bool
	deliveredTo string
	deliveryErr error
}

// Done is closed when the request has resolved and any download has finished.
func (r *Request) Done() <-chan struct{} { return r.done }

// Wait blocks until the request resolves or ctx is done.
func (r *Request) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns the outcome reported by the service.
func (r *Request) Result() Result { return r.result }

// Applied reports whether the outcome updated the workflow state. It is false
// for requests superseded by a newer submission.
func (r *Request) Applied() bool { return r.applied }

// Delivery returns where the artifact was delivered, or the delivery error.
// ErrReleased means the artifact was reset or superseded before it could be
// written.
func (r *Request) Delivery() (string, error) { return r.deliveredTo, r.deliveryErr }

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithDeliverer sets the download side effect run when a request becomes Ready.
func WithDeliverer(d Deliverer) ControllerOption {
	return func(c *Controller) {
		c.deliverer = d
	}
}

// WithLogger sets the logger used for state transitions.
func WithLogger(l zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

type listener struct {
	id int
	fn func(State)
}

// Controller owns the workflow state and is the only writer of it.
//
// Submissions are never refused: a submission made while another request is
// in flight supersedes it, and the older request's outcome is discarded when
// it eventually resolves.
type Controller struct {
	service   Service
	deliverer Deliverer
	logger    zerolog.Logger
	now       func() time.Time

	// notifyMu serializes transitions so listeners observe them in order.
	notifyMu sync.Mutex

	mu           sync.Mutex
	state        State
	seq          uint64
	listeners    []listener
	nextListener int
}

// NewController creates a Controller in the idle phase.
func NewController(svc Service, opts ...ControllerOption) *Controller {
	c := &Controller{
		service: svc,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = State{Phase: PhaseIdle, Since: c.now()}
	return c
}

// State returns the current workflow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to be called after every transition. Listeners run
// synchronously and must not call Submit, Reject, Reset or Dismiss.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextListener++
	id := c.nextListener
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// Submit starts converting file and moves the workflow to Uploading,
// clearing any previous artifact or error. Each CandidateFile is accepted
// once; a second Submit of the same candidate returns ErrInvalidCandidate.
func (c *Controller) Submit(ctx context.Context, file *CandidateFile) (*Request, error) {
	if file == nil || !file.claim() {
		return nil, ErrInvalidCandidate
	}

	req := &Request{
		CorrelationID: uuid.NewString(),
		Filename:      file.Name(),
		done:          make(chan struct{}),
	}

	var prior *Artifact
	c.transition("submit", func(st *State) bool {
		c.seq++
		req.ID = c.seq
		req.StartedAt = c.now()
		prior = st.Artifact
		*st = State{
			Phase:     PhaseUploading,
			RequestID: req.ID,
			Filename:  req.Filename,
			Since:     req.StartedAt,
		}
		return true
	})
	c.release(prior)

	go c.run(ctx, req, file)
	return req, nil
}

// Reject moves the workflow to Failed for a file that never reached the
// service. Any in-flight request is superseded.
func (c *Controller) Reject(name string, err error) {
	cerr := asConversionError(err)
	var prior *Artifact
	c.transition("reject", func(st *State) bool {
		c.seq++
		prior = st.Artifact
		*st = State{
			Phase:     PhaseFailed,
			RequestID: c.seq,
			Filename:  name,
			Err:       cerr,
			Since:     c.now(),
		}
		return true
	})
	c.release(prior)
}

// Reset returns from Ready to Idle and releases the artifact.
func (c *Controller) Reset() error {
	return c.leave("reset", PhaseReady)
}

// Dismiss returns from Failed to Idle and discards the error.
func (c *Controller) Dismiss() error {
	return c.leave("dismiss", PhaseFailed)
}

func (c *Controller) leave(event string, from Phase) error {
	var (
		prior *Artifact
		terr  *TransitionError
	)
	c.transition(event, func(st *State) bool {
		if st.Phase != from {
			terr = &TransitionError{Event: event, From: st.Phase}
			return false
		}
		prior = st.Artifact
		*st = State{Phase: PhaseIdle, RequestID: st.RequestID, Since: c.now()}
		return true
	})
	if terr != nil {
		return terr
	}
	c.release(prior)
	return nil
}

func (c *Controller) run(ctx context.Context, req *Request, file *CandidateFile) {
	defer close(req.done)

	artifact, err := c.service.Convert(withCorrelationID(ctx, req.CorrelationID), file)
	file.discard()

	switch {
	case err != nil:
		c.release(artifact)
		req.result.Err = asConversionError(err)
	case artifact == nil:
		req.result.Err = &ConversionError{Kind: KindTransport, Message: GenericFailureMessage}
	default:
		req.result.Artifact = artifact
	}

	c.transition("resolve", func(st *State) bool {
		if req.ID != c.seq {
			return false
		}
		req.applied = true
		if req.result.OK() {
			*st = State{
				Phase:     PhaseReady,
				RequestID: req.ID,
				Filename:  req.Filename,
				Artifact:  req.result.Artifact,
				Since:     c.now(),
			}
		} else {
			*st = State{
				Phase:     PhaseFailed,
				RequestID: req.ID,
				Filename:  req.Filename,
				Err:       req.result.Err,
				Since:     c.now(),
			}
		}
		return true
	})

	if !req.applied {
		c.logger.Info().
			Uint64("request_id", req.ID).
			Str("correlation_id", req.CorrelationID).
			Bool("ok", req.result.OK()).
			Msg("discarding result of superseded request")
		c.release(req.result.Artifact)
		return
	}

	if req.result.Err != nil {
		c.logger.Warn().
			Uint64("request_id", req.ID).
			Str("correlation_id", req.CorrelationID).
			Str("kind", string(req.result.Err.Kind)).
			Err(req.result.Err.Err).
			Msg(req.result.Err.Message)
		return
	}

	if c.deliverer != nil {
		req.deliveredTo, req.deliveryErr = c.deliverer.Deliver(ctx, artifact)
		switch {
		case errors.Is(req.deliveryErr, ErrReleased):
			c.logger.Info().
				Uint64("request_id", req.ID).
				Msg("artifact released before delivery")
		case req.deliveryErr != nil:
			c.logger.Error().
				Uint64("request_id", req.ID).
				Err(req.deliveryErr).
				Msg("artifact delivery failed")
		default:
			c.logger.Debug().
				Uint64("request_id", req.ID).
				Str("path", req.deliveredTo).
				Msg("artifact delivered")
		}
	}
}

// transition applies fn to the state under lock and, if it reports a change,
// notifies listeners with the new snapshot.
func (c *Controller) transition(event string, fn func(st *State) bool) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	from := c.state.Phase
	changed := fn(&c.state)
	snapshot := c.state
	listeners := make([]listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	if !changed {
		return
	}

	c.logger.Debug().
		Str("event", event).
		Str("from", from.String()).
		Str("to", snapshot.Phase.String()).
		Uint64("request_id", snapshot.RequestID).
		Msg("state transition")

	for _, l := range listeners {
		l.fn(snapshot)
	}
}

func (c *Controller) release(a *Artifact) {
	if a == nil {
		return
	}
	if err := a.Release(); err != nil {
		c.logger.Warn().Err(err).Str("filename", a.Filename).Msg("release artifact")
	}
}

type correlationKey struct{}

func withCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the request correlation id carried by ctx, if any.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
