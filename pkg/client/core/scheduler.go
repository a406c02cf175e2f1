package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fpt/go-echoassist/pkg/logger"
)

// RequestKind tells the executor which operation a queued request carries.
type RequestKind string

const (
	KindText       RequestKind = "text"
	KindMultimodal RequestKind = "multimodal"
)

// QueuedRequest is one pending call on a serialized provider.
type QueuedRequest struct {
	ID       string
	Kind     RequestKind
	Payload  any
	Enqueued time.Time

	ctx    context.Context
	result chan Result
}

// Result settles a QueuedRequest.
type Result struct {
	Text string
	Err  error
}

// Executor performs one queued request.
type Executor func(ctx context.Context, req *QueuedRequest) (string, error)

// Scheduler is a FIFO queue drained by a single consumer goroutine. A
// request starts transmission only after the previous one settled.
type Scheduler struct {
	mu       sync.Mutex
	queue    []*QueuedRequest
	draining bool
	exec     Executor
	log      *logger.Logger
}

func NewScheduler(exec Executor, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewComponentLogger("scheduler")
	}
	return &Scheduler{exec: exec, log: log}
}

// Pending is the caller's handle on an enqueued request.
type Pending struct {
	ID     string
	result <-chan Result
}

// Wait blocks until the request settles or ctx is done. Abandoning the wait
// does not remove the request from the queue.
func (p *Pending) Wait(ctx context.Context) (string, error) {
	select {
	case r := <-p.result:
		return r.Text, r.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Enqueue appends a request and starts the consumer if it is idle. The
// request runs detached from ctx cancellation but keeps its values.
func (s *Scheduler) Enqueue(ctx context.Context, kind RequestKind, payload any) *Pending {
	req := &QueuedRequest{
		ID:       uuid.NewString(),
		Kind:     kind,
		Payload:  payload,
		Enqueued: time.Now(),
		ctx:      context.WithoutCancel(ctx),
		result:   make(chan Result, 1),
	}

	s.mu.Lock()
	s.queue = append(s.queue, req)
	depth := len(s.queue)
	start := !s.draining
	if start {
		s.draining = true
	}
	s.mu.Unlock()

	s.log.Debug("request queued", "request", req.ID, "kind", kind, "queue_length", depth)
	if start {
		go s.drain()
	}
	return &Pending{ID: req.ID, result: req.result}
}

// Submit enqueues and waits.
func (s *Scheduler) Submit(ctx context.Context, kind RequestKind, payload any) (string, error) {
	return s.Enqueue(ctx, kind, payload).Wait(ctx)
}

// Len is the number of requests not yet picked up by the consumer.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		req := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.process(req)
	}
}

func (s *Scheduler) process(req *QueuedRequest) {
	log := s.log.WithRequest(req.ID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("queued request panicked", "panic", r)
			req.result <- Result{Err: fmt.Errorf("queued %s request panicked: %v", req.Kind, r)}
		}
	}()

	started := time.Now()
	text, err := s.exec(req.ctx, req)
	if err != nil {
		log.Debug("queued request failed", "kind", req.Kind, "error", err)
	} else {
		log.Debug("queued request done", "kind", req.Kind, "duration", time.Since(started))
	}
	req.result <- Result{Text: text, Err: err}
}
