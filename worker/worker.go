// Package worker runs submissions on a fixed pool of compile strategies,
// each owning its own working directory.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/npuboj/judgecore/language"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxWaiting = 512

// ErrShutdown is the response error of requests left when the worker stops
var ErrShutdown = errors.New("worker is shut down")

// StrategyBuilder creates the strategy owning dir
type StrategyBuilder func(dir string) (language.Strategy, error)

// Config defines worker configuration
type Config struct {
	Builder      StrategyBuilder
	Parallelism  int
	WorkDir      string
	Logger       *zap.Logger
	ExecObserver func(Response)
}

// Worker defines interface for executor
type Worker interface {
	Start() error
	Submit(context.Context, *Request) <-chan Response
	Shutdown()
}

// worker defines executor worker
type worker struct {
	builder     StrategyBuilder
	parallelism int
	workDir     string
	logger      *zap.Logger

	execObserver func(Response)

	dirs []string

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	workCh    chan workRequest
	done      chan struct{}

	// mu guards enqueue against the final drain, closed is set under it
	mu     sync.RWMutex
	closed bool
}

type workRequest struct {
	*Request
	context.Context
	resultCh chan<- Response
}

// New creates new worker
func New(conf Config) Worker {
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	parallelism := conf.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	return &worker{
		builder:      conf.Builder,
		parallelism:  parallelism,
		workDir:      conf.WorkDir,
		logger:       logger,
		execObserver: conf.ExecObserver,
		workCh:       make(chan workRequest, maxWaiting),
		done:         make(chan struct{}),
	}
}

// Start provisions one working directory and strategy per parallelism and
// starts the worker loops
func (w *worker) Start() error {
	var err error
	w.startOnce.Do(func() {
		err = w.start()
	})
	return err
}

func (w *worker) start() error {
	if w.builder == nil {
		return errors.New("worker: strategy builder is nil")
	}
	dirs := make([]string, w.parallelism)
	strategies := make([]language.Strategy, w.parallelism)

	var eg errgroup.Group
	for i := range w.parallelism {
		dir := filepath.Join(w.workDir, strconv.Itoa(i))
		dirs[i] = dir
		eg.Go(func() error {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("worker: create work dir: %w", err)
			}
			s, err := w.builder(dir)
			if err != nil {
				return fmt.Errorf("worker: build strategy for %s: %w", dir, err)
			}
			strategies[i] = s
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		removeDirs(dirs)
		return err
	}
	w.dirs = dirs

	w.wg.Add(len(strategies))
	for _, s := range strategies {
		go w.loop(s)
	}
	return nil
}

// Submit queues a request, the response channel always receives exactly one response
func (w *worker) Submit(ctx context.Context, req *Request) <-chan Response {
	ch := make(chan Response, 1)
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		ch <- Response{RequestID: req.RequestID, Error: ErrShutdown}
		return ch
	}
	select {
	case w.workCh <- workRequest{Request: req, Context: ctx, resultCh: ch}:
	case <-w.done:
		ch <- Response{RequestID: req.RequestID, Error: ErrShutdown}
	case <-ctx.Done():
		ch <- Response{RequestID: req.RequestID, Error: ctx.Err()}
	}
	return ch
}

// Shutdown waits all worker to finish and removes the working directories
func (w *worker) Shutdown() {
	w.stopOnce.Do(func() {
		// release submitters blocked on a full queue before taking the lock
		close(w.done)
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()

		w.wg.Wait()
		for {
			select {
			case req := <-w.workCh:
				req.resultCh <- Response{RequestID: req.RequestID, Error: ErrShutdown}
			default:
				removeDirs(w.dirs)
				return
			}
		}
	})
}

func (w *worker) loop(s language.Strategy) {
	defer w.wg.Done()
	for {
		select {
		case req := <-w.workCh:
			w.workDo(s, req)
		case <-w.done:
			return
		}
	}
}

func (w *worker) workDo(s language.Strategy, req workRequest) {
	var rt Response
	if err := req.Context.Err(); err != nil {
		rt.Error = err
	} else if req.judge() {
		rt.Verdicts, rt.Error = s.CompileAndJudge(req.Context, req.Source, req.Inputs, req.Answers, req.Limit)
	} else {
		rt.Outcomes = s.CompileAndRun(req.Context, req.Source, req.Inputs, req.Limit)
	}
	rt.RequestID = req.RequestID
	if ce := w.logger.Check(zap.DebugLevel, "request finished"); ce != nil {
		ce.Write(zap.Stringer("request", req.Request), zap.Stringer("response", rt))
	}
	if w.execObserver != nil {
		w.execObserver(rt)
	}
	req.resultCh <- rt
}

func removeDirs(dirs []string) {
	for _, d := range dirs {
		os.RemoveAll(d)
	}
}
