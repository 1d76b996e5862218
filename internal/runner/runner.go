package runner

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"songbench/internal/metrics"
	"songbench/internal/shape"
	"songbench/internal/stats"
	"songbench/internal/user"
)

const DefaultPollInterval = time.Second

// StatsSnapshot is sent over the channel
type StatsSnapshot struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	Bytes    uint64
	Users    int64
	RunTime  time.Duration
	Finished bool

	// Pre-calculated percentiles for the UI (cheap copy)
	P50ServiceMs float64
	P90ServiceMs float64
	P99ServiceMs float64
	MaxServiceMs int64
}

// StatsUpdateChan is the channel type
type StatsUpdateChan chan StatsSnapshot

type Runner struct {
	ID      string
	Cfg     Config
	Shape   shape.Shape
	Stats   *stats.Stats
	Metrics *metrics.Metrics
	Client  *http.Client
	Logger  *zap.Logger
	Results []ExperimentResult
	mu      sync.Mutex

	// Live user pool, newest last
	poolMu  sync.Mutex
	pool    []context.CancelFunc
	users   int64
	desired int64
	wake    chan struct{}

	start   time.Time
	elapsed int64 // ns, written by the poll loop
	done    chan struct{}

	// Event Channel
	Updates StatsUpdateChan
}

func NewRunner(cfg Config, updates StatsUpdateChan) (*Runner, error) {
	if err := cfg.Behavior.Validate(); err != nil {
		return nil, err
	}

	sh, err := shape.New(cfg.Shape, cfg.TargetRPS, cfg.Duration)
	if err != nil {
		return nil, err
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: t,
	}

	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}

	return &Runner{
		ID:      uuid.NewString(),
		Cfg:     cfg,
		Shape:   sh,
		Stats:   stats.NewStats(),
		Metrics: metrics.New(),
		Client:  client,
		Logger:  zap.NewNop(),
		Updates: updates,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}, nil
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// StartTickLoop starts a goroutine that pushes stats updates
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate(false)
			}
		}
	}()
}

func (r *Runner) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Requests:     atomic.LoadUint64(&r.Stats.Requests),
		Success:      atomic.LoadUint64(&r.Stats.Success),
		Fail:         atomic.LoadUint64(&r.Stats.Fail),
		Bytes:        atomic.LoadUint64(&r.Stats.Bytes),
		Users:        r.ActiveUsers(),
		RunTime:      r.Elapsed(),
		P50ServiceMs: r.Stats.GetP50Service(),
		P90ServiceMs: r.Stats.GetP90Service(),
		P99ServiceMs: r.Stats.GetP99Service(),
		MaxServiceMs: r.Stats.MaxServiceMs(),
	}
}

func (r *Runner) sendUpdate(finished bool) {
	s := r.Snapshot()
	s.Finished = finished

	if finished {
		// The final snapshot must not be lost, make room for it.
		for {
			select {
			case r.Updates <- s:
				return
			default:
				select {
				case <-r.Updates:
				default:
				}
			}
		}
	}

	// Non-blocking send
	select {
	case r.Updates <- s:
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Run polls the shape until it asks to stop or ctx is cancelled, keeping the
// user pool at the requested size in between.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.StartTickLoop(runCtx, 200*time.Millisecond)

	var g errgroup.Group
	limiter := rate.NewLimiter(rate.Inf, 1)

	g.Go(func() error {
		r.spawnLoop(runCtx, &g, limiter)
		return nil
	})

	r.start = time.Now()
	ticker := time.NewTicker(r.Cfg.PollInterval)
	defer ticker.Stop()

	r.Logger.Info("run started",
		zap.String("run_id", r.ID),
		zap.String("task", r.Cfg.Behavior.Name),
		zap.String("url", r.Cfg.Behavior.URL()),
	)

poll:
	for {
		runTime := time.Since(r.start)
		atomic.StoreInt64(&r.elapsed, int64(runTime))

		target, ok := r.Shape.Tick(runTime)
		if !ok {
			r.Logger.Info("shape finished", zap.Duration("run_time", runTime))
			break
		}
		r.apply(target, limiter)

		select {
		case <-ctx.Done():
			r.Logger.Info("run cancelled", zap.Duration("run_time", runTime))
			break poll
		case <-ticker.C:
		}
	}

	cancel()
	r.stopAll()
	err := g.Wait()

	atomic.StoreInt64(&r.elapsed, int64(time.Since(r.start)))
	r.sendUpdate(true)

	if err != nil {
		return fmt.Errorf("run %s: %w", r.ID, err)
	}
	return nil
}

func (r *Runner) apply(target shape.Target, limiter *rate.Limiter) {
	if target.SpawnRate > 0 {
		limiter.SetLimit(rate.Limit(target.SpawnRate))
	} else {
		limiter.SetLimit(rate.Inf)
	}

	atomic.StoreInt64(&r.desired, int64(target.Users))

	// Shrinking is immediate, growing is paced by the spawn loop.
	r.poolMu.Lock()
	for len(r.pool) > target.Users {
		last := len(r.pool) - 1
		r.pool[last]()
		r.pool = r.pool[:last]
	}
	atomic.StoreInt64(&r.users, int64(len(r.pool)))
	r.poolMu.Unlock()
	r.Metrics.SetUsers(int(r.ActiveUsers()))

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Runner) spawnLoop(ctx context.Context, g *errgroup.Group, limiter *rate.Limiter) {
	for {
		if r.ActiveUsers() < atomic.LoadInt64(&r.desired) {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			r.spawnOne(ctx, g)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		}
	}
}

func (r *Runner) spawnOne(ctx context.Context, g *errgroup.Group) {
	r.poolMu.Lock()
	defer r.poolMu.Unlock()

	// The target may have dropped while waiting for a token.
	if ctx.Err() != nil || int64(len(r.pool)) >= atomic.LoadInt64(&r.desired) {
		return
	}

	userCtx, cancel := context.WithCancel(ctx)
	u := user.New(r.Cfg.Behavior, r.Client, r.record)
	r.pool = append(r.pool, cancel)
	atomic.StoreInt64(&r.users, int64(len(r.pool)))
	r.Metrics.SetUsers(len(r.pool))

	g.Go(func() error {
		u.Run(userCtx)
		return nil
	})
}

func (r *Runner) stopAll() {
	r.poolMu.Lock()
	defer r.poolMu.Unlock()

	for _, cancel := range r.pool {
		cancel()
	}
	r.pool = nil
	atomic.StoreInt64(&r.users, 0)
	atomic.StoreInt64(&r.desired, 0)
	r.Metrics.SetUsers(0)
}

func (r *Runner) record(o user.Outcome) {
	r.Stats.Add(o.Success(), o.Bytes, o.ServiceTime, o.ErrorString())
	r.Metrics.Observe(o)

	if o.Err != nil {
		r.Logger.Debug("request failed", zap.String("user", o.UserID), zap.Error(o.Err))
	}

	r.mu.Lock()
	r.Results = append(r.Results, resultFromOutcome(o))
	r.mu.Unlock()
}

// ResultsCopy returns the results gathered so far.
func (r *Runner) ResultsCopy() []ExperimentResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ExperimentResult, len(r.Results))
	copy(out, r.Results)
	return out
}

func (r *Runner) ActiveUsers() int64 {
	return atomic.LoadInt64(&r.users)
}

func (r *Runner) Elapsed() time.Duration {
	return time.Duration(atomic.LoadInt64(&r.elapsed))
}
