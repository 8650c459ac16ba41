package tetris

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultFrameInterval = 16 * time.Millisecond // おおよそ画面の1リフレッシュ
	DefaultInputBuffer   = 64
)

// Clock はフレームごとに単調増加する時刻を返します。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// RunnerOptions は Runner の設定です。ゼロ値の項目はデフォルト値になります。
type RunnerOptions struct {
	Clock         Clock
	FrameInterval time.Duration
	InputBuffer   int
	// OnFrame はゲームの見た目が変わるたびに、Runner のゴルーチンから最新のスナップショットで呼ばれます。
	// ブロックしてはいけません。
	OnFrame func(snap *Snapshot, result TickResult)
}

// Runner は1ゲームを駆動します。PlayerGameState を専有し、フレームごとに Tick を進め、
// Tick の合間にキューに積まれたプレイヤーの入力を適用します。
type Runner struct {
	state         *PlayerGameState
	clock         Clock
	frameInterval time.Duration
	onFrame       func(*Snapshot, TickResult)

	inputs   chan Action
	snapshot atomic.Pointer[Snapshot]
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewRunner は state を包みます。Run の開始後は他から state に触れてはいけません。
func NewRunner(state *PlayerGameState, opts RunnerOptions) *Runner {
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.InputBuffer <= 0 {
		opts.InputBuffer = DefaultInputBuffer
	}
	r := &Runner{
		state:         state,
		clock:         opts.Clock,
		frameInterval: opts.FrameInterval,
		onFrame:       opts.OnFrame,
		inputs:        make(chan Action, opts.InputBuffer),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	r.snapshot.Store(state.Snapshot())
	return r
}

// Submit はプレイヤーの操作を1つキューに積みます。積んだ操作は高々1回だけ適用されます。
// ブロックはせず、キューが満杯か Runner が停止していれば操作を捨てて false を返します。
func (r *Runner) Submit(action Action) bool {
	select {
	case <-r.quit:
		return false
	default:
	}
	select {
	case r.inputs <- action:
		return true
	default:
		log.Printf("[Runner] Input queue full, dropping %s for user %s", action, r.state.UserID)
		return false
	}
}

// Snapshot は最後に公開された状態を返します。どのゴルーチンからでも安全に呼べます。
func (r *Runner) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Run はフレームループです。ctx のキャンセル、Stop の呼び出し、ゲームオーバーのいずれかで戻ります。
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.frameInterval)
	defer ticker.Stop()

	last := r.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.quit:
			return
		case action := <-r.inputs:
			if ApplyPlayerInput(r.state, action) {
				r.publish(TickResult{})
			}
		case <-ticker.C:
			now := r.clock.Now()
			result := Tick(r.state, now.Sub(last))
			last = now
			if result.Changed() {
				r.publish(result)
			}
			if r.state.IsGameOver {
				return
			}
		}
	}
}

// Stop は Run を終了させます。複数回呼んでも安全です。
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
	})
}

// Done は Run が戻ると閉じられます。
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) publish(result TickResult) {
	snap := r.state.Snapshot()
	r.snapshot.Store(snap)
	if r.onFrame != nil {
		r.onFrame(snap, result)
	}
}
