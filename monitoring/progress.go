package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/skidbuffer/harness"
	"github.com/sarchlab/skidbuffer/sim/hooking"
	"github.com/sarchlab/skidbuffer/skid"
)

// A ProgressBar is a tracker of the progress.
type ProgressBar struct {
	sync.Mutex
	ID         string
	Name       string
	StartTime  time.Time
	Total      uint64
	Finished   uint64
	InProgress uint64
}

type progressBarRsp struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

func (b *ProgressBar) snapshot() progressBarRsp {
	b.Lock()
	defer b.Unlock()

	return progressBarRsp{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		InProgress: b.InProgress,
	}
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// DropInProgress removes in-progress elements that will never finish.
func (b *ProgressBar) DropInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	if amount > b.InProgress {
		amount = b.InProgress
	}

	b.InProgress -= amount
}

// Func updates the bar from hooks. On a harness the bar counts finished
// cycles. On a register it counts items: an accepted item is in progress
// until it is retired, and an item discarded by reset is dropped.
func (b *ProgressBar) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case harness.HookPosObservation:
		b.IncrementFinished(1)
	case skid.HookPosAccept:
		b.IncrementInProgress(1)
	case skid.HookPosRetire:
		b.MoveInProgressToFinished(1)
	case skid.HookPosReset:
		if old, ok := ctx.Item.(skid.State); ok && old.Valid {
			b.DropInProgress(1)
		}
	}
}
