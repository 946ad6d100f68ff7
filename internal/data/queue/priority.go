package queue

import (
	"sync"

	apexerrors "apexls/internal/core/errors"
	"apexls/internal/shared/observability"
)

// Tier orders dispatch classes from most to least urgent.
type Tier int

const (
	TierCritical Tier = iota
	TierImmediate
	TierHigh
	TierNormal
	TierLow
	TierBackground

	NumTiers = 6
)

var tierNames = [NumTiers]string{"critical", "immediate", "high", "normal", "low", "background"}

func (t Tier) String() string {
	if t < 0 || int(t) >= NumTiers {
		return "unknown"
	}
	return tierNames[t]
}

// Tiers lists every tier from highest to lowest priority.
func Tiers() [NumTiers]Tier {
	return [NumTiers]Tier{TierCritical, TierImmediate, TierHigh, TierNormal, TierLow, TierBackground}
}

// DefaultCapacity bounds a tier whose capacity is not configured.
const DefaultCapacity = 64

// PriorityQueue is a set of independently bounded tier queues. Offering to
// a full tier is rejected at offer time with SCHEDULER_OVERFLOW; the
// producer decides whether to fall back to synchronous work. Rejecting
// (rather than blocking or dropping the oldest) keeps the compile path
// non-blocking and never silently loses an accepted task.
type PriorityQueue[T any] struct {
	mu     sync.RWMutex
	tiers  [NumTiers]chan T
	closed bool
}

func NewPriorityQueue[T any](capacities [NumTiers]int) *PriorityQueue[T] {
	q := &PriorityQueue[T]{}
	for i := range q.tiers {
		cap := capacities[i]
		if cap <= 0 {
			cap = DefaultCapacity
		}
		q.tiers[i] = make(chan T, cap)
	}
	return q
}

// Offer enqueues without blocking. A full tier or a closed queue rejects.
func (q *PriorityQueue[T]) Offer(tier Tier, item T) error {
	if tier < 0 || int(tier) >= NumTiers {
		return apexerrors.New(apexerrors.CodeValidationError, "unknown priority tier")
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return apexerrors.New(apexerrors.CodeSchedulerOverflow, "queue closed")
	}
	select {
	case q.tiers[tier] <- item:
		observability.TasksEnqueuedTotal.WithLabelValues(tier.String()).Inc()
		observability.TaskQueueDepth.WithLabelValues(tier.String()).Set(float64(len(q.tiers[tier])))
		return nil
	default:
		observability.TasksRejectedTotal.WithLabelValues(tier.String()).Inc()
		return apexerrors.AddContext(
			apexerrors.New(apexerrors.CodeSchedulerOverflow, "tier queue full"),
			apexerrors.CtxTier, tier.String(),
		)
	}
}

// TryPop removes the head of one tier without blocking.
func (q *PriorityQueue[T]) TryPop(tier Tier) (T, bool) {
	var zero T
	if tier < 0 || int(tier) >= NumTiers {
		return zero, false
	}
	select {
	case item, ok := <-q.tiers[tier]:
		if !ok {
			return zero, false
		}
		observability.TaskQueueDepth.WithLabelValues(tier.String()).Set(float64(len(q.tiers[tier])))
		return item, true
	default:
		return zero, false
	}
}

// Len returns the depth of one tier.
func (q *PriorityQueue[T]) Len(tier Tier) int {
	if tier < 0 || int(tier) >= NumTiers {
		return 0
	}
	return len(q.tiers[tier])
}

// TotalLen returns the combined depth of all tiers.
func (q *PriorityQueue[T]) TotalLen() int {
	total := 0
	for i := range q.tiers {
		total += len(q.tiers[i])
	}
	return total
}

// Depths snapshots per-tier queue depths.
func (q *PriorityQueue[T]) Depths() map[Tier]int {
	depths := make(map[Tier]int, NumTiers)
	for _, tier := range Tiers() {
		depths[tier] = len(q.tiers[tier])
	}
	return depths
}

// Close rejects further offers. Queued items remain poppable so a shutdown
// drain can finish them.
func (q *PriorityQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
