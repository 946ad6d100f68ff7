// # internal/engine/background/scheduler.go
package background

import (
	"context"
	"log/slog"
	"time"

	apexerrors "apexls/internal/core/errors"
	"apexls/internal/data/queue"
	"apexls/internal/shared/observability"
	"apexls/internal/shared/util"
)

// run is the single dispatch loop. It drains the six tiers highest first,
// forcing a pull from a lower tier once maxHighPriorityStreak consecutive
// high-priority dispatches have run, and sleeps when every tier is empty.
// Task bodies run on bounded per-tier goroutines; the per-file lock inside
// registerTable keeps writers to one per file.
func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	yield := util.NewYieldLimiter(m.opts.YieldInterval, m.opts.YieldDelay)
	streak := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, tier, ok := m.nextTask(&streak)
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.opts.IdleSleep):
			}
			continue
		}

		if err := yield.Wait(ctx, 1); err != nil {
			return
		}
		m.dispatch(task, tier)
	}
}

// nextTask selects the tier to pull from. Selection is highest non-empty
// tier whose in-flight count is under its cap; once the high-priority
// streak hits the limit, the first non-empty tier below the would-be pick
// is drawn instead.
func (m *Manager) nextTask(streak *int) (*Task, queue.Tier, bool) {
	pick := queue.Tier(-1)
	for _, t := range queue.Tiers() {
		if m.q.Len(t) > 0 && m.inflightBelowCap(t) {
			pick = t
			break
		}
	}
	if pick < 0 {
		return nil, 0, false
	}

	if pick <= queue.TierHigh && *streak >= m.opts.MaxHighPriorityStreak {
		for t := pick + 1; int(t) < queue.NumTiers; t++ {
			if m.q.Len(t) > 0 && m.inflightBelowCap(t) {
				observability.StarvationOverridesTotal.Inc()
				*streak = 0
				pick = t
				break
			}
		}
	}

	task, ok := m.q.TryPop(pick)
	if !ok {
		return nil, 0, false
	}
	if pick <= queue.TierHigh {
		*streak++
	} else {
		*streak = 0
	}
	return task, pick, true
}

func (m *Manager) inflightBelowCap(t queue.Tier) bool {
	m.infMu.Lock()
	defer m.infMu.Unlock()
	return m.inflight[t] < m.opts.MaxConcurrency[t]
}

func (m *Manager) dispatch(task *Task, tier queue.Tier) {
	m.infMu.Lock()
	m.inflight[tier]++
	m.infMu.Unlock()
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer func() {
			m.infMu.Lock()
			m.inflight[tier]--
			m.infMu.Unlock()
		}()

		started := time.Now()
		m.updateRecord(task.ID, func(r *Record) {
			r.State = StateRunning
			r.StartedAt = started
		})

		err := m.runTask(task)

		status := "completed"
		state := StateCompleted
		if err != nil {
			status = "failed"
			state = StateFailed
			err = apexerrors.AddContext(
				apexerrors.Wrap(err, apexerrors.CodeTaskFailed, string(task.Type)),
				apexerrors.CtxTaskID, task.ID)
			slog.Warn("background task failed",
				"task", task.ID, "type", string(task.Type), "uri", string(task.URI), "error", err)
		}
		observability.TasksCompletedTotal.WithLabelValues(string(task.Type), status).Inc()
		observability.TaskDuration.WithLabelValues(string(task.Type)).Observe(time.Since(started).Seconds())
		m.updateRecord(task.ID, func(r *Record) {
			r.State = state
			if err != nil {
				r.Error = err.Error()
			}
			r.FinishedAt = time.Now()
		})
	}()
}

// runTask executes one task body. Failures are contained to the task; a
// broken file never blocks resolution for any other file.
func (m *Manager) runTask(task *Task) error {
	switch task.Type {
	case TaskSymbolIndexing:
		return m.registerTable(task.Table, task.Ctx, true)

	case TaskCommentAssociation:
		tbl, ok := m.TableFor(task.URI)
		if !ok || tbl.Version != task.Version {
			return nil // superseded by a newer compile
		}
		unlock := m.lockFile(task.URI)
		defer unlock()
		tbl.AssociateComments()
		return nil

	case TaskDeferredProcess, TaskDeferredRetry:
		return m.runDeferred(task)

	default:
		return apexerrors.New(apexerrors.CodeValidationError, "unknown task type "+string(task.Type))
	}
}

// runDeferred re-attempts one deferred reference. Still-unresolved
// references requeue as retry tasks until the budget runs out, then the
// task fails with an UNRESOLVED error.
func (m *Manager) runDeferred(task *Task) error {
	tbl, _ := m.TableFor(task.Deferred.URI)
	unlock := m.lockFile(task.Deferred.URI)
	handled := m.res.ResolveDeferred(tbl, task.Deferred, task.Ctx)
	unlock()
	if handled {
		return nil
	}

	d := task.Deferred
	if !d.NextAttempt(m.opts.RetryBudget) {
		return apexerrors.AddContext(
			apexerrors.New(apexerrors.CodeUnresolved, "deferred reference exhausted retry budget: "+d.Name),
			apexerrors.CtxURI, string(d.URI))
	}
	m.enqueueInternal(&Task{
		ID: newTaskID(), Type: TaskDeferredRetry, Tier: queue.TierBackground,
		URI: d.URI, Version: d.Version, Deferred: d, Ctx: task.Ctx,
		EnqueuedAt: time.Now(),
	})
	return nil
}
