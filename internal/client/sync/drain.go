package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	httpClient "github.com/iudanet/rentsync/internal/client/api"
	"github.com/iudanet/rentsync/internal/client/events"
	"github.com/iudanet/rentsync/internal/models"
	"github.com/iudanet/rentsync/pkg/api"
)

// Outcome результат обработки одного элемента очереди
type Outcome string

const (
	OutcomeSynced   Outcome = "synced"
	OutcomeConflict Outcome = "conflict"
	OutcomeFailed   Outcome = "failed"
	OutcomeRejected Outcome = "rejected"
	OutcomeSkipped  Outcome = "skipped" // сущность заблокирована конфликтом или более ранней ошибкой
)

// ItemResult describes what happened to one queue item during a pass.
type ItemResult struct {
	Err     error
	ItemID  string
	Entity  models.EntityRef
	Outcome Outcome
}

// Result contains sync pass results
type Result struct {
	StartedAt  time.Time
	FinishedAt time.Time
	State      State
	Items      []ItemResult
	Total      int // количество элементов в очереди на начало прохода
	Synced     int // подтверждено сервером
	Conflicts  int // обнаружено конфликтов
	Failed     int // временные ошибки, элементы остались в очереди
	Rejected   int // окончательно отклонено сервером
	Skipped    int // пропущено из-за блокировки сущности
	Resolved   int // конфликтов разрешено автоматически
}

// Clean reports whether the pass finished without conflicts or failures.
func (r *Result) Clean() bool {
	return r.Conflicts == 0 && r.Failed == 0 && r.Rejected == 0
}

func (r *Result) add(ir ItemResult) {
	r.Items = append(r.Items, ir)
	switch ir.Outcome {
	case OutcomeSynced:
		r.Synced++
	case OutcomeConflict:
		r.Conflicts++
	case OutcomeFailed:
		r.Failed++
	case OutcomeRejected:
		r.Rejected++
	case OutcomeSkipped:
		r.Skipped++
	}
}

// pass выполняет один проход по очереди в порядке FIFO
func (e *Engine) pass(ctx context.Context) (*Result, error) {
	e.setState(StateSyncing)
	e.emit(events.Event{Type: events.SyncStarted})

	res := &Result{StartedAt: e.opts.Clock()}

	items, err := e.queue.ListUnsynced(ctx)
	if err != nil {
		return e.abort(res, fmt.Errorf("failed to list pending mutations: %w", err))
	}
	blocked, err := e.queue.OpenConflictEntities(ctx)
	if err != nil {
		return e.abort(res, fmt.Errorf("failed to list open conflicts: %w", err))
	}

	res.Total = len(items)
	e.logger.Info("Starting synchronization", "pending", res.Total, "held", len(blocked))

	var detected []*models.ConflictRecord
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return e.abort(res, fmt.Errorf("sync interrupted: %w", err))
		}

		key := item.Entity().Key()
		if blocked[key] {
			res.add(ItemResult{ItemID: item.ID, Entity: item.Entity(), Outcome: OutcomeSkipped})
			continue
		}

		ir, rec := e.process(ctx, item)
		res.add(ir)

		switch ir.Outcome {
		case OutcomeSynced:
			e.emit(events.Event{
				Type:     events.SyncProgress,
				Progress: float64(i+1) / float64(res.Total) * 100,
			})
		case OutcomeConflict:
			// последующие мутации сущности ждут разрешения конфликта
			blocked[key] = true
			detected = append(detected, rec)
			e.emit(events.Event{
				Type:       events.ConflictDetected,
				EntityType: string(item.EntityType),
				EntityID:   item.EntityID,
				ConflictID: rec.ID,
			})
		case OutcomeFailed:
			// порядок мутаций одной сущности сохраняется: остальные ждут следующего прохода
			blocked[key] = true
			e.emit(events.Event{Type: events.SyncError, Error: ir.Err.Error()})
		case OutcomeRejected:
			e.emit(events.Event{Type: events.SyncError, Error: ir.Err.Error()})
		}
	}

	if e.opts.Policy.Automatic() {
		for _, rec := range detected {
			if _, err := e.resolve(ctx, rec, e.opts.Policy, nil); err != nil {
				e.logger.Warn("Failed to auto-resolve conflict", "conflict_id", rec.ID, "error", err)
				continue
			}
			res.Resolved++
		}
	}

	return e.finish(res), nil
}

// process отправляет один элемент и классифицирует ответ сервера
func (e *Engine) process(ctx context.Context, item *models.QueueItem) (ItemResult, *models.ConflictRecord) {
	ir := ItemResult{ItemID: item.ID, Entity: item.Entity()}

	collection, ok := api.CollectionFor(string(item.EntityType))
	if !ok {
		ir.Outcome, ir.Err = e.reject(ctx, item, fmt.Errorf("no collection for %s", item.EntityType))
		return ir, nil
	}

	var expected int64
	md, found, err := e.queue.Metadata(ctx, item.Entity())
	if err != nil {
		ir.Outcome, ir.Err = OutcomeFailed, fmt.Errorf("%w: %w", ErrTransientSyncFailure, err)
		return ir, nil
	}
	if found {
		expected = md.RemoteVersion
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	row, err := e.backend.Apply(callCtx, api.MutationRequest{
		MutationID:      item.ID,
		Collection:      collection,
		EntityID:        item.EntityID,
		Operation:       string(item.Operation),
		Payload:         item.Payload,
		ExpectedVersion: expected,
	})
	cancel()

	switch {
	case err == nil:
		ir.Outcome, ir.Err = e.confirm(ctx, item, row.Version)
		return ir, nil

	case errors.Is(err, httpClient.ErrNotFound) && item.Operation == models.OpDelete:
		// запись уже удалена: намерение выполнено
		ir.Outcome, ir.Err = e.confirm(ctx, item, 0)
		return ir, nil

	case errors.Is(err, httpClient.ErrConflict), errors.Is(err, httpClient.ErrNotFound):
		rec, cerr := e.recordConflict(ctx, item, collection, err)
		if cerr != nil {
			ir.Outcome, ir.Err = e.fail(ctx, item, cerr)
			return ir, nil
		}
		ir.Outcome, ir.Err = OutcomeConflict, fmt.Errorf("%w: %s: %w", ErrSyncConflict, item.Entity(), err)
		return ir, rec

	case errors.Is(err, httpClient.ErrRejected):
		ir.Outcome, ir.Err = e.reject(ctx, item, err)
		return ir, nil

	default:
		ir.Outcome, ir.Err = e.fail(ctx, item, err)
		return ir, nil
	}
}

func (e *Engine) confirm(ctx context.Context, item *models.QueueItem, version int64) (Outcome, error) {
	if err := e.queue.Confirm(ctx, item.ID, version); err != nil {
		// сервер уже применил мутацию; повтор будет распознан по mutation_id
		return OutcomeFailed, fmt.Errorf("%w: confirm %s: %w", ErrTransientSyncFailure, item.ID, err)
	}
	e.logger.Debug("Mutation synced", "id", item.ID, "entity", item.Entity().Key(), "version", version)
	return OutcomeSynced, nil
}

func (e *Engine) fail(ctx context.Context, item *models.QueueItem, cause error) (Outcome, error) {
	err := fmt.Errorf("%w: %s %s: %w", ErrTransientSyncFailure, item.Operation, item.Entity(), cause)
	if merr := e.queue.MarkFailed(ctx, item.ID, cause); merr != nil {
		e.logger.Warn("Failed to record sync error", "id", item.ID, "error", merr)
	}
	e.logger.Warn("Mutation not synced, will retry", "id", item.ID, "entity", item.Entity().Key(), "error", cause)
	return OutcomeFailed, err
}

func (e *Engine) reject(ctx context.Context, item *models.QueueItem, cause error) (Outcome, error) {
	err := fmt.Errorf("%w: %s %s: %w", ErrRemoteRejected, item.Operation, item.Entity(), cause)
	if rerr := e.queue.Reject(ctx, item.ID, cause.Error()); rerr != nil {
		e.logger.Warn("Failed to record rejection", "id", item.ID, "error", rerr)
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrTransientSyncFailure, rerr)
	}
	e.logger.Warn("Mutation rejected by server", "id", item.ID, "entity", item.Entity().Key(), "error", cause)
	return OutcomeRejected, err
}

// recordConflict снимает состояние сервера и сохраняет ConflictRecord
func (e *Engine) recordConflict(ctx context.Context, item *models.QueueItem, collection string, cause error) (*models.ConflictRecord, error) {
	rec := &models.ConflictRecord{
		EntityType:     item.EntityType,
		EntityID:       item.EntityID,
		QueueItemID:    item.ID,
		Operation:      item.Operation,
		LocalPayload:   item.Payload,
		LocalCreatedAt: item.CreatedAt,
		Reason:         cause.Error(),
		DetectedAt:     e.opts.Clock(),
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	row, err := e.backend.Fetch(fetchCtx, collection, item.EntityID)
	cancel()

	switch {
	case err == nil:
		updated := row.UpdatedAt
		rec.RemoteVersion = row.Version
		rec.RemoteUpdatedAt = &updated
		if row.Deleted {
			// tombstone: время удаления участвует в last_write_wins
			rec.RemoteDeleted = true
		} else {
			rec.RemotePayload = row.Payload
		}
	case errors.Is(err, httpClient.ErrNotFound):
		// записи на сервере никогда не было
		rec.RemoteDeleted = true
	default:
		// без снимка сервера конфликт не показать, повторим на следующем проходе
		return nil, fmt.Errorf("fetch remote state: %w", err)
	}

	stored, _, err := e.queue.RecordConflict(ctx, rec)
	if err != nil {
		return nil, err
	}

	e.logger.Warn("Conflict detected",
		"conflict_id", stored.ID,
		"entity", stored.Entity().Key(),
		"remote_deleted", stored.RemoteDeleted,
		"remote_version", stored.RemoteVersion)
	return stored, nil
}

// abort завершает проход, который не смог начаться или был прерван
func (e *Engine) abort(res *Result, err error) (*Result, error) {
	res.FinishedAt = e.opts.Clock()
	res.State = StateError
	e.setState(StateError)
	e.logger.Error("Synchronization failed", "error", err)
	e.emit(events.Event{Type: events.SyncError, Error: err.Error()})
	return res, err
}

func (e *Engine) finish(res *Result) *Result {
	now := e.opts.Clock()
	res.FinishedAt = now

	if res.Clean() {
		res.State = StateCompleted
		e.mu.Lock()
		e.state = StateCompleted
		e.lastSync = &now
		e.mu.Unlock()

		e.logger.Info("Synchronization completed", "synced", res.Synced, "skipped", res.Skipped)
		e.emit(events.Event{Type: events.SyncCompleted, LastSyncTime: &now})
		return res
	}

	res.State = StateError
	e.setState(StateError)
	summary := fmt.Sprintf("sync finished with %d conflict(s), %d failure(s), %d rejection(s)",
		res.Conflicts, res.Failed, res.Rejected)
	e.logger.Warn("Synchronization finished with problems",
		"synced", res.Synced,
		"conflicts", res.Conflicts,
		"failed", res.Failed,
		"rejected", res.Rejected,
		"skipped", res.Skipped)
	e.emit(events.Event{Type: events.SyncError, Error: summary})
	return res
}
