// Package conflict decides how a detected sync conflict is settled.
// It holds no state and performs no I/O.
package conflict

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/rentsync/internal/models"
)

// Strategy способ разрешения конфликта
type Strategy string

const (
	// Manual оставляет конфликт открытым до решения пользователя
	Manual Strategy = "manual"
	// KeepLocal повторно отправляет локальное намерение поверх серверной версии
	KeepLocal Strategy = "keep_local"
	// KeepRemote принимает серверную версию и отбрасывает локальные мутации
	KeepRemote Strategy = "keep_remote"
	// LastWriteWins выбирает более позднее изменение по времени
	LastWriteWins Strategy = "last_write_wins"
	// Merge отправляет payload, собранный пользователем
	Merge Strategy = "merge"
)

var (
	// ErrUnknownStrategy indicates unsupported strategy name
	ErrUnknownStrategy = errors.New("unknown conflict strategy")

	// ErrMergePayloadRequired indicates merge without payload
	ErrMergePayloadRequired = errors.New("merge requires a payload")

	// ErrManualDecision indicates that manual strategy cannot settle a conflict by itself
	ErrManualDecision = errors.New("manual strategy requires a user decision")
)

// ParseStrategy validates s.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ReplaceAll(s, "-", "_")); st {
	case Manual, KeepLocal, KeepRemote, LastWriteWins, Merge:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Automatic reports whether the strategy can run without the user.
func (s Strategy) Automatic() bool {
	switch s {
	case KeepLocal, KeepRemote, LastWriteWins:
		return true
	}
	return false
}

// Decision is the outcome of Decide.
type Decision struct {
	Replacement *Replacement // nil: серверная версия остается как есть
	Resolution  string       // итоговая стратегия, записывается в ConflictRecord
}

// Replacement is the corrected mutation that has to be queued.
type Replacement struct {
	Operation models.Operation
	Payload   json.RawMessage
}

// Intent is the local side of the conflict: the newest pending mutation
// of the entity, or the conflicting one when nothing else is pending.
type Intent struct {
	Operation models.Operation
	Payload   json.RawMessage
}

// IntentOf builds the local intent from the conflict and the latest pending item.
func IntentOf(rec *models.ConflictRecord, latest *models.QueueItem) Intent {
	if latest != nil {
		return Intent{Operation: latest.Operation, Payload: latest.Payload}
	}
	return Intent{Operation: rec.Operation, Payload: rec.LocalPayload}
}

// Decide computes the resolution of rec under strategy.
// mergePayload is used only by Merge.
func Decide(rec *models.ConflictRecord, local Intent, strategy Strategy, mergePayload json.RawMessage) (Decision, error) {
	switch strategy {
	case KeepRemote:
		return Decision{Resolution: string(KeepRemote)}, nil

	case KeepLocal:
		return Decision{Resolution: string(KeepLocal), Replacement: replay(rec, local)}, nil

	case Merge:
		if len(mergePayload) == 0 {
			return Decision{}, ErrMergePayloadRequired
		}
		return Decision{
			Resolution:  string(Merge),
			Replacement: &Replacement{Operation: writeOp(rec), Payload: mergePayload},
		}, nil

	case LastWriteWins:
		if LocalIsNewer(rec) {
			return Decide(rec, local, KeepLocal, nil)
		}
		return Decide(rec, local, KeepRemote, nil)

	case Manual:
		return Decision{}, ErrManualDecision
	}
	return Decision{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
}

// LocalIsNewer сравнивает время локального намерения и последнего изменения на сервере.
// При равенстве побеждает сервер. Удаление на сервере сравнивается по времени tombstone;
// время отсутствует, только если строки на сервере никогда не было.
func LocalIsNewer(rec *models.ConflictRecord) bool {
	if rec.RemoteUpdatedAt == nil {
		return true
	}
	return rec.LocalCreatedAt.After(*rec.RemoteUpdatedAt)
}

// replay строит мутацию, которая приводит сервер к локальному намерению
func replay(rec *models.ConflictRecord, local Intent) *Replacement {
	if local.Operation == models.OpDelete {
		if rec.RemoteDeleted {
			// удаление уже выполнено на сервере
			return nil
		}
		return &Replacement{Operation: models.OpDelete}
	}
	return &Replacement{Operation: writeOp(rec), Payload: local.Payload}
}

// writeOp выбирает create, если записи на сервере нет, иначе update
func writeOp(rec *models.ConflictRecord) models.Operation {
	if rec.RemoteDeleted {
		return models.OpCreate
	}
	return models.OpUpdate
}
