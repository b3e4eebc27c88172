package contacts

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Source запросы к хранилищу, которые нужны списку контактов
type Source interface {
	// ContactAttemptsForUser возвращает попытки, где пользователь инициатор
	// или владелец объявления, от новых к старым
	ContactAttemptsForUser(ctx context.Context, userID string) ([]ContactAttempt, error)
	// ProfilesByIDs возвращает профили с указанными id
	ProfilesByIDs(ctx context.Context, ids []string) ([]ProfileSummary, error)
}

// Snapshot сырые строки одного прохода загрузки
type Snapshot struct {
	Attempts []ContactAttempt
	Profiles []ProfileSummary
}

// Fetcher загружает попытки связи и профили собеседников
type Fetcher struct {
	source Source
	log    logrus.FieldLogger
}

// NewFetcher создает загрузчик поверх хранилища
func NewFetcher(source Source, log logrus.FieldLogger) *Fetcher {
	return &Fetcher{source: source, log: log}
}

// Fetch выполняет оба запроса последовательно: профили запрашиваются только
// после того, как известны собеседники. Пустой список попыток завершает
// загрузку без второго запроса.
func (f *Fetcher) Fetch(ctx context.Context, viewer string) (Snapshot, error) {
	if viewer == "" {
		return Snapshot{}, ErrNoViewer
	}

	attempts, err := f.source.ContactAttemptsForUser(ctx, viewer)
	if err != nil {
		return Snapshot{}, &QueryError{Step: StepAttempts, Err: err}
	}
	if len(attempts) == 0 {
		f.log.Debugf("ℹ️ Попыток связи для пользователя %s нет", viewer)
		return Snapshot{}, nil
	}

	ids := Counterparties(viewer, attempts)
	if len(ids) == 0 {
		return Snapshot{Attempts: attempts}, nil
	}

	profiles, err := f.source.ProfilesByIDs(ctx, ids)
	if err != nil {
		return Snapshot{}, &QueryError{Step: StepProfiles, Err: err}
	}

	f.log.Debugf("✅ Для пользователя %s загружено %d попыток и %d профилей", viewer, len(attempts), len(profiles))
	return Snapshot{Attempts: attempts, Profiles: profiles}, nil
}

// Load выполняет полный проход: загрузка и агрегация
func (f *Fetcher) Load(ctx context.Context, viewer string) ([]Preview, error) {
	snapshot, err := f.Fetch(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return Aggregate(viewer, snapshot.Attempts, snapshot.Profiles), nil
}

// Counterparties возвращает всех участников попыток, кроме самого viewer,
// без повторов и в порядке первого появления
func Counterparties(viewer string, attempts []ContactAttempt) []string {
	seen := make(map[string]struct{}, len(attempts))
	var ids []string
	for _, a := range attempts {
		for _, id := range [2]string{a.ContactedBy, a.PostedUserID} {
			if id == "" || id == viewer {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
