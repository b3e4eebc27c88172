package contacts

import (
	"sort"
	"time"
)

// Aggregate строит список контактов viewer: по одной записи на каждого
// собеседника, для которого есть профиль. Время последнего контакта -
// максимум по попыткам между viewer и собеседником в обе стороны, а если
// таких попыток нет - дата создания профиля. Список отсортирован от новых
// к старым, при равном времени сохраняется порядок profiles.
func Aggregate(viewer string, attempts []ContactAttempt, profiles []ProfileSummary) []Preview {
	counterparties := Counterparties(viewer, attempts)
	wanted := make(map[string]struct{}, len(counterparties))
	for _, id := range counterparties {
		wanted[id] = struct{}{}
	}
	latest := latestByCounterparty(viewer, attempts)

	previews := make([]Preview, 0, len(wanted))
	emitted := make(map[string]struct{}, len(wanted))

	for _, p := range profiles {
		if _, ok := wanted[p.ID]; !ok {
			// не собеседник viewer
			continue
		}
		if _, dup := emitted[p.ID]; dup {
			continue
		}
		emitted[p.ID] = struct{}{}
		previews = append(previews, previewFrom(p, lastContact(p, latest)))
	}

	sort.SliceStable(previews, func(i, j int) bool {
		return previews[i].LastContact.After(previews[j].LastContact)
	})
	return previews
}

// latestByCounterparty время самой свежей попытки для каждого, кто связан
// с viewer напрямую
func latestByCounterparty(viewer string, attempts []ContactAttempt) map[string]time.Time {
	latest := make(map[string]time.Time)
	for _, a := range attempts {
		other, ok := a.Counterparty(viewer)
		if !ok {
			continue
		}
		if t, seen := latest[other]; !seen || a.CreatedAt.After(t) {
			latest[other] = a.CreatedAt
		}
	}
	return latest
}

// lastContact возвращает время последней попытки с профилем
// или дату создания профиля, если попыток нет
func lastContact(p ProfileSummary, latest map[string]time.Time) time.Time {
	if t, ok := latest[p.ID]; ok {
		return t
	}
	return p.CreatedAt
}
