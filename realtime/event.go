package realtime

import "time"

// EventType тип изменения строки
type EventType string

const (
	Insert   EventType = "INSERT"
	Update   EventType = "UPDATE"
	Delete   EventType = "DELETE"
	AnyEvent EventType = "*"
)

// Таблицы, изменения которых публикуются в ленту
const (
	TableItems           = "items"
	TableProfiles        = "profiles"
	TableContactAttempts = "contact_attempts"
	TableFeedback        = "feedback"
)

// Event уведомление об изменении строки. Row содержит только столбцы,
// нужные для фильтрации; данные подписчики читают из хранилища сами.
type Event struct {
	Table string
	Type  EventType
	Row   map[string]string
	At    time.Time
}

// Filter условие подписки: таблица, тип события и
// "столбец1 = Value OR столбец2 = Value ..." по строке события.
// Пустой список Columns пропускает любую строку таблицы.
type Filter struct {
	Table   string
	Type    EventType
	Columns []string
	Value   string
}

// Matches проверяет, подходит ли событие под фильтр
func (f Filter) Matches(ev Event) bool {
	if f.Table != ev.Table {
		return false
	}
	if f.Type != "" && f.Type != AnyEvent && f.Type != ev.Type {
		return false
	}
	if len(f.Columns) == 0 {
		return true
	}
	for _, col := range f.Columns {
		if v, ok := ev.Row[col]; ok && v == f.Value {
			return true
		}
	}
	return false
}
