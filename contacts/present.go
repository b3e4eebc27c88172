package contacts

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Row строка списка контактов в том виде, в котором ее показывает клиент
type Row struct {
	UserID      string    `json:"userId"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Initial     string    `json:"initial,omitempty"`
	TimeLabel   string    `json:"timeLabel"`
	LastContact time.Time `json:"lastContact"`
}

// Present преобразует контакты в строки списка. Метки времени считаются
// относительно now в его часовом поясе.
func Present(previews []Preview, now time.Time) []Row {
	rows := make([]Row, 0, len(previews))
	for _, p := range previews {
		row := Row{
			UserID:      p.UserID,
			FullName:    p.FullName,
			Email:       p.Email,
			TimeLabel:   TimeLabel(p.LastContact, now),
			LastContact: p.LastContact,
		}
		if url, ok := p.AvatarURL.Get(); ok && url != "" {
			row.AvatarURL = url
		} else {
			row.Initial = Initial(p.FullName)
		}
		rows = append(rows, row)
	}
	return rows
}

// Initial первая буква имени в верхнем регистре для аватара-заглушки
func Initial(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return "?"
	}
	return strings.ToUpper(string(r))
}

// TimeLabel относительная метка времени:
// сегодня - время суток, вчера - "Yesterday", в пределах недели - день недели,
// иначе - месяц и число
func TimeLabel(t, now time.Time) string {
	t = t.In(now.Location())

	switch days := calendarDaysBetween(t, now); {
	case days <= 0:
		return t.Format("3:04 PM")
	case days == 1:
		return "Yesterday"
	case days < 7:
		return t.Weekday().String()
	default:
		return t.Format("Jan 2")
	}
}

// calendarDaysBetween число календарных дней от t до now
func calendarDaysBetween(t, now time.Time) int {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// ParseLocation возвращает часовой пояс по имени IANA; пустое
// или неизвестное имя дает UTC
func ParseLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
