package contacts

import (
	"encoding/json"
	"time"
)

// Значения, подставляемые вместо отсутствующих полей профиля
const (
	DefaultFullName = "Anonymous User"
	DefaultEmail    = "No email"
)

// Method способ связи с автором объявления
type Method string

const (
	MethodPhone    Method = "phone"
	MethodEmail    Method = "email"
	MethodSMS      Method = "sms"
	MethodWhatsApp Method = "whatsapp"
)

// Valid сообщает, входит ли способ связи в допустимый набор
func (m Method) Valid() bool {
	switch m {
	case MethodPhone, MethodEmail, MethodSMS, MethodWhatsApp:
		return true
	}
	return false
}

// Optional значение, которое может отсутствовать
type Optional[T any] struct {
	value T
	ok    bool
}

// Some возвращает заполненное значение
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None возвращает пустое значение
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// NonEmpty превращает пустую строку в отсутствующее значение
func NonEmpty(s string) Optional[string] {
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

// Get возвращает значение и признак его наличия
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present сообщает, задано ли значение
func (o Optional[T]) Present() bool {
	return o.ok
}

// OrElse возвращает значение или def, если оно отсутствует
func (o Optional[T]) OrElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// ContactAttempt запись об одной попытке связаться с автором объявления.
// ContactedBy - инициатор, PostedUserID - владелец объявления.
type ContactAttempt struct {
	ID           string
	ContactedBy  string
	PostedUserID string
	ItemID       Optional[string]
	Method       Method
	CreatedAt    time.Time
}

// Counterparty возвращает собеседника относительно viewer.
// Второе значение false, если viewer не участвует в попытке
// или связался сам с собой.
func (a ContactAttempt) Counterparty(viewer string) (string, bool) {
	var other string
	switch viewer {
	case a.ContactedBy:
		other = a.PostedUserID
	case a.PostedUserID:
		other = a.ContactedBy
	default:
		return "", false
	}
	if other == "" || other == viewer {
		return "", false
	}
	return other, true
}

// ProfileSummary проекция профиля пользователя, нужная для списка контактов
type ProfileSummary struct {
	ID        string
	FullName  Optional[string]
	Email     Optional[string]
	AvatarURL Optional[string]
	CreatedAt time.Time
}

// Preview одна строка списка контактов до форматирования
type Preview struct {
	UserID      string
	FullName    string
	Email       string
	AvatarURL   Optional[string]
	LastContact time.Time
}

// previewFrom применяет значения по умолчанию к полям профиля
func previewFrom(p ProfileSummary, lastContact time.Time) Preview {
	return Preview{
		UserID:      p.ID,
		FullName:    p.FullName.OrElse(DefaultFullName),
		Email:       p.Email.OrElse(DefaultEmail),
		AvatarURL:   p.AvatarURL,
		LastContact: lastContact,
	}
}
