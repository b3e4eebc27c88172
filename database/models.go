// database/models.go
package database

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("запись не найдена")

	// ErrForbidden действие доступно только владельцу объявления
	ErrForbidden = errors.New("действие доступно только автору объявления")

	// ErrInvalid некорректные входные данные
	ErrInvalid = errors.New("некорректные данные")

	// ErrSelfContact попытка связаться с автором собственного объявления
	ErrSelfContact = fmt.Errorf("%w: нельзя связаться с самим собой", ErrInvalid)
)

// ItemType тип объявления
type ItemType string

const (
	ItemLost  ItemType = "lost"
	ItemFound ItemType = "found"
)

// Valid сообщает, допустим ли тип
func (t ItemType) Valid() bool {
	return t == ItemLost || t == ItemFound
}

// ItemStatus статус объявления
type ItemStatus string

const (
	StatusActive   ItemStatus = "active"
	StatusResolved ItemStatus = "resolved"
)

// Profile профиль пользователя
type Profile struct {
	ID          string    `json:"id"`
	Email       *string   `json:"email"`
	FullName    *string   `json:"fullName"`
	AvatarURL   *string   `json:"avatarUrl"`
	PhoneNumber *string   `json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Item объявление о потерянной или найденной вещи
type Item struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	UserEmail   *string    `json:"userEmail"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        ItemType   `json:"type"`
	Status      ItemStatus `json:"status"`
	ImageURL    *string    `json:"imageUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewItem данные для создания объявления
type NewItem struct {
	UserID      string
	UserEmail   string
	Title       string
	Description string
	Type        ItemType
	ImageURL    string
}

// ItemQuery параметры поиска объявлений. Пустые поля не ограничивают выборку.
// Закрытые объявления попадают в выборку только с IncludeResolved.
type ItemQuery struct {
	Query           string
	Type            ItemType
	OwnerID         string
	IncludeResolved bool
}

// ContactAttempt запись о попытке связи, как ее отдает API
type ContactAttempt struct {
	ID             string    `json:"id"`
	ContactedBy    string    `json:"contactedBy"`
	PostedUserID   string    `json:"postedUserId"`
	ItemID         *string   `json:"itemId"`
	Method         string    `json:"contactMethod"`
	CreatedAt      time.Time `json:"createdAt"`
	ContactorEmail *string   `json:"contactorEmail,omitempty"`
}

// Feedback отзыв о закрытом объявлении
type Feedback struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"itemId"`
	UserID     *string   `json:"userId"`
	HelperName string    `json:"helperName"`
	Rating     int       `json:"rating"`
	Experience string    `json:"experience"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewFeedback данные для отзыва
type NewFeedback struct {
	ItemID     string
	UserID     string
	HelperName string
	Rating     int
	Experience string
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// sqlValue превращает nil в NULL
func sqlValue(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
