// database/contact_attempt.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/LilVoxy/campus_lostfound/contacts"
)

var _ contacts.Source = (*Store)(nil)

// CreateContactAttempt записывает попытку пользователя связаться с автором
// объявления. Владелец берется из объявления.
func (s *Store) CreateContactAttempt(ctx context.Context, contactedBy, itemID string, method contacts.Method) (ContactAttempt, error) {
	if !method.Valid() {
		return ContactAttempt{}, fmt.Errorf("%w: неизвестный способ связи %q", ErrInvalid, method)
	}
	if contactedBy == "" {
		return ContactAttempt{}, fmt.Errorf("%w: не указан инициатор", ErrInvalid)
	}

	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return ContactAttempt{}, err
	}
	if item.UserID == contactedBy {
		return ContactAttempt{}, ErrSelfContact
	}

	attempt := ContactAttempt{
		ID:           uuid.NewString(),
		ContactedBy:  contactedBy,
		PostedUserID: item.UserID,
		ItemID:       &item.ID,
		Method:       string(method),
		CreatedAt:    s.timestamp(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO contact_attempts (id, contacted_by, posted_user_id, item_id, contact_method, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		attempt.ID, attempt.ContactedBy, attempt.PostedUserID, item.ID, attempt.Method, attempt.CreatedAt,
	)
	if err != nil {
		return ContactAttempt{}, fmt.Errorf("ошибка сохранения попытки связи: %w", err)
	}

	s.log.Infof("✅ Пользователь %s связался с автором объявления %s (%s)", contactedBy, item.ID, method)
	return attempt, nil
}

// ContactAttemptsForUser возвращает попытки, где пользователь инициатор
// или владелец объявления, от новых к старым
func (s *Store) ContactAttemptsForUser(ctx context.Context, userID string) ([]contacts.ContactAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contacted_by, posted_user_id, item_id, contact_method, created_at
		FROM contact_attempts
		WHERE posted_user_id = ? OR contacted_by = ?
		ORDER BY created_at DESC, id
	`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []contacts.ContactAttempt
	for rows.Next() {
		var (
			a      contacts.ContactAttempt
			itemID sql.NullString
			method string
		)
		if err := rows.Scan(&a.ID, &a.ContactedBy, &a.PostedUserID, &itemID, &method, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ItemID = optional(itemID)
		a.Method = contacts.Method(method)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ContactAttemptsForItem возвращает попытки связи по объявлению вместе
// с email инициатора. Доступно только автору объявления.
func (s *Store) ContactAttemptsForItem(ctx context.Context, itemID, ownerID string) ([]ContactAttempt, error) {
	if _, err := s.ownedItem(ctx, itemID, ownerID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ca.id, ca.contacted_by, ca.posted_user_id, ca.item_id, ca.contact_method, ca.created_at, p.email
		FROM contact_attempts ca
		LEFT JOIN profiles p ON p.id = ca.contacted_by
		WHERE ca.item_id = ?
		ORDER BY ca.created_at DESC, ca.id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения попыток связи: %w", err)
	}
	defer rows.Close()

	attempts := []ContactAttempt{}
	for rows.Next() {
		var a ContactAttempt
		if err := rows.Scan(&a.ID, &a.ContactedBy, &a.PostedUserID, &a.ItemID, &a.Method, &a.CreatedAt, &a.ContactorEmail); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
