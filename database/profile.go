// database/profile.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/LilVoxy/campus_lostfound/contacts"
)

const profileColumns = "id, email, full_name, avatar_url, phone_number, created_at"

// EnsureProfile возвращает профиль пользователя, создавая его
// с пустыми полями, если записи еще нет
func (s *Store) EnsureProfile(ctx context.Context, userID, email string) (Profile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Profile{}, err
	}

	p = Profile{
		ID:        userID,
		Email:     nullable(email),
		CreatedAt: s.timestamp(),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO profiles (id, email, full_name, avatar_url, phone_number, created_at) VALUES (?, ?, NULL, NULL, NULL, ?)",
		p.ID, sqlValue(p.Email), p.CreatedAt,
	)
	if err != nil {
		return Profile{}, fmt.Errorf("ошибка создания профиля: %w", err)
	}

	s.log.Infof("✅ Создан профиль пользователя %s", userID)
	return p, nil
}

// GetProfile возвращает профиль по id
func (s *Store) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id = ?", userID,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.PhoneNumber, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("ошибка чтения профиля: %w", err)
	}
	return p, nil
}

// UpdateFullName меняет имя пользователя; пустое имя сбрасывает значение
func (s *Store) UpdateFullName(ctx context.Context, userID, fullName string) error {
	return s.updateProfileField(ctx, userID, "full_name", strings.TrimSpace(fullName))
}

// UpdateAvatarURL меняет ссылку на аватар; пустая ссылка удаляет аватар
func (s *Store) UpdateAvatarURL(ctx context.Context, userID, avatarURL string) error {
	return s.updateProfileField(ctx, userID, "avatar_url", strings.TrimSpace(avatarURL))
}

// UpdatePhoneNumber меняет номер телефона пользователя
func (s *Store) UpdatePhoneNumber(ctx context.Context, userID, phone string) error {
	return s.updateProfileField(ctx, userID, "phone_number", strings.TrimSpace(phone))
}

// column всегда одно из фиксированных имен выше
func (s *Store) updateProfileField(ctx context.Context, userID, column, value string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE profiles SET "+column+" = ? WHERE id = ?", sqlValue(nullable(value)), userID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления профиля: %w", err)
	}
	return expectAffected(res)
}

// ProfilesByIDs возвращает профили с указанными id, упорядоченные по id.
// Отсутствующие id пропускаются.
func (s *Store) ProfilesByIDs(ctx context.Context, ids []string) ([]contacts.ProfileSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, full_name, email, avatar_url, created_at FROM profiles WHERE id IN ("+placeholders+") ORDER BY id",
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []contacts.ProfileSummary
	for rows.Next() {
		var (
			p                          contacts.ProfileSummary
			fullName, email, avatarURL sql.NullString
		)
		if err := rows.Scan(&p.ID, &fullName, &email, &avatarURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.FullName = optional(fullName)
		p.Email = optional(email)
		p.AvatarURL = optional(avatarURL)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// optional NULL и пустая строка считаются отсутствующим значением
func optional(ns sql.NullString) contacts.Optional[string] {
	if !ns.Valid {
		return contacts.None[string]()
	}
	return contacts.NonEmpty(ns.String)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
