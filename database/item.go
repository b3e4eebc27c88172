// database/item.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const itemColumns = "id, user_id, user_email, title, description, type, status, image_url, created_at, updated_at"

// CreateItem сохраняет новое объявление со статусом active
func (s *Store) CreateItem(ctx context.Context, in NewItem) (Item, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case in.UserID == "":
		return Item{}, fmt.Errorf("%w: не указан автор объявления", ErrInvalid)
	case in.Title == "" || in.Description == "":
		return Item{}, fmt.Errorf("%w: заполните название и описание", ErrInvalid)
	case !in.Type.Valid():
		return Item{}, fmt.Errorf("%w: неизвестный тип объявления %q", ErrInvalid, in.Type)
	}

	now := s.timestamp()
	item := Item{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		UserEmail:   nullable(in.UserEmail),
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Status:      StatusActive,
		ImageURL:    nullable(in.ImageURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO items ("+itemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		item.ID, item.UserID, sqlValue(item.UserEmail), item.Title, item.Description,
		string(item.Type), string(item.Status), sqlValue(item.ImageURL), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return Item{}, fmt.Errorf("ошибка создания объявления: %w", err)
	}

	s.log.Infof("✅ Создано объявление %s (%s) пользователем %s", item.ID, item.Type, item.UserID)
	return item, nil
}

// GetItem возвращает объявление по id
func (s *Store) GetItem(ctx context.Context, id string) (Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("ошибка чтения объявления: %w", err)
	}
	return item, nil
}

// ListActiveItems возвращает активные объявления от новых к старым
func (s *Store) ListActiveItems(ctx context.Context) ([]Item, error) {
	return s.SearchItems(ctx, ItemQuery{})
}

// ListUserItems возвращает все объявления пользователя, включая закрытые,
// от новых к старым
func (s *Store) ListUserItems(ctx context.Context, ownerID string) ([]Item, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: не указан автор объявлений", ErrInvalid)
	}
	return s.SearchItems(ctx, ItemQuery{OwnerID: ownerID, IncludeResolved: true})
}

// SearchItems ищет объявления, по умолчанию только активные. Query ищется
// без учета регистра в названии и описании.
func (s *Store) SearchItems(ctx context.Context, q ItemQuery) ([]Item, error) {
	where := []string{"1 = 1"}
	var args []interface{}

	if !q.IncludeResolved {
		where = append(where, "status = ?")
		args = append(args, string(StatusActive))
	}

	if text := strings.TrimSpace(q.Query); text != "" {
		pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
		where = append(where, "(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')")
		args = append(args, pattern, pattern)
	}
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(q.Type))
	}
	if q.OwnerID != "" {
		where = append(where, "user_id = ?")
		args = append(args, q.OwnerID)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE "+strings.Join(where, " AND ")+" ORDER BY created_at DESC, id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска объявлений: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem меняет название и описание объявления
func (s *Store) UpdateItem(ctx context.Context, id, ownerID, title, description string) (Item, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return Item{}, fmt.Errorf("%w: заполните название и описание", ErrInvalid)
	}

	item, err := s.ownedItem(ctx, id, ownerID)
	if err != nil {
		return Item{}, err
	}

	item.Title = title
	item.Description = description
	item.UpdatedAt = s.timestamp()
	_, err = s.db.ExecContext(ctx,
		"UPDATE items SET title = ?, description = ?, updated_at = ? WHERE id = ?",
		item.Title, item.Description, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return Item{}, fmt.Errorf("ошибка обновления объявления: %w", err)
	}
	return item, nil
}

// UpdateItemImage меняет ссылку на фото объявления
func (s *Store) UpdateItemImage(ctx context.Context, id, ownerID, imageURL string) (Item, error) {
	item, err := s.ownedItem(ctx, id, ownerID)
	if err != nil {
		return Item{}, err
	}

	item.ImageURL = nullable(strings.TrimSpace(imageURL))
	item.UpdatedAt = s.timestamp()
	_, err = s.db.ExecContext(ctx,
		"UPDATE items SET image_url = ?, updated_at = ? WHERE id = ?",
		sqlValue(item.ImageURL), item.UpdatedAt, item.ID,
	)
	if err != nil {
		return Item{}, fmt.Errorf("ошибка обновления фото объявления: %w", err)
	}
	return item, nil
}

// ResolveItem помечает объявление как закрытое
func (s *Store) ResolveItem(ctx context.Context, id, ownerID string) (Item, error) {
	item, err := s.ownedItem(ctx, id, ownerID)
	if err != nil {
		return Item{}, err
	}

	item.Status = StatusResolved
	item.UpdatedAt = s.timestamp()
	_, err = s.db.ExecContext(ctx,
		"UPDATE items SET status = ?, updated_at = ? WHERE id = ?",
		string(item.Status), item.UpdatedAt, item.ID,
	)
	if err != nil {
		return Item{}, fmt.Errorf("ошибка закрытия объявления: %w", err)
	}

	s.log.Infof("✅ Объявление %s закрыто", item.ID)
	return item, nil
}

// DeleteItem удаляет объявление вместе с его попытками связи и отзывами
func (s *Store) DeleteItem(ctx context.Context, id, ownerID string) error {
	if _, err := s.ownedItem(ctx, id, ownerID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, stmt := range []string{
		"DELETE FROM contact_attempts WHERE item_id = ?",
		"DELETE FROM feedback WHERE item_id = ?",
		"DELETE FROM items WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			tx.Rollback()
			return fmt.Errorf("ошибка удаления объявления: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.log.Infof("✅ Объявление %s удалено", id)
	return nil
}

// ownedItem возвращает объявление, если ownerID его автор
func (s *Store) ownedItem(ctx context.Context, id, ownerID string) (Item, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if item.UserID != ownerID {
		return Item{}, ErrForbidden
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (Item, error) {
	var item Item
	err := row.Scan(
		&item.ID, &item.UserID, &item.UserEmail, &item.Title, &item.Description,
		&item.Type, &item.Status, &item.ImageURL, &item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
