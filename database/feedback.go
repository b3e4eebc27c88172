// database/feedback.go
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreateFeedback сохраняет отзыв об объявлении. Оценка от 1 до 5.
func (s *Store) CreateFeedback(ctx context.Context, in NewFeedback) (Feedback, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return Feedback{}, fmt.Errorf("%w: оценка должна быть от 1 до 5", ErrInvalid)
	}
	if _, err := s.GetItem(ctx, in.ItemID); err != nil {
		return Feedback{}, err
	}

	fb := Feedback{
		ID:         uuid.NewString(),
		ItemID:     in.ItemID,
		UserID:     nullable(in.UserID),
		HelperName: strings.TrimSpace(in.HelperName),
		Rating:     in.Rating,
		Experience: strings.TrimSpace(in.Experience),
		CreatedAt:  s.timestamp(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO feedback (id, item_id, user_id, helper_name, rating, experience, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		fb.ID, fb.ItemID, sqlValue(fb.UserID), fb.HelperName, fb.Rating, fb.Experience, fb.CreatedAt,
	)
	if err != nil {
		return Feedback{}, fmt.Errorf("ошибка сохранения отзыва: %w", err)
	}
	return fb, nil
}

// FeedbackForItem возвращает отзывы об объявлении от новых к старым
func (s *Store) FeedbackForItem(ctx context.Context, itemID string) ([]Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, user_id, helper_name, rating, experience, created_at
		FROM feedback
		WHERE item_id = ?
		ORDER BY created_at DESC, id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения отзывов: %w", err)
	}
	defer rows.Close()

	list := []Feedback{}
	for rows.Next() {
		var fb Feedback
		if err := rows.Scan(&fb.ID, &fb.ItemID, &fb.UserID, &fb.HelperName, &fb.Rating, &fb.Experience, &fb.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, fb)
	}
	return list, rows.Err()
}
