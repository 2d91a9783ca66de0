package repository

import (
	"context"
	"time"

	"lpr-service/internal/domain/anpr"
)

func (s *Store) CreateOperator(ctx context.Context, op *anpr.Operator) error {
	row := Operator{
		Username:     op.Username,
		PasswordHash: op.PasswordHash,
		Role:         op.Role,
		Active:       op.Active,
		CreatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	op.ID = row.ID
	op.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) FindOperatorByUsername(ctx context.Context, username string) (*anpr.Operator, error) {
	var row Operator
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	out := row.toDomain()
	return &out, nil
}
