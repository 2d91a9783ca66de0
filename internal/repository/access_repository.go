package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lpr-service/internal/domain/anpr"
)

func (s *Store) CreateAccess(ctx context.Context, access *anpr.Access) error {
	row, err := accessFromDomain(access)
	if err != nil {
		return fmt.Errorf("encode fragments: %w", err)
	}
	if row.DetectedAt.IsZero() {
		row.DetectedAt = time.Now()
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}

	access.ID = row.ID
	access.DetectedAt = row.DetectedAt
	return nil
}

func (s *Store) GetAccess(ctx context.Context, id int64) (*anpr.Access, error) {
	var row Access
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, translate(err)
	}
	out := row.toDomain()
	return &out, nil
}

func (s *Store) filterAccesses(ctx context.Context, f anpr.AccessFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&Access{})

	if f.Plate != "" {
		query = query.Where("plate = ?", f.Plate)
	}
	if f.Category != "" {
		query = query.Where("category = ?", string(f.Category))
	}
	if f.From != nil {
		query = query.Where("detected_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("detected_at < ?", *f.To)
	}
	return query
}

func (s *Store) ListAccesses(ctx context.Context, f anpr.AccessFilter) ([]anpr.Access, int64, error) {
	var total int64
	if err := s.filterAccesses(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := s.filterAccesses(ctx, f).
		Order("detected_at DESC").
		Limit(clampLimit(f.Limit))
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	var rows []Access
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]anpr.Access, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, total, nil
}

func (s *Store) UpdateAccess(ctx context.Context, id int64, u anpr.AccessUpdate) error {
	fields := map[string]interface{}{}
	if u.Plate != nil {
		fields["plate"] = *u.Plate
	}
	if u.Category != nil {
		fields["category"] = *u.Category
	}
	if u.Confidence != nil {
		fields["confidence"] = *u.Confidence
	}
	if len(fields) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).Model(&Access{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAccess(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&Access{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAccessesByPlate(ctx context.Context, plate string) (int64, error) {
	res := s.db.WithContext(ctx).Where("plate = ?", plate).Delete(&Access{})
	return res.RowsAffected, res.Error
}

func (s *Store) DeleteAccessesBetween(ctx context.Context, from, to time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("detected_at >= ? AND detected_at < ?", from, to).
		Delete(&Access{})
	return res.RowsAffected, res.Error
}

func (s *Store) DeleteAccessesBefore(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("detected_at < ?", before).Delete(&Access{})
	return res.RowsAffected, res.Error
}

func (s *Store) CountAccesses(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := s.filterAccesses(ctx, anpr.AccessFilter{From: &from, To: &to}).Count(&n).Error
	return n, err
}

func (s *Store) DistinctPlates(ctx context.Context, from, to time.Time) ([]string, error) {
	var plates []string
	err := s.filterAccesses(ctx, anpr.AccessFilter{From: &from, To: &to}).
		Distinct("plate").
		Order("plate").
		Pluck("plate", &plates).Error
	return plates, err
}

// CountAccessesBy groups the accesses of [from, to) by category or source.
func (s *Store) CountAccessesBy(ctx context.Context, column string, from, to time.Time) (map[string]int64, error) {
	if column != "category" && column != "source" {
		return nil, fmt.Errorf("cannot group accesses by %q", column)
	}

	var rows []struct {
		GroupKey *string
		Total    int64
	}
	err := s.filterAccesses(ctx, anpr.AccessFilter{From: &from, To: &to}).
		Select(column + " AS group_key, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[deref(r.GroupKey)] += r.Total
	}
	return out, nil
}

// PlateSightings returns one entry per plate seen in [from, to), with the
// category and confidence of its latest access.
func (s *Store) PlateSightings(ctx context.Context, from, to time.Time) ([]anpr.PlateSighting, error) {
	var rows []struct {
		Plate    string
		LastSeen time.Time
		Total    int64
	}
	err := s.filterAccesses(ctx, anpr.AccessFilter{From: &from, To: &to}).
		Select("plate, MAX(detected_at) AS last_seen, COUNT(*) AS total").
		Group("plate").
		Order("plate").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]anpr.PlateSighting, 0, len(rows))
	for _, r := range rows {
		var last Access
		err := s.db.WithContext(ctx).
			Where("plate = ?", r.Plate).
			Order("detected_at DESC").
			First(&last).Error
		if err != nil {
			return nil, translate(err)
		}
		out = append(out, anpr.PlateSighting{
			Plate:      r.Plate,
			Category:   anpr.Category(last.Category),
			Confidence: last.Confidence,
			LastSeen:   r.LastSeen,
			Count:      r.Total,
		})
	}
	return out, nil
}
