// Package store persists properties, applications, tours, messages and
// favorites with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the data access the HTTP handlers need.
type Repository interface {
	CreateProperty(ctx context.Context, p *Property) error
	GetProperty(ctx context.Context, id string) (*Property, error)

	CreateApplication(ctx context.Context, a *Application) error
	// GetApplication loads the application with its property.
	GetApplication(ctx context.Context, id string) (*Application, error)
	UpdateApplicationStatus(ctx context.Context, id string, upd ApplicationStatusUpdate) error

	CreateTour(ctx context.Context, t *Tour) error
	GetTour(ctx context.Context, id string) (*Tour, error)
	UpdateTourStatus(ctx context.Context, id, from, to string) error

	CreateMessage(ctx context.Context, m *Message) error

	AddFavorite(ctx context.Context, userID, propertyID string) error
	RemoveFavorite(ctx context.Context, userID, propertyID string) error
}

// ApplicationStatusUpdate is one compare-and-set status write. Nil timestamps
// are left unchanged.
type ApplicationStatusUpdate struct {
	From        string
	To          string
	Timeline    Timeline
	SubmittedAt *time.Time
	ReviewedAt  *time.Time
	DecisionAt  *time.Time
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

var _ Repository = (*GormRepository)(nil)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *GormRepository) CreateProperty(ctx context.Context, p *Property) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create property: %w", err)
	}
	return nil
}

func (r *GormRepository) GetProperty(ctx context.Context, id string) (*Property, error) {
	var p Property
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *GormRepository) CreateApplication(ctx context.Context, a *Application) error {
	if err := r.db.WithContext(ctx).Omit("Property").Create(a).Error; err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (r *GormRepository) GetApplication(ctx context.Context, id string) (*Application, error) {
	var a Application
	if err := r.db.WithContext(ctx).Preload("Property").First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// UpdateApplicationStatus writes only if the row still has upd.From. Every
// accepted change moves the status, so the guard also protects the timeline
// read together with it.
func (r *GormRepository) UpdateApplicationStatus(ctx context.Context, id string, upd ApplicationStatusUpdate) error {
	values := map[string]any{
		"status":   upd.To,
		"timeline": upd.Timeline,
	}
	if upd.SubmittedAt != nil {
		values["submitted_at"] = *upd.SubmittedAt
	}
	if upd.ReviewedAt != nil {
		values["reviewed_at"] = *upd.ReviewedAt
	}
	if upd.DecisionAt != nil {
		values["decision_at"] = *upd.DecisionAt
	}

	res := r.db.WithContext(ctx).
		Model(&Application{}).
		Where("id = ? AND status = ?", id, upd.From).
		Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update application status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, &Application{}, id)
	}
	return nil
}

func (r *GormRepository) CreateTour(ctx context.Context, t *Tour) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create tour: %w", err)
	}
	return nil
}

func (r *GormRepository) GetTour(ctx context.Context, id string) (*Tour, error) {
	var t Tour
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *GormRepository) UpdateTourStatus(ctx context.Context, id, from, to string) error {
	res := r.db.WithContext(ctx).
		Model(&Tour{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("update tour status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, &Tour{}, id)
	}
	return nil
}

func (r *GormRepository) missingOrConflict(ctx context.Context, model any, id string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("check row: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (r *GormRepository) CreateMessage(ctx context.Context, m *Message) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// AddFavorite is idempotent.
func (r *GormRepository) AddFavorite(ctx context.Context, userID, propertyID string) error {
	fav := Favorite{UserID: userID, PropertyID: propertyID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&fav).Error
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite returns ErrNotFound when there was nothing to remove.
func (r *GormRepository) RemoveFavorite(ctx context.Context, userID, propertyID string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Delete(&Favorite{})
	if res.Error != nil {
		return fmt.Errorf("remove favorite: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the database connection.
func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
