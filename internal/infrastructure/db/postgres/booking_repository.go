package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deskflow/booking-approval/internal/core/domain"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.BookingRequest) error {
	b.ID = uuid.NewString()
	row := bookingFromDomain(b)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*domain.BookingRequest, error) {
	// ids are uuids; anything else cannot exist and would fail the column cast.
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrBookingNotFound
	}

	var row bookingModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return row.toDomain(), nil
}

// Transition issues UPDATE ... WHERE id = ? AND status = ?; zero affected rows
// means the guard no longer holds.
func (r *BookingRepository) Transition(ctx context.Context, t domain.Transition) (*domain.BookingRequest, error) {
	res := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ? AND status = ?", t.ID, string(t.Stage.From)).
		Updates(map[string]any{
			"status":              string(t.To),
			actionColumn(t.Stage): t.At,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update booking status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, t.ID); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidTransition
	}
	return r.FindByID(ctx, t.ID)
}

func (r *BookingRepository) ListWithEmployee(ctx context.Context) ([]domain.BookingView, error) {
	var rows []bookingRow
	err := r.db.WithContext(ctx).
		Table("booking_requests AS br").
		Select("br.id, br.employee_id, br.booking_date, br.status, br.created_at, " +
			"br.manager_action_at, br.admin_action_at, u.username AS employee_name").
		Joins("JOIN users u ON u.id = br.employee_id").
		Order("br.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	views := make([]domain.BookingView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.toDomain())
	}
	return views, nil
}

func actionColumn(s domain.Stage) string {
	if s.Actor == domain.RoleAdmin {
		return "admin_action_at"
	}
	return "manager_action_at"
}
