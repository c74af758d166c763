package postgres

import (
	"time"

	"github.com/deskflow/booking-approval/internal/core/domain"
)

type userModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"size:50;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:100;not null"`
	Role         string    `gorm:"size:20;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

func (m userModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt,
	}
}

type bookingModel struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	EmployeeID      string    `gorm:"type:uuid;not null;index"`
	Employee        userModel `gorm:"foreignKey:EmployeeID"`
	BookingDate     time.Time `gorm:"type:date;not null"`
	Status          string    `gorm:"size:20;not null"`
	CreatedAt       time.Time `gorm:"not null;index"`
	ManagerActionAt *time.Time
	AdminActionAt   *time.Time
}

func (bookingModel) TableName() string { return "booking_requests" }

// bookingRow is the scan target of the employee join.
type bookingRow struct {
	ID              string
	EmployeeID      string
	BookingDate     time.Time
	Status          string
	CreatedAt       time.Time
	ManagerActionAt *time.Time
	AdminActionAt   *time.Time
	EmployeeName    string
}

func bookingFromDomain(b *domain.BookingRequest) bookingModel {
	return bookingModel{
		ID:              b.ID,
		EmployeeID:      b.EmployeeID,
		BookingDate:     b.BookingDate,
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt,
		ManagerActionAt: b.ManagerActionAt,
		AdminActionAt:   b.AdminActionAt,
	}
}

func (m bookingModel) toDomain() *domain.BookingRequest {
	return &domain.BookingRequest{
		ID:              m.ID,
		EmployeeID:      m.EmployeeID,
		BookingDate:     m.BookingDate.UTC(),
		Status:          domain.BookingStatus(m.Status),
		CreatedAt:       m.CreatedAt.UTC(),
		ManagerActionAt: m.ManagerActionAt,
		AdminActionAt:   m.AdminActionAt,
	}
}

func (r bookingRow) toDomain() domain.BookingView {
	return domain.BookingView{
		BookingRequest: domain.BookingRequest{
			ID:              r.ID,
			EmployeeID:      r.EmployeeID,
			BookingDate:     r.BookingDate.UTC(),
			Status:          domain.BookingStatus(r.Status),
			CreatedAt:       r.CreatedAt.UTC(),
			ManagerActionAt: r.ManagerActionAt,
			AdminActionAt:   r.AdminActionAt,
		},
		EmployeeName: r.EmployeeName,
	}
}
