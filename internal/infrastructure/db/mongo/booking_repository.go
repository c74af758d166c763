package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deskflow/booking-approval/internal/core/domain"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(collectionBookings)}
}

type mongoBooking struct {
	ID              string     `bson:"_id"`
	EmployeeID      string     `bson:"employee_id"`
	BookingDate     time.Time  `bson:"booking_date"`
	Status          string     `bson:"status"`
	CreatedAt       time.Time  `bson:"created_at"`
	ManagerActionAt *time.Time `bson:"manager_action_at"`
	AdminActionAt   *time.Time `bson:"admin_action_at"`
}

// mongoBookingView is the shape produced by the $lookup pipeline in ListWithEmployee.
type mongoBookingView struct {
	Booking  mongoBooking `bson:",inline"`
	Employee struct {
		Username string `bson:"username"`
	} `bson:"employee"`
}

// Create inserts a new booking request document.
func (r *BookingRepository) Create(ctx context.Context, b *domain.BookingRequest) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	b.ID = uuid.NewString()
	if _, err := r.col.InsertOne(ctx, fromDomain(b)); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*domain.BookingRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mb mongoBooking
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&mb); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return mb.toDomain(), nil
}

// Transition atomically sets the new status and the stage's action timestamp,
// matching on the expected current status.
func (r *BookingRepository) Transition(ctx context.Context, t domain.Transition) (*domain.BookingRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": t.ID, "status": string(t.Stage.From)}
	update := bson.M{"$set": bson.M{
		"status":             string(t.To),
		actionField(t.Stage): t.At.UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var mb mongoBooking
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&mb)
	if err == nil {
		return mb.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	n, cerr := r.col.CountDocuments(ctx, bson.M{"_id": t.ID})
	if cerr != nil {
		return nil, fmt.Errorf("count booking: %w", cerr)
	}
	if n == 0 {
		return nil, domain.ErrBookingNotFound
	}
	return nil, domain.ErrInvalidTransition
}

func (r *BookingRepository) ListWithEmployee(ctx context.Context) ([]domain.BookingView, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionUsers,
			"localField":   "employee_id",
			"foreignField": "_id",
			"as":           "employee",
		}}},
		{{Key: "$unwind", Value: "$employee"}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate bookings: %w", err)
	}
	defer cur.Close(ctx)

	var rows []mongoBookingView
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}

	views := make([]domain.BookingView, 0, len(rows))
	for _, row := range rows {
		views = append(views, domain.BookingView{
			BookingRequest: *row.Booking.toDomain(),
			EmployeeName:   row.Employee.Username,
		})
	}
	return views, nil
}

func actionField(s domain.Stage) string {
	if s.Actor == domain.RoleAdmin {
		return "admin_action_at"
	}
	return "manager_action_at"
}

func fromDomain(b *domain.BookingRequest) mongoBooking {
	return mongoBooking{
		ID:              b.ID,
		EmployeeID:      b.EmployeeID,
		BookingDate:     b.BookingDate.UTC(),
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt.UTC(),
		ManagerActionAt: b.ManagerActionAt,
		AdminActionAt:   b.AdminActionAt,
	}
}

func (mb mongoBooking) toDomain() *domain.BookingRequest {
	return &domain.BookingRequest{
		ID:              mb.ID,
		EmployeeID:      mb.EmployeeID,
		BookingDate:     mb.BookingDate.UTC(),
		Status:          domain.BookingStatus(mb.Status),
		CreatedAt:       mb.CreatedAt.UTC(),
		ManagerActionAt: mb.ManagerActionAt,
		AdminActionAt:   mb.AdminActionAt,
	}
}
