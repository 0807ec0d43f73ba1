package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/repos"
	"github.com/studiora/studiora-backend/internal/types"
)

// InitiateCheckoutResult reports either the checkout redirect URL or that the
// user already holds an active enrollment (no duplicate checkout is started).
type InitiateCheckoutResult struct {
	AlreadyEnrolled bool   `json:"already_enrolled"`
	CheckoutURL     string `json:"checkout_url,omitempty"`
}

type EnrollmentService interface {
	InitiateCheckout(ctx context.Context, userID, courseID uuid.UUID) (*InitiateCheckoutResult, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Enrollment, error)
	// HasActiveEnrollment gates paid lesson content.
	HasActiveEnrollment(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
}

type enrollmentService struct {
	db             *gorm.DB
	log            *logger.Logger
	userRepo       repos.UserRepo
	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
	payments       PaymentClient
}

func NewEnrollmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	payments PaymentClient,
) EnrollmentService {
	serviceLog := baseLog.With("service", "EnrollmentService")
	return &enrollmentService{
		db:             db,
		log:            serviceLog,
		userRepo:       userRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		payments:       payments,
	}
}

func (s *enrollmentService) InitiateCheckout(ctx context.Context, userID, courseID uuid.UUID) (*InitiateCheckoutResult, error) {
	courses, err := s.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("%w: course", ErrNotFound)
	}
	course := courses[0]
	if course.PriceRef == "" {
		return nil, fmt.Errorf("%w: course has no configured price reference", ErrBadRequest)
	}

	existing, err := s.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if existing != nil && existing.Status == types.EnrollmentActive {
		return &InitiateCheckoutResult{AlreadyEnrolled: true}, nil
	}

	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	user := users[0]

	customerID, err := s.ensureBillingCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.enrollmentRepo.UpsertPending(ctx, nil, userID, courseID, course.Price)
	if err != nil {
		return nil, fmt.Errorf("upsert pending enrollment: %w", err)
	}

	url, err := s.payments.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID:   customerID,
		PriceRef:     course.PriceRef,
		CourseID:     courseID.String(),
		UserID:       userID.String(),
		EnrollmentID: enrollment.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("start checkout: %w", err)
	}

	s.log.Info("Checkout initiated", "user_id", userID, "course_id", courseID, "enrollment_id", enrollment.ID)
	return &InitiateCheckoutResult{CheckoutURL: url}, nil
}

// ensureBillingCustomer reuses the stored provider reference when it still
// resolves; a stale reference is replaced and the new one persisted.
func (s *enrollmentService) ensureBillingCustomer(ctx context.Context, user *types.User) (string, error) {
	if user.BillingCustomerID != "" {
		exists, err := s.payments.CustomerExists(ctx, user.BillingCustomerID)
		if err != nil {
			return "", fmt.Errorf("verify billing customer: %w", err)
		}
		if exists {
			return user.BillingCustomerID, nil
		}
		s.log.Warn("Stored billing customer no longer resolves, minting a new one", "user_id", user.ID)
	}

	customerID, err := s.payments.CreateCustomer(ctx, user.Email, user.Name)
	if err != nil {
		return "", err
	}
	if err := s.userRepo.UpdateBillingCustomerID(ctx, nil, user.ID, customerID); err != nil {
		return "", fmt.Errorf("persist billing customer: %w", err)
	}
	return customerID, nil
}

func (s *enrollmentService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Enrollment, error) {
	enrollments, err := s.enrollmentRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

func (s *enrollmentService) HasActiveEnrollment(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	enrollment, err := s.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("load enrollment: %w", err)
	}
	return enrollment != nil && enrollment.Status == types.EnrollmentActive, nil
}
