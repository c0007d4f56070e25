// internal/payment/service.go
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/models"
	"github.com/hoomanthewonderman-hub/Fitness-bot/pkg/logger"
)

var (
	// ErrUnauthorized is returned when the caller is not on the admin
	// allow-list.
	ErrUnauthorized = errors.New("caller is not an admin")
	// ErrNotFound covers missing gyms and missing or already processed
	// payments.
	ErrNotFound = errors.New("not found")
)

// MethodManual marks card-to-card / TON transfers verified by a human admin.
const MethodManual = "manual"

// Store is the slice of the persistence gateway the workflow needs.
type Store interface {
	GetGym(ctx context.Context, gymID string) (*models.Gym, error)
	SavePayment(ctx context.Context, payment *models.Payment) error
	ListPendingPayments(ctx context.Context, gymID string) ([]models.Payment, error)
	GetPendingPayment(ctx context.Context, paymentID int64) (*models.Payment, error)
	ApprovePayment(ctx context.Context, paymentID int64) (int64, string, error)
	SetUserPaymentStatus(ctx context.Context, userID int64, gymID, status string) error
}

// Notifier delivers outbound messages. Delivery failures never roll back a
// committed state transition.
type Notifier interface {
	Notify(chatID int64, text string) error
}

// Service implements the manual payment-approval workflow. The admin
// allow-list is parsed once at startup and injected; it is never re-read.
type Service struct {
	store    Store
	notifier Notifier
	admins   map[int64]struct{}
	logger   *logger.Logger
}

func NewService(store Store, notifier Notifier, admins map[int64]struct{}, l *logger.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		admins:   admins,
		logger:   l,
	}
}

func (s *Service) IsAdmin(userID int64) bool {
	_, ok := s.admins[userID]
	return ok
}

// CreatePending inserts a pending payment priced from the gym record and
// returns it together with the gym, whose transfer details the caller
// presents to the user.
func (s *Service) CreatePending(ctx context.Context, userID int64, gymID string) (*models.Payment, *models.Gym, error) {
	gym, err := s.store.GetGym(ctx, gymID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load gym: %w", err)
	}
	if gym == nil {
		return nil, nil, fmt.Errorf("gym %q: %w", gymID, ErrNotFound)
	}

	payment := &models.Payment{
		UserID:        userID,
		GymID:         gymID,
		AmountToman:   gym.PriceToman,
		AmountTon:     gym.PriceTon,
		PaymentMethod: MethodManual,
		Status:        models.PaymentStatusPending,
	}
	if err := s.store.SavePayment(ctx, payment); err != nil {
		return nil, nil, fmt.Errorf("failed to create payment: %w", err)
	}

	s.logger.Info("Pending payment created", "payment_id", payment.ID, "user_id", userID, "gym_id", gymID)
	return payment, gym, nil
}

// ListPending returns pending payments newest first. Admin only.
func (s *Service) ListPending(ctx context.Context, callerID int64, gymID string) ([]models.Payment, error) {
	if !s.IsAdmin(callerID) {
		return nil, ErrUnauthorized
	}
	return s.store.ListPendingPayments(ctx, gymID)
}

// Approve flips a pending payment to approved, marks the owning user as paid
// and sends a best-effort notification. A second approval of the same id
// reports ErrNotFound without re-firing the notification.
func (s *Service) Approve(ctx context.Context, callerID, paymentID int64) error {
	if !s.IsAdmin(callerID) {
		return ErrUnauthorized
	}

	userID, gymID, err := s.store.ApprovePayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to approve payment: %w", err)
	}
	if userID == 0 {
		return fmt.Errorf("payment %d: %w", paymentID, ErrNotFound)
	}

	if err := s.store.SetUserPaymentStatus(ctx, userID, gymID, models.UserPaymentPaid); err != nil {
		return fmt.Errorf("failed to mark user paid: %w", err)
	}

	s.logger.Info("Payment approved", "payment_id", paymentID, "user_id", userID, "admin_id", callerID)

	// Notification is best effort; the transition above is authoritative.
	if err := s.notifier.Notify(userID, "پرداخت شما توسط ادمین تایید شد. برای دریافت برنامه /program را بزنید."); err != nil {
		s.logger.Error("Failed to notify user about approval", "error", err, "user_id", userID)
	}

	return nil
}

// Confirm lets a user reference a pending payment after transferring funds;
// every admin receives a verification request. Foreign or processed ids
// report ErrNotFound.
func (s *Service) Confirm(ctx context.Context, userID, paymentID int64) error {
	payment, err := s.store.GetPendingPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil || payment.UserID != userID {
		return fmt.Errorf("payment %d: %w", paymentID, ErrNotFound)
	}

	text := fmt.Sprintf(
		"درخواست تایید پرداخت:\nid: %d | user: %d | %d تومان | %.2f TON\nبرای تایید: /approve %d",
		payment.ID, payment.UserID, payment.AmountToman, payment.AmountTon, payment.ID,
	)
	for adminID := range s.admins {
		if err := s.notifier.Notify(adminID, text); err != nil {
			s.logger.Error("Failed to notify admin", "error", err, "admin_id", adminID)
		}
	}

	return nil
}
