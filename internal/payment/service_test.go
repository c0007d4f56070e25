package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/models"
	"github.com/hoomanthewonderman-hub/Fitness-bot/pkg/logger"
)

type fakeStore struct {
	gyms       map[string]*models.Gym
	payments   map[int64]*models.Payment
	userStatus map[int64]string
	nextID     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		gyms: map[string]*models.Gym{
			"default_gym": {
				GymID:      "default_gym",
				PriceToman: 500000,
				PriceTon:   5.0,
				BankCard:   "6037-xxxx",
				CardOwner:  "مدیر باشگاه",
				TonWallet:  "ton://wallet",
			},
		},
		payments:   make(map[int64]*models.Payment),
		userStatus: make(map[int64]string),
		nextID:     1,
	}
}

func (f *fakeStore) GetGym(ctx context.Context, gymID string) (*models.Gym, error) {
	return f.gyms[gymID], nil
}

func (f *fakeStore) SavePayment(ctx context.Context, payment *models.Payment) error {
	payment.ID = f.nextID
	payment.CreatedAt = time.Now()
	f.nextID++
	f.payments[payment.ID] = payment
	return nil
}

func (f *fakeStore) ListPendingPayments(ctx context.Context, gymID string) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.payments {
		if p.Status == models.PaymentStatusPending && p.GymID == gymID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) GetPendingPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	p, ok := f.payments[paymentID]
	if !ok || p.Status != models.PaymentStatusPending {
		return nil, nil
	}
	return p, nil
}

func (f *fakeStore) ApprovePayment(ctx context.Context, paymentID int64) (int64, string, error) {
	p, ok := f.payments[paymentID]
	if !ok || p.Status != models.PaymentStatusPending {
		return 0, "", nil
	}
	now := time.Now()
	p.Status = models.PaymentStatusApproved
	p.AdminVerified = true
	p.VerifiedAt = &now
	return p.UserID, p.GymID, nil
}

func (f *fakeStore) SetUserPaymentStatus(ctx context.Context, userID int64, gymID, status string) error {
	f.userStatus[userID] = status
	return nil
}

type fakeNotifier struct {
	sent map[int64][]string
	err  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(map[int64][]string)}
}

func (f *fakeNotifier) Notify(chatID int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent[chatID] = append(f.sent[chatID], text)
	return nil
}

const adminID = int64(1000)

func newTestService(store *fakeStore, notifier *fakeNotifier) *Service {
	admins := map[int64]struct{}{adminID: {}}
	return NewService(store, notifier, admins, logger.Nop())
}

func TestCreatePending(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeNotifier())

	p, gym, err := svc.CreatePending(context.Background(), 42, "default_gym")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == 0 {
		t.Error("expected generated payment id")
	}
	if p.Status != models.PaymentStatusPending {
		t.Errorf("expected pending status, got %q", p.Status)
	}
	if p.AmountToman != 500000 || p.AmountTon != 5.0 {
		t.Errorf("prices not taken from gym: %d / %v", p.AmountToman, p.AmountTon)
	}
	if gym.BankCard != "6037-xxxx" {
		t.Errorf("expected gym transfer details, got %q", gym.BankCard)
	}
}

func TestCreatePending_MissingGym(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeNotifier())

	_, _, err := svc.CreatePending(context.Background(), 42, "no_such_gym")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListPending_Unauthorized(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeNotifier())
	svc.CreatePending(context.Background(), 42, "default_gym")

	if _, err := svc.ListPending(context.Background(), 555, "default_gym"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	payments, err := svc.ListPending(context.Background(), adminID, "default_gym")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payments) != 1 {
		t.Errorf("expected one pending payment, got %d", len(payments))
	}
}

func TestApprove(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	svc := newTestService(store, notifier)
	ctx := context.Background()

	p, _, _ := svc.CreatePending(ctx, 42, "default_gym")

	if err := svc.Approve(ctx, adminID, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := store.payments[p.ID]
	if stored.Status != models.PaymentStatusApproved {
		t.Errorf("expected approved status, got %q", stored.Status)
	}
	if !stored.AdminVerified || stored.VerifiedAt == nil {
		t.Error("expected admin_verified flag and verification timestamp")
	}
	if store.userStatus[42] != models.UserPaymentPaid {
		t.Errorf("expected user marked paid, got %q", store.userStatus[42])
	}
	if len(notifier.sent[42]) != 1 {
		t.Errorf("expected one notification to user, got %d", len(notifier.sent[42]))
	}
}

func TestApprove_Idempotent(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	svc := newTestService(store, notifier)
	ctx := context.Background()

	p, _, _ := svc.CreatePending(ctx, 42, "default_gym")
	if err := svc.Approve(ctx, adminID, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second approval must report not found, keep the status and not re-fire
	// the notification.
	if err := svc.Approve(ctx, adminID, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second approval, got %v", err)
	}
	if store.payments[p.ID].Status != models.PaymentStatusApproved {
		t.Errorf("status changed on repeat approval: %q", store.payments[p.ID].Status)
	}
	if len(notifier.sent[42]) != 1 {
		t.Errorf("notification re-fired: %d messages", len(notifier.sent[42]))
	}
}

func TestApprove_Unauthorized(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	svc := newTestService(store, notifier)
	ctx := context.Background()

	p, _, _ := svc.CreatePending(ctx, 42, "default_gym")

	if err := svc.Approve(ctx, 555, p.ID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if store.payments[p.ID].Status != models.PaymentStatusPending {
		t.Error("unauthorized call mutated payment state")
	}
	if len(notifier.sent) != 0 {
		t.Error("unauthorized call sent notifications")
	}
}

func TestApprove_MissingPayment(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeNotifier())

	if err := svc.Approve(context.Background(), adminID, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestApprove_NotificationFailureDoesNotRollBack(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	notifier.err = errors.New("user blocked the bot")
	svc := newTestService(store, notifier)
	ctx := context.Background()

	p, _, _ := svc.CreatePending(ctx, 42, "default_gym")

	if err := svc.Approve(ctx, adminID, p.ID); err != nil {
		t.Fatalf("notification failure must be absorbed, got %v", err)
	}
	if store.payments[p.ID].Status != models.PaymentStatusApproved {
		t.Error("state transition rolled back on notification failure")
	}
	if store.userStatus[42] != models.UserPaymentPaid {
		t.Error("user status rolled back on notification failure")
	}
}

func TestConfirm(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	svc := newTestService(store, notifier)
	ctx := context.Background()

	p, _, _ := svc.CreatePending(ctx, 42, "default_gym")

	if err := svc.Confirm(ctx, 42, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.sent[adminID]) != 1 {
		t.Errorf("expected one admin notification, got %d", len(notifier.sent[adminID]))
	}

	// A foreign payment id must not leak to admins.
	if err := svc.Confirm(ctx, 77, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign payment, got %v", err)
	}
	if len(notifier.sent[adminID]) != 1 {
		t.Error("foreign confirm notified admins")
	}
}
