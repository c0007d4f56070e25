// internal/conversation/machine.go
package conversation

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/models"
	"github.com/hoomanthewonderman-hub/Fitness-bot/pkg/logger"
)

const (
	msgNoSession   = "برای شروع /start را بزنید."
	msgSaveFailed  = "متأسفانه در ذخیره اطلاعات خطایی رخ داد. لطفاً دوباره تلاش کنید."
	msgProfileDone = "اطلاعات ذخیره شد. حالا گزینه پرداخت را انتخاب کنید تا برنامه تکمیل شود.\n\n" +
		"1) کارت به کارت\n2) کیف پول TON\n\nبرای پرداخت، /pay را بزنید."
)

// UserStore is the slice of the persistence gateway the machine needs.
type UserStore interface {
	SaveUser(ctx context.Context, user *models.User) error
}

// Identity carries the transport-supplied fields merged into the profile at
// completion.
type Identity struct {
	Username string
	FullName string
}

// Machine walks a user through the fixed intake sequence. Sessions are held
// in the injected store; completed profiles are upserted through the user
// store.
type Machine struct {
	sessions *Store
	users    UserStore
	logger   *logger.Logger
}

func NewMachine(sessions *Store, users UserStore, l *logger.Logger) *Machine {
	return &Machine{
		sessions: sessions,
		users:    users,
		logger:   l,
	}
}

// Begin seeds a fresh session at the first question and returns its prompt.
func (m *Machine) Begin(userID int64, gymID string) string {
	m.sessions.Begin(userID, gymID)
	return prompts[StepAge]
}

// Reset drops any in-progress session.
func (m *Machine) Reset(userID int64) {
	m.sessions.Clear(userID)
}

// HandleMessage processes one free-text answer and returns the reply to send.
// Invalid input re-issues the current prompt without advancing or dropping
// collected fields. On the terminal step the profile is upserted and the
// session cleared.
func (m *Machine) HandleMessage(ctx context.Context, userID int64, identity Identity, text string) string {
	text = strings.TrimSpace(text)

	sess, ok := m.sessions.Get(userID)
	if !ok || sess.Step == StepIdle {
		return msgNoSession
	}

	switch sess.Step {
	case StepAge:
		age, err := strconv.Atoi(text)
		if err != nil || age < 0 {
			return invalidPrompts[StepAge]
		}
		sess.Age = age

	case StepHeight:
		height, ok := parseMeasurement(text)
		if !ok {
			return invalidPrompts[StepHeight]
		}
		sess.Height = height

	case StepWeight:
		weight, ok := parseMeasurement(text)
		if !ok {
			return invalidPrompts[StepWeight]
		}
		sess.Weight = weight

	case StepGender:
		if text == "" {
			return prompts[StepGender]
		}
		sess.Gender = text

	case StepGoal:
		if text == "" {
			return prompts[StepGoal]
		}
		sess.Goal = text

	case StepDiet:
		if text == "" {
			return prompts[StepDiet]
		}
		sess.DietaryRestrictions = text

	case StepFoods:
		if text == "" {
			return prompts[StepFoods]
		}
		sess.PreferredFoods = text
		return m.complete(ctx, userID, identity, sess)

	default:
		m.sessions.Clear(userID)
		return msgNoSession
	}

	sess.Step = transitions[sess.Step]
	return prompts[sess.Step]
}

// parseMeasurement accepts only non-negative finite decimals. ParseFloat
// alone would also take NaN and the infinities, which poison the stored
// profile (NaN cannot be marshaled into a program snapshot).
func parseMeasurement(text string) (float64, bool) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// complete assembles the profile, upserts the user row and clears the
// session. A failed save keeps the session so the user can resend the last
// answer.
func (m *Machine) complete(ctx context.Context, userID int64, identity Identity, sess *Session) string {
	user := &models.User{
		UserID:              userID,
		GymID:               sess.GymID,
		Username:            identity.Username,
		FullName:            identity.FullName,
		Age:                 sess.Age,
		Height:              sess.Height,
		Weight:              sess.Weight,
		Gender:              sess.Gender,
		Goal:                sess.Goal,
		DietaryRestrictions: sess.DietaryRestrictions,
		PreferredFoods:      sess.PreferredFoods,
	}

	if err := m.users.SaveUser(ctx, user); err != nil {
		m.logger.Error("Failed to save user profile", "error", err, "user_id", userID)
		return msgSaveFailed
	}

	m.sessions.Clear(userID)
	m.logger.Info("Profile completed", "user_id", userID, "gym_id", sess.GymID)
	return msgProfileDone
}
