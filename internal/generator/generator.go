// internal/generator/generator.go
package generator

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/models"
	"github.com/hoomanthewonderman-hub/Fitness-bot/pkg/logger"
)

// TypeFullProgram is the artifact type produced for a completed profile.
const TypeFullProgram = "full_program"

// Store is the slice of the persistence gateway the generator needs.
type Store interface {
	GetCachedProgram(ctx context.Context, programHash, gymID string) (*models.Program, error)
	SaveProgram(ctx context.Context, program *models.Program) error
}

// Completer is the generative-text boundary. Configured reports whether a
// credential is present; Complete may still fail at call time.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

type Generator struct {
	store     Store
	completer Completer
	logger    *logger.Logger
}

func New(store Store, completer Completer, l *logger.Logger) *Generator {
	return &Generator{
		store:     store,
		completer: completer,
		logger:    l,
	}
}

// Fingerprint hashes the physical and goal parameters of a profile together
// with the program type. Dietary notes, preferred foods and identity fields
// are excluded, so users sharing these parameters share a cached artifact.
func Fingerprint(profile *models.Profile, programType string) string {
	s := strings.Join([]string{
		programType,
		strconv.Itoa(profile.Age),
		strconv.FormatFloat(profile.Height, 'f', -1, 64),
		strconv.FormatFloat(profile.Weight, 'f', -1, 64),
		profile.Gender,
		profile.Goal,
	}, "_")
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Generate returns the program text for a profile: cached artifact if one
// exists for the fingerprint, otherwise provider output, otherwise the static
// fallback. Provider failures are absorbed; every fresh generation appends a
// new program row with a profile snapshot.
func (g *Generator) Generate(ctx context.Context, profile *models.Profile, gymID, programType string) (string, error) {
	hash := Fingerprint(profile, programType)

	cached, err := g.store.GetCachedProgram(ctx, hash, gymID)
	if err != nil {
		return "", fmt.Errorf("cache lookup failed: %w", err)
	}
	if cached != nil {
		g.logger.Info("Program cache hit", "hash", hash, "gym_id", gymID)
		return cached.ProgramData, nil
	}

	text := g.fromProvider(ctx, profile)
	if text == "" {
		text = FallbackText()
	}

	snapshot, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("failed to snapshot profile: %w", err)
	}

	program := &models.Program{
		GymID:       gymID,
		ProgramHash: hash,
		ProgramType: programType,
		ProgramData: text,
		UserProfile: string(snapshot),
	}
	if err := g.store.SaveProgram(ctx, program); err != nil {
		return "", fmt.Errorf("failed to save program: %w", err)
	}

	return text, nil
}

// fromProvider attempts the primary provider call. Any error, and the
// unconfigured case, collapse to "" so the caller substitutes the fallback.
func (g *Generator) fromProvider(ctx context.Context, profile *models.Profile) string {
	if !g.completer.Configured() {
		g.logger.Info("Completion provider not configured, using fallback")
		return ""
	}

	text, err := g.completer.Complete(ctx, buildPrompt(profile))
	if err != nil {
		g.logger.Error("Completion provider failed, using fallback", "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func buildPrompt(profile *models.Profile) string {
	return fmt.Sprintf(
		"شما یک مربی و متخصص تغذیه حرفه‌ای هستید. برای کاربر زیر یک برنامه کامل تمرینی و تغذیه‌ای به زبان فارسی بنویسید:\n\n"+
			"سن: %d\n"+
			"قد: %s\n"+
			"وزن: %s\n"+
			"جنسیت: %s\n"+
			"هدف: %s\n\n"+
			"لطفاً برنامه هفتگی، تمرینات هر روز، ست و تکرار، نکات ایمنی، و یک برنامه تغذیه‌ای کلی بدهید.",
		profile.Age,
		strconv.FormatFloat(profile.Height, 'f', -1, 64),
		strconv.FormatFloat(profile.Weight, 'f', -1, 64),
		profile.Gender,
		profile.Goal,
	)
}

// FallbackText is the static program used when the provider is unavailable.
func FallbackText() string {
	return "🏋️‍♂️ برنامه تمرینی نمونه (فِال‌بک)\n\n" +
		"🔹 برنامه ۳ روزه در هفته: \n" +
		"روز 1: حرکت‌های سینه و سرشانه (۳ ست × 10-12 تکرار)\n" +
		"روز 2: پشت و جلو بازو\n" +
		"روز 3: پاها\n\n" +
		"🥗 تغذیه: پروتئین کافی، سبزیجات، هیدرات کافی.\n\n" +
		"توضیح: برای برنامه دقیق‌تر، کلید OpenAI را در env قرار بده."
}
