package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hoomanthewonderman-hub/Fitness-bot/internal/models"
	"github.com/hoomanthewonderman-hub/Fitness-bot/pkg/logger"
)

type fakeStore struct {
	programs []*models.Program
	saveErr  error
}

func (f *fakeStore) GetCachedProgram(ctx context.Context, programHash, gymID string) (*models.Program, error) {
	for i := len(f.programs) - 1; i >= 0; i-- {
		p := f.programs[i]
		if p.ProgramHash == programHash && p.GymID == gymID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveProgram(ctx context.Context, program *models.Program) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.programs = append(f.programs, program)
	return nil
}

type fakeCompleter struct {
	configured bool
	text       string
	err        error
	calls      int
}

func (f *fakeCompleter) Configured() bool {
	return f.configured
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.text, f.err
}

func testProfile() *models.Profile {
	return &models.Profile{
		Username:            "ali",
		FullName:            "Ali Rezai",
		Age:                 25,
		Height:              180,
		Weight:              75,
		Gender:              "مرد",
		Goal:                "عضله‌سازی",
		DietaryRestrictions: "ندارد",
		PreferredFoods:      "مرغ، برنج",
	}
}

func TestFingerprint_IgnoresDietAndIdentity(t *testing.T) {
	a := testProfile()
	b := testProfile()
	b.Username = "hassan"
	b.FullName = "Hassan Karimi"
	b.DietaryRestrictions = "لاکتوز"
	b.PreferredFoods = "ماهی"

	if Fingerprint(a, TypeFullProgram) != Fingerprint(b, TypeFullProgram) {
		t.Error("fingerprint must ignore diet and identity fields")
	}
}

func TestFingerprint_SensitiveFields(t *testing.T) {
	base := Fingerprint(testProfile(), TypeFullProgram)

	mutate := map[string]func(*models.Profile){
		"age":    func(p *models.Profile) { p.Age = 26 },
		"height": func(p *models.Profile) { p.Height = 181 },
		"weight": func(p *models.Profile) { p.Weight = 76 },
		"gender": func(p *models.Profile) { p.Gender = "زن" },
		"goal":   func(p *models.Profile) { p.Goal = "کاهش وزن" },
	}
	for field, change := range mutate {
		p := testProfile()
		change(p)
		if Fingerprint(p, TypeFullProgram) == base {
			t.Errorf("fingerprint must change when %s changes", field)
		}
	}

	if Fingerprint(testProfile(), "other_type") == base {
		t.Error("fingerprint must change with program type")
	}
}

func TestGenerate_ProviderResultPersisted(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{configured: true, text: "برنامه هفتگی"}
	g := New(store, completer, logger.Nop())

	text, err := g.Generate(context.Background(), testProfile(), "default_gym", TypeFullProgram)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "برنامه هفتگی" {
		t.Errorf("expected provider text, got %q", text)
	}
	if len(store.programs) != 1 {
		t.Fatalf("expected one program row, got %d", len(store.programs))
	}

	row := store.programs[0]
	if row.ProgramHash != Fingerprint(testProfile(), TypeFullProgram) {
		t.Error("stored row carries wrong fingerprint")
	}
	if row.ProgramType != TypeFullProgram || row.GymID != "default_gym" {
		t.Errorf("unexpected row keys: type=%q gym=%q", row.ProgramType, row.GymID)
	}
	if !strings.Contains(row.UserProfile, "مرغ، برنج") {
		t.Error("profile snapshot missing from stored row")
	}
}

func TestGenerate_SecondCallHitsCache(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{configured: true, text: "برنامه هفتگی"}
	g := New(store, completer, logger.Nop())
	ctx := context.Background()

	first, err := g.Generate(ctx, testProfile(), "default_gym", TypeFullProgram)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := g.Generate(ctx, testProfile(), "default_gym", TypeFullProgram)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Error("cached call returned different text")
	}
	if completer.calls != 1 {
		t.Errorf("expected one provider call, got %d", completer.calls)
	}
	if len(store.programs) != 1 {
		t.Errorf("cache hit must not append a row, got %d rows", len(store.programs))
	}
}

func TestGenerate_CacheScopedByGym(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{configured: true, text: "برنامه"}
	g := New(store, completer, logger.Nop())
	ctx := context.Background()

	g.Generate(ctx, testProfile(), "default_gym", TypeFullProgram)
	g.Generate(ctx, testProfile(), "other_gym", TypeFullProgram)

	if completer.calls != 2 {
		t.Errorf("cache leaked across gyms: %d provider calls", completer.calls)
	}
}

func TestGenerate_FallbackWhenUnconfigured(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{configured: false}
	g := New(store, completer, logger.Nop())

	text, err := g.Generate(context.Background(), testProfile(), "default_gym", TypeFullProgram)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != FallbackText() {
		t.Errorf("expected fallback text, got %q", text)
	}
	if completer.calls != 0 {
		t.Errorf("unconfigured provider must not be called, got %d calls", completer.calls)
	}
	if len(store.programs) != 1 {
		t.Errorf("fallback result must still be persisted, got %d rows", len(store.programs))
	}
}

func TestGenerate_FallbackOnProviderError(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{configured: true, err: errors.New("rate limited")}
	g := New(store, completer, logger.Nop())

	text, err := g.Generate(context.Background(), testProfile(), "default_gym", TypeFullProgram)
	if err != nil {
		t.Fatalf("provider failure must be absorbed, got %v", err)
	}
	if text != FallbackText() {
		t.Errorf("expected fallback text, got %q", text)
	}
}

func TestGenerate_SaveFailureSurfaces(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	completer := &fakeCompleter{configured: true, text: "برنامه"}
	g := New(store, completer, logger.Nop())

	if _, err := g.Generate(context.Background(), testProfile(), "default_gym", TypeFullProgram); err == nil {
		t.Error("expected persistence failure to surface")
	}
}
