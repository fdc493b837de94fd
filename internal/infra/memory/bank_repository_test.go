package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"live-trivia-service/internal/domain"
)

func TestBankRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[string]domain.QuestionBank{
			"general": sampleBank(),
		}),
	}
	repo := NewBankRepository(loader, time.Minute)

	if _, err := repo.GetBank(context.Background(), "general"); err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	bank, err := repo.GetBank(context.Background(), "general")
	if err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if bank.Len() != 2 {
		t.Fatalf("expected 2 questions, got %d", bank.Len())
	}
}

func TestBankRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[string]domain.QuestionBank{"general": sampleBank()}),
	}
	repo := NewBankRepository(loader, time.Minute)
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetBank(context.Background(), "general")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetBank(context.Background(), "general")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestBankRepositoryRejectsInvalidBank(t *testing.T) {
	bad := sampleBank()
	bad.Questions[0].CorrectIndex = 7
	repo := NewBankRepository(NewStaticBankLoader(map[string]domain.QuestionBank{"general": bad}), time.Minute)

	_, err := repo.GetBank(context.Background(), "general")
	if !errors.Is(err, domain.ErrInvalidBank) {
		t.Fatalf("expected invalid bank error, got %v", err)
	}
}

func TestBankRepositoryUnknownBank(t *testing.T) {
	repo := NewBankRepository(NewStaticBankLoader(nil), time.Minute)

	_, err := repo.GetBank(context.Background(), "missing")
	if !errors.Is(err, domain.ErrBankNotFound) {
		t.Fatalf("expected bank not found, got %v", err)
	}
}

func TestStaticBankLoaderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banks.yaml")
	content := `banks:
  - id: capitals
    title: Capitals
    questions:
      - id: 1
        prompt: Capital of France?
        options: [Berlin, Paris, Rome]
        correctIndex: 1
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	loader, err := NewStaticBankLoaderFromFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	bank, err := loader.LoadBank(context.Background(), "capitals")
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	if bank.Title != "Capitals" || bank.Questions[0].Options[1] != "Paris" || bank.Questions[0].CorrectIndex != 1 {
		t.Fatalf("unexpected bank %+v", bank)
	}
}

type countingLoader struct {
	BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx, bankID)
}

func sampleBank() domain.QuestionBank {
	return domain.QuestionBank{
		ID:    "general",
		Title: "General knowledge",
		Questions: []domain.Question{
			{ID: 1, Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectIndex: 1},
			{ID: 2, Prompt: "Largest planet?", Options: []string{"Mars", "Jupiter"}, CorrectIndex: 1},
		},
	}
}
