package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"live-trivia-service/internal/domain"
)

type questionBankRow struct {
	bun.BaseModel `bun:"table:question_banks"`

	ID        string          `bun:"id,pk"`
	Title     string          `bun:"title"`
	Data      json.RawMessage `bun:"data,type:jsonb"`
	UpdatedAt time.Time       `bun:"updated_at"`
}

// BankWriter upserts question banks so the loader can serve them.
type BankWriter struct {
	db  *bun.DB
	now func() time.Time
}

func NewBankWriter(db *bun.DB) *BankWriter {
	return &BankWriter{db: db, now: time.Now}
}

// Upsert validates and stores banks, replacing existing rows with the same id.
func (w *BankWriter) Upsert(ctx context.Context, banks ...domain.QuestionBank) error {
	for _, bank := range banks {
		if err := bank.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(bank)
		if err != nil {
			return fmt.Errorf("marshal bank %s: %w", bank.ID, err)
		}
		row := &questionBankRow{ID: bank.ID, Title: bank.Title, Data: data, UpdatedAt: w.now()}
		_, err = w.db.NewInsert().
			Model(row).
			On("CONFLICT (id) DO UPDATE").
			Set("title = EXCLUDED.title").
			Set("data = EXCLUDED.data").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert bank %s: %w", bank.ID, err)
		}
	}
	return nil
}
