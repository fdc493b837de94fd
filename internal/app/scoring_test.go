package app

import (
	"testing"
	"time"

	"live-trivia-service/internal/domain"
)

func TestScoreQuestion(t *testing.T) {
	q := domain.Question{ID: 3, Prompt: "Pick B", Options: []string{"A", "B", "C"}, CorrectIndex: 1}
	idx := func(i int) *int { return &i }

	cases := []struct {
		name   string
		subs   []Submission
		points []int
		bonus  []bool
	}{
		{
			name:   "solo correct answer is also the fastest",
			subs:   []Submission{{ParticipantID: "p", Answer: idx(1), Elapsed: 2000 * time.Millisecond}},
			points: []int{15},
			bonus:  []bool{true},
		},
		{
			name: "faster correct answer takes the bonus",
			subs: []Submission{
				{ParticipantID: "p1", Answer: idx(1), Elapsed: 1500 * time.Millisecond},
				{ParticipantID: "p2", Answer: idx(1), Elapsed: 900 * time.Millisecond},
			},
			points: []int{10, 15},
			bonus:  []bool{false, true},
		},
		{
			name: "tie goes to the earlier participant",
			subs: []Submission{
				{ParticipantID: "p1", Answer: idx(1), Elapsed: time.Second},
				{ParticipantID: "p2", Answer: idx(1), Elapsed: time.Second},
			},
			points: []int{15, 10},
			bonus:  []bool{true, false},
		},
		{
			name: "fast wrong answers never earn the bonus",
			subs: []Submission{
				{ParticipantID: "p1", Answer: idx(0), Elapsed: 100 * time.Millisecond},
				{ParticipantID: "p2", Answer: idx(1), Elapsed: 5 * time.Second},
			},
			points: []int{0, 15},
			bonus:  []bool{false, true},
		},
		{
			name: "nobody correct means no bonus",
			subs: []Submission{
				{ParticipantID: "p1", Answer: idx(2), Elapsed: time.Second},
				{ParticipantID: "p2", Answer: nil},
			},
			points: []int{0, 0},
			bonus:  []bool{false, false},
		},
		{
			name: "out of range answers are wrong",
			subs: []Submission{
				{ParticipantID: "p1", Answer: idx(-1), Elapsed: time.Millisecond},
				{ParticipantID: "p2", Answer: idx(99), Elapsed: time.Millisecond},
			},
			points: []int{0, 0},
			bonus:  []bool{false, false},
		},
		{
			name: "no submissions",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcomes := ScoreQuestion(q, tc.subs)
			if len(outcomes) != len(tc.subs) {
				t.Fatalf("expected %d outcomes, got %d", len(tc.subs), len(outcomes))
			}
			bonuses := 0
			for i, o := range outcomes {
				if o.ParticipantID != tc.subs[i].ParticipantID {
					t.Fatalf("outcome %d for %s, want %s", i, o.ParticipantID, tc.subs[i].ParticipantID)
				}
				if o.Points != tc.points[i] {
					t.Fatalf("%s: expected %d points, got %d", o.ParticipantID, tc.points[i], o.Points)
				}
				if o.Bonus != tc.bonus[i] {
					t.Fatalf("%s: expected bonus=%v, got %v", o.ParticipantID, tc.bonus[i], o.Bonus)
				}
				if o.Points < 0 {
					t.Fatalf("%s: negative points", o.ParticipantID)
				}
				if o.Bonus {
					bonuses++
				}
			}
			if bonuses > 1 {
				t.Fatalf("expected at most one bonus, got %d", bonuses)
			}
		})
	}
}
