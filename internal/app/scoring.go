package app

import (
	"time"

	"live-trivia-service/internal/domain"
)

const (
	// CorrectPoints is awarded for every correct answer.
	CorrectPoints = 10
	// FastestBonus is awarded to the single fastest correct answer of a question.
	FastestBonus = 5
)

// Submission is one participant's input to scoring. Answer is nil when the
// participant did not answer before the window closed.
type Submission struct {
	ParticipantID string
	Answer        *int
	Elapsed       time.Duration
}

// Outcome is the scoring result for one submission.
type Outcome struct {
	ParticipantID string
	Correct       bool
	Points        int
	Bonus         bool
}

// ScoreQuestion turns the submissions for a question into score deltas.
// Submissions must be given in join order: when two correct answers share the
// smallest elapsed time, the earlier one in the slice gets the bonus.
func ScoreQuestion(q domain.Question, subs []Submission) []Outcome {
	outcomes := make([]Outcome, len(subs))
	fastest := -1
	for i, sub := range subs {
		correct := isCorrect(q, sub.Answer)
		outcomes[i] = Outcome{ParticipantID: sub.ParticipantID, Correct: correct}
		if !correct {
			continue
		}
		outcomes[i].Points = CorrectPoints
		if fastest == -1 || sub.Elapsed < subs[fastest].Elapsed {
			fastest = i
		}
	}
	if fastest >= 0 {
		outcomes[fastest].Points += FastestBonus
		outcomes[fastest].Bonus = true
	}
	return outcomes
}

func isCorrect(q domain.Question, answer *int) bool {
	if answer == nil {
		return false
	}
	if *answer < 0 || *answer >= len(q.Options) {
		return false
	}
	return *answer == q.CorrectIndex
}
