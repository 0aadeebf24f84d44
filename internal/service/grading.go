package service

import (
	"github.com/google/uuid"
	"github.com/stemsi/exstem-exam-engine/internal/model"
)

// ScorePercent returns correct/total as a whole percentage, halves rounded up.
// An empty exam scores 0.
func ScorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*200 + total) / (2 * total)
}

// ElapsedMinutes rounds a duration in seconds to the nearest minute.
func ElapsedMinutes(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return (seconds + 30) / 60
}

// NormalizeAnswers keeps answers keyed by a question of the session, with the
// key in canonical UUID form and the value a valid option label. Anything else
// is dropped and grades as unanswered.
func NormalizeAnswers(ids []uuid.UUID, raw map[string]string) map[string]string {
	inSession := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		inSession[id] = struct{}{}
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		id, err := uuid.Parse(k)
		if err != nil {
			continue
		}
		if _, ok := inSession[id]; !ok {
			continue
		}
		label, ok := model.ParseOptionLabel(v)
		if !ok {
			continue
		}
		out[id.String()] = string(label)
	}
	return out
}

// GradeAnswers grades normalized answers against the session's questions in
// session order. A question missing from questions grades as incorrect.
func GradeAnswers(ids []uuid.UUID, questions []model.Question, answers map[string]string) ([]model.QuestionResult, int) {
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	breakdown := make([]model.QuestionResult, 0, len(ids))
	correct := 0
	for _, id := range ids {
		submitted := model.OptionLabel(answers[id.String()])
		r := model.QuestionResult{QuestionID: id, SubmittedAnswer: submitted}
		if q, ok := byID[id]; ok {
			r.QuestionText = q.QuestionText
			r.CorrectAnswer = q.CorrectOption
			r.Difficulty = q.Difficulty
			r.Category = q.Category
			r.Explanation = q.Explanation
			r.IsCorrect = submitted != "" && submitted == q.CorrectOption
		}
		if r.IsCorrect {
			correct++
		}
		breakdown = append(breakdown, r)
	}
	return breakdown, correct
}
