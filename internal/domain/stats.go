package domain

// SessionStats accumulates grading results for the active session.
//
// Record is the only mutator, which keeps the counters consistent:
// TotalAttempted always equals CorrectAnswers + IncorrectAnswers and
// BestStreak never drops below CurrentStreak.
type SessionStats struct {
	TotalAttempted   int `json:"total_attempted"`
	CorrectAnswers   int `json:"correct_answers"`
	IncorrectAnswers int `json:"incorrect_answers"`
	CurrentStreak    int `json:"current_streak"`
	BestStreak       int `json:"best_streak"`
}

// Record applies one grading result.
func (s *SessionStats) Record(correct bool) {
	s.TotalAttempted++
	if correct {
		s.CorrectAnswers++
		s.CurrentStreak++
		if s.CurrentStreak > s.BestStreak {
			s.BestStreak = s.CurrentStreak
		}
		return
	}
	s.IncorrectAnswers++
	s.CurrentStreak = 0
}

// Accuracy returns the share of correct answers in [0, 1].
func (s SessionStats) Accuracy() float64 {
	if s.TotalAttempted == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalAttempted)
}
