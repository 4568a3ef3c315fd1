package domain

import "testing"

func TestSessionStatsRecord(t *testing.T) {
	var s SessionStats
	results := []bool{true, true, false, true, true, true, false}

	for i, correct := range results {
		s.Record(correct)

		if s.TotalAttempted != s.CorrectAnswers+s.IncorrectAnswers {
			t.Fatalf("after %d: total %d != correct %d + incorrect %d",
				i, s.TotalAttempted, s.CorrectAnswers, s.IncorrectAnswers)
		}
		if s.BestStreak < s.CurrentStreak {
			t.Fatalf("after %d: best streak %d < current %d", i, s.BestStreak, s.CurrentStreak)
		}
		if !correct && s.CurrentStreak != 0 {
			t.Fatalf("after %d: incorrect answer left streak at %d", i, s.CurrentStreak)
		}
	}

	want := SessionStats{TotalAttempted: 7, CorrectAnswers: 5, IncorrectAnswers: 2, CurrentStreak: 0, BestStreak: 3}
	if s != want {
		t.Errorf("stats = %+v, want %+v", s, want)
	}
}

func TestSessionStatsAccuracy(t *testing.T) {
	var s SessionStats
	if s.Accuracy() != 0 {
		t.Errorf("Accuracy() of empty stats = %v, want 0", s.Accuracy())
	}

	s.Record(true)
	s.Record(false)
	if s.Accuracy() != 0.5 {
		t.Errorf("Accuracy() = %v, want 0.5", s.Accuracy())
	}
}
