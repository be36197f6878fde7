package sm2

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/conorfennell/notemaker/internal/domain"
)

const tolerance = 1e-9

func card(reps int, interval, ease float64) domain.Flashcard {
	return domain.Flashcard{
		ID:          "c1",
		Question:    "Q",
		Answer:      "A",
		Repetitions: reps,
		Interval:    interval,
		EaseFactor:  ease,
	}
}

func TestScheduleFreshCard(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	testCases := []struct {
		name             string
		grade            Grade
		start            domain.Flashcard
		expectedInterval float64
		expectedReps     int
	}{
		{"Hard ignores stored interval", Hard, card(0, 7, 1.9), 1, 0},
		{"Okay ignores stored interval", Okay, card(0, 7, 1.9), 1, 1},
		{"Easy ignores stored interval", Easy, card(0, 7, 1.9), 2, 1},
		{"Hard on new card", Hard, card(0, 1, 2.5), 1, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Schedule(tc.start, tc.grade, now)
			if err != nil {
				t.Fatalf("Schedule() returned an unexpected error: %v", err)
			}
			if got.Interval != tc.expectedInterval {
				t.Errorf("Expected interval %.2f, got %.2f", tc.expectedInterval, got.Interval)
			}
			if got.Repetitions != tc.expectedReps {
				t.Errorf("Expected repetitions %d, got %d", tc.expectedReps, got.Repetitions)
			}
			if got.EaseFactor != tc.start.EaseFactor {
				t.Errorf("Expected ease factor to stay %.2f on a fresh card, got %.2f", tc.start.EaseFactor, got.EaseFactor)
			}
		})
	}
}

func TestScheduleEasyTwice(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := domain.NewFlashcard("Go", "Q", "A", now)

	c, err := Schedule(c, Easy, now)
	if err != nil {
		t.Fatal(err)
	}
	if c.Repetitions != 1 || c.Interval != 2 || c.EaseFactor != 2.5 {
		t.Fatalf("After first Easy expected reps=1 interval=2 ease=2.5, got reps=%d interval=%.2f ease=%.2f",
			c.Repetitions, c.Interval, c.EaseFactor)
	}

	c, err = Schedule(c, Easy, now)
	if err != nil {
		t.Fatal(err)
	}
	if c.Repetitions != 2 || math.Abs(c.Interval-5.0) > tolerance || c.EaseFactor != 2.5 {
		t.Fatalf("After second Easy expected reps=2 interval=5 ease=2.5, got reps=%d interval=%.4f ease=%.4f",
			c.Repetitions, c.Interval, c.EaseFactor)
	}
}

func TestScheduleHardAfterStreak(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err := Schedule(card(3, 10, 2.0), Hard, now)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got.EaseFactor-1.8) > tolerance {
		t.Errorf("Expected ease factor 1.8, got %.4f", got.EaseFactor)
	}
	if math.Abs(got.Interval-18.0) > tolerance {
		t.Errorf("Expected interval 18.0, got %.4f", got.Interval)
	}
	if got.Repetitions != 0 {
		t.Errorf("Expected repetitions reset to 0, got %d", got.Repetitions)
	}
}

func TestScheduleOkayKeepsEase(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err := Schedule(card(2, 4, 1.7), Okay, now)
	if err != nil {
		t.Fatal(err)
	}
	if got.EaseFactor != 1.7 {
		t.Errorf("Expected ease factor unchanged at 1.7, got %.4f", got.EaseFactor)
	}
	if math.Abs(got.Interval-6.8) > tolerance {
		t.Errorf("Expected interval 6.8, got %.4f", got.Interval)
	}
	if got.Repetitions != 3 {
		t.Errorf("Expected repetitions 3, got %d", got.Repetitions)
	}
}

func TestScheduleNextReview(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err := Schedule(card(1, 3, 2.5), Okay, now)
	if err != nil {
		t.Fatal(err)
	}
	// 3 * 2.5 = 7.5 days
	expected := now.Add(7*24*time.Hour + 12*time.Hour)
	if diff := got.NextReview.Sub(expected); diff < -time.Second || diff > time.Second {
		t.Errorf("Expected next review %v, got %v", expected, got.NextReview)
	}
}

func TestScheduleInvariants(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sequences := [][]Grade{
		{Hard, Hard, Hard, Hard, Hard, Hard, Hard, Hard, Hard, Hard},
		{Easy, Easy, Easy, Easy, Easy, Easy, Easy, Easy},
		{Okay, Hard, Okay, Hard, Okay, Okay, Hard, Hard},
		{Easy, Okay, Hard, Easy, Hard, Okay, Easy, Hard, Hard, Okay, Easy},
		{Okay, Okay, Okay, Hard, Okay, Hard, Okay, Hard, Okay, Hard, Okay, Hard},
	}

	for i, seq := range sequences {
		c := domain.NewFlashcard("t", "q", "a", now)
		at := now
		for step, g := range seq {
			prevReps := c.Repetitions
			next, err := Schedule(c, g, at)
			if err != nil {
				t.Fatalf("sequence %d step %d: unexpected error: %v", i, step, err)
			}
			if next.EaseFactor < domain.MinEaseFactor || next.EaseFactor > domain.MaxEaseFactor {
				t.Errorf("sequence %d step %d: ease factor %.4f out of range", i, step, next.EaseFactor)
			}
			if next.Interval < 1 {
				t.Errorf("sequence %d step %d: interval %.4f below 1", i, step, next.Interval)
			}
			switch g {
			case Hard:
				if next.Repetitions != 0 {
					t.Errorf("sequence %d step %d: Hard left repetitions at %d", i, step, next.Repetitions)
				}
			default:
				if next.Repetitions != prevReps+1 {
					t.Errorf("sequence %d step %d: expected repetitions %d, got %d", i, step, prevReps+1, next.Repetitions)
				}
			}
			want := domain.AddDays(at, next.Interval)
			if !next.NextReview.Equal(want) {
				t.Errorf("sequence %d step %d: expected next review %v, got %v", i, step, want, next.NextReview)
			}
			c = next
			at = next.NextReview
		}
	}
}

func TestScheduleClampsOutOfRangeState(t *testing.T) {
	now := time.Now()
	got, err := Schedule(card(2, 0.5, 3.0), Okay, now)
	if err != nil {
		t.Fatal(err)
	}
	if got.EaseFactor != domain.MaxEaseFactor {
		t.Errorf("Expected ease factor clamped to %.1f, got %.4f", domain.MaxEaseFactor, got.EaseFactor)
	}
	if got.Interval < 1 {
		t.Errorf("Expected interval floored at 1, got %.4f", got.Interval)
	}
}

func TestScheduleInvalidGrade(t *testing.T) {
	start := card(2, 5, 2.2)
	got, err := Schedule(start, Grade(9), time.Now())
	if !errors.Is(err, ErrInvalidGrade) {
		t.Fatalf("Expected ErrInvalidGrade, got %v", err)
	}
	if got.ID != "" {
		t.Errorf("Expected zero card on error, got %+v", got)
	}
	if start.Repetitions != 2 || start.Interval != 5 || start.EaseFactor != 2.2 {
		t.Errorf("Input card was modified: %+v", start)
	}
}

func TestParseGrade(t *testing.T) {
	testCases := []struct {
		input    string
		expected Grade
		wantErr  bool
	}{
		{"hard", Hard, false},
		{"Okay", Okay, false},
		{"ok", Okay, false},
		{" EASY ", Easy, false},
		{"3", Easy, false},
		{"skip", 0, true},
		{"", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			g, err := ParseGrade(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidGrade) {
					t.Fatalf("Expected ErrInvalidGrade, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseGrade() returned an unexpected error: %v", err)
			}
			if g != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, g)
			}
		})
	}
}

func TestScheduleLongEasyStreak(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := domain.NewFlashcard("t", "q", "a", now)

	for step := 0; step < 40; step++ {
		next, err := Schedule(c, Easy, now)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", step, err)
		}
		if next.Interval > domain.MaxInterval {
			t.Fatalf("step %d: interval %.1f above the cap", step, next.Interval)
		}
		if !next.NextReview.After(now) || next.IsDue(now) {
			t.Fatalf("step %d: next review %v is not after grading time %v", step, next.NextReview, now)
		}
		want := now.Add(time.Duration(next.Interval * float64(domain.Day)))
		if !next.NextReview.Equal(want) {
			t.Fatalf("step %d: expected next review %v, got %v", step, want, next.NextReview)
		}
		c = next
	}
	if c.Interval != domain.MaxInterval {
		t.Errorf("Expected the interval to settle at %.0f days, got %.1f", domain.MaxInterval, c.Interval)
	}
}
