package sm2

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/conorfennell/notemaker/internal/domain"
)

// Grade is the user's self-rated recall of a card.
type Grade int

const (
	Hard Grade = 1
	Okay Grade = 2
	Easy Grade = 3
)

// ErrInvalidGrade is returned for grades other than Hard, Okay and Easy.
var ErrInvalidGrade = errors.New("invalid grade")

const (
	hardPenalty = 0.2
	easyBonus   = 0.1

	// Fixed restart intervals, in days, for cards with no repetitions.
	restartInterval     = 1.0
	easyRestartInterval = 2.0
)

func (g Grade) String() string {
	switch g {
	case Hard:
		return "hard"
	case Okay:
		return "okay"
	case Easy:
		return "easy"
	default:
		return fmt.Sprintf("grade(%d)", int(g))
	}
}

// Valid reports whether g is one of the known grades.
func (g Grade) Valid() bool {
	return g == Hard || g == Okay || g == Easy
}

// ParseGrade accepts a grade name (case-insensitive) or its number.
func ParseGrade(s string) (Grade, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hard", "1":
		return Hard, nil
	case "okay", "ok", "2":
		return Okay, nil
	case "easy", "3":
		return Easy, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGrade, s)
}

// Schedule returns the card's state after being graded at now.
// The input card is never modified; an invalid grade returns an error
// and the zero Flashcard.
func Schedule(card domain.Flashcard, grade Grade, now time.Time) (domain.Flashcard, error) {
	if !grade.Valid() {
		return domain.Flashcard{}, fmt.Errorf("%w: %d", ErrInvalidGrade, int(grade))
	}

	ease := card.EaseFactor
	interval := card.Interval
	reps := card.Repetitions

	switch grade {
	case Hard:
		if reps == 0 {
			interval = restartInterval
		} else {
			ease = math.Max(domain.MinEaseFactor, ease-hardPenalty)
			interval = math.Max(1, interval*ease)
		}
		reps = 0
	case Okay:
		if reps == 0 {
			interval = restartInterval
		} else {
			interval = interval * ease
		}
		reps++
	case Easy:
		if reps == 0 {
			interval = easyRestartInterval
		} else {
			ease = math.Min(domain.MaxEaseFactor, ease+easyBonus)
			interval = interval * ease
		}
		reps++
	}

	// Keep the invariants for states loaded from outside the scheduler.
	card.EaseFactor = clamp(ease, domain.MinEaseFactor, domain.MaxEaseFactor)
	card.Interval = clamp(interval, 1, domain.MaxInterval)
	card.Repetitions = reps
	card.NextReview = domain.AddDays(now, card.Interval)
	return card, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
