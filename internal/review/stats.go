package review

import (
	"context"
	"time"
)

// Stats summarizes the card collection for read-only views.
type Stats struct {
	Total          int            `json:"total"`
	Due            int            `json:"due"`
	ByTopic        map[string]int `json:"by_topic"`
	MeanEase       float64        `json:"mean_ease"`
	MeanInterval   float64        `json:"mean_interval"`
	NextReviewDate *time.Time     `json:"next_review,omitempty"`
}

// Stats computes collection statistics at now.
func (s *Service) Stats(ctx context.Context, now time.Time) (Stats, error) {
	all, err := s.cards.All(ctx)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{Total: len(all), ByTopic: make(map[string]int)}
	var easeSum, intervalSum float64
	for _, c := range all {
		st.ByTopic[c.Topic]++
		easeSum += c.EaseFactor
		intervalSum += c.Interval
		if c.IsDue(now) {
			st.Due++
		} else if st.NextReviewDate == nil || c.NextReview.Before(*st.NextReviewDate) {
			next := c.NextReview
			st.NextReviewDate = &next
		}
	}
	if st.Total > 0 {
		st.MeanEase = easeSum / float64(st.Total)
		st.MeanInterval = intervalSum / float64(st.Total)
	}
	return st, nil
}
