package domain

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Status is the binary congestion label derived from a final score.
type Status string

const (
	StatusSmooth Status = "smooth"
	StatusHeavy  Status = "heavy"
)

// heavyThreshold is the final-score boundary: scores at or above it are heavy.
const heavyThreshold = 0.5

// IncidentReport is a caller-submitted description of road conditions at a
// location. Immutable once created.
type IncidentReport struct {
	Location    string    `json:"location"`
	StreetName  string    `json:"street_name,omitempty"`
	Description string    `json:"description"`
	SubmittedAt time.Time `json:"submitted_at,omitzero"`
}

// Classifier scores normalized incident text. Implementations may block for
// the duration of model inference.
type Classifier interface {
	Classify(ctx context.Context, text string) (float64, error)
}

// HistoricalIndex returns the mean congestion score over prior records whose
// normalized text exactly matches the given text. The index is read-only at
// request time and safe for concurrent lookups.
type HistoricalIndex interface {
	MeanScore(text string) (float64, bool)
}

// PredictionScore is the outcome of resolving one incident description.
// Degraded is set when the classifier capability was unavailable and the
// neutral default was substituted.
type PredictionScore struct {
	ClassifierScore float64  `json:"classifier_score"`
	HistoricalScore *float64 `json:"historical_score,omitempty"`
	FinalScore      float64  `json:"final_score"`
	Status          Status   `json:"status"`
	Degraded        bool     `json:"degraded,omitempty"`
}

// PredictionRecord is the canonical persisted form of one prediction.
// Records are append-only; the core never updates or deletes them.
type PredictionRecord struct {
	Location    string    `json:"location" db:"location"`
	StreetName  string    `json:"street_name,omitempty" db:"street_name"`
	Description string    `json:"description" db:"description"`
	Status      Status    `json:"status" db:"status"`
	Timestamp   time.Time `json:"timestamp" db:"created_at"`
}

// ResolvePrediction normalizes a description, scores it with the classifier,
// and blends the score with the historical mean for identical normalized text.
//
// A nil or failing classifier degrades to a neutral default of 0 and marks
// the result Degraded instead of failing the request. An absent historical
// match leaves the classifier score as the final score; a present match
// averages the two. Status follows from the final score.
func ResolvePrediction(ctx context.Context, description string, classifier Classifier, history HistoricalIndex, logger *slog.Logger) PredictionScore {
	normalized := Normalize(description)

	var score PredictionScore
	switch {
	case classifier == nil:
		score.Degraded = true
	default:
		c, err := classifier.Classify(ctx, normalized)
		if err != nil {
			logger.Warn("classifier unavailable, substituting neutral default",
				"error", err,
			)
			score.Degraded = true
		} else {
			score.ClassifierScore = c
		}
	}

	score.FinalScore = score.ClassifierScore
	if history != nil {
		if h, ok := history.MeanScore(normalized); ok {
			score.HistoricalScore = &h
			score.FinalScore = (score.ClassifierScore + h) / 2
		}
	}

	score.Status = StatusFromScore(score.FinalScore)
	return score
}

// StatusFromScore maps a final score to the binary congestion label.
func StatusFromScore(final float64) Status {
	if final >= heavyThreshold {
		return StatusHeavy
	}
	return StatusSmooth
}

// NewPredictionRecord builds the canonical persisted record for a scored
// incident. Location fields and the description are trimmed and folded to
// lowercase so historical queries match regardless of submission casing.
// The timestamp falls back to the current clock time when the report carries
// none.
func NewPredictionRecord(report IncidentReport, status Status) PredictionRecord {
	ts := report.SubmittedAt
	if ts.IsZero() {
		ts = clock.Now().UTC()
	}
	return PredictionRecord{
		Location:    strings.ToLower(strings.TrimSpace(report.Location)),
		StreetName:  strings.ToLower(strings.TrimSpace(report.StreetName)),
		Description: strings.ToLower(strings.TrimSpace(report.Description)),
		Status:      status,
		Timestamp:   ts,
	}
}
