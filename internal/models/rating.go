package models

import (
	"math"
	"time"
)

const (
	MinScore = 1
	MaxScore = 5
)

// Rating is one customer's score for one recipe.
type Rating struct {
	ID        string    `json:"id"`
	RecipeID  string    `json:"recipe"`
	UserID    string    `json:"user_id"`
	User      string    `json:"user"` // author's username
	Score     int       `json:"score"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnerID returns the customer who wrote the rating.
func (r Rating) OwnerID() string { return r.UserID }

// RatingInput carries client-supplied rating fields. Nil pointers mean
// "not provided".
type RatingInput struct {
	RecipeID *string `json:"recipe"`
	Score    *int    `json:"score"`
	Comment  *string `json:"comment"`
	// CommentSet distinguishes an explicit null comment from an absent one.
	CommentSet bool `json:"-"`
}

// AverageRating returns the mean of scores rounded to two decimals, or nil
// when there are no scores.
func AverageRating(scores []int) *float64 {
	var total int64
	for _, s := range scores {
		total += int64(s)
	}
	return AverageFromTotals(total, int64(len(scores)))
}

// AverageFromTotals is AverageRating for a precomputed sum and count.
func AverageFromTotals(total, count int64) *float64 {
	if count <= 0 {
		return nil
	}
	avg := math.Round(float64(total)/float64(count)*100) / 100
	return &avg
}
