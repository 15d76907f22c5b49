package models

import (
	"time"
)

type Hint struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	QuestID           uint      `json:"quest_id" gorm:"not null;index"`
	HintText          string    `json:"hint_text" gorm:"not null"`
	HintType          HintType  `json:"hint_type" gorm:"type:varchar(20);not null;default:'general'"`
	FrequencyShown    int       `json:"frequency_shown" gorm:"not null;default:1"`
	HelpfulnessRating *int      `json:"helpfulness_rating"` // 1-5
	CreatedAt         time.Time `json:"created_at"`

	// Relationships
	Quest *Quest `json:"-"`
}
