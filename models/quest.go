package models

import (
	"time"
)

type Quest struct {
	ID             uint        `json:"id" gorm:"primaryKey"`
	GameID         uint        `json:"game_id" gorm:"not null;index"`
	Name           string      `json:"name" gorm:"size:255;not null"`
	Description    string      `json:"description"`
	Status         QuestStatus `json:"status" gorm:"type:varchar(20);not null;default:'not_started'"`
	Difficulty     int         `json:"difficulty" gorm:"not null;default:5"` // 1-10
	HintsUsed      int         `json:"hints_used" gorm:"not null;default:0"`
	CompletionTime *int        `json:"completion_time"` // seconds
	Notes          string      `json:"notes"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	// Relationships
	Game  *Game  `json:"-"`
	Hints []Hint `json:"-" gorm:"foreignKey:QuestID;constraint:OnDelete:CASCADE"`
}
