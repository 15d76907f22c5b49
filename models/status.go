package models

import (
	"encoding/json"
	"fmt"
)

type GameStatus string

const (
	GameStatusPlaying   GameStatus = "playing"
	GameStatusBacklog   GameStatus = "backlog"
	GameStatusCompleted GameStatus = "completed"
	GameStatusAbandoned GameStatus = "abandoned"
)

func (s GameStatus) Valid() bool {
	switch s {
	case GameStatusPlaying, GameStatusBacklog, GameStatusCompleted, GameStatusAbandoned:
		return true
	}
	return false
}

func (s *GameStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("game status must be a string: %w", err)
	}
	status := GameStatus(raw)
	if !status.Valid() {
		return fmt.Errorf("invalid game status %q (want playing, backlog, completed or abandoned)", raw)
	}
	*s = status
	return nil
}

type QuestStatus string

const (
	QuestStatusNotStarted QuestStatus = "not_started"
	QuestStatusInProgress QuestStatus = "in_progress"
	QuestStatusCompleted  QuestStatus = "completed"
)

func (s QuestStatus) Valid() bool {
	switch s {
	case QuestStatusNotStarted, QuestStatusInProgress, QuestStatusCompleted:
		return true
	}
	return false
}

func (s *QuestStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("quest status must be a string: %w", err)
	}
	status := QuestStatus(raw)
	if !status.Valid() {
		return fmt.Errorf("invalid quest status %q (want not_started, in_progress or completed)", raw)
	}
	*s = status
	return nil
}

type HintType string

const (
	HintTypeGeneral  HintType = "general"
	HintTypeSpecific HintType = "specific"
	HintTypeSolution HintType = "solution"
)

func (t HintType) Valid() bool {
	switch t {
	case HintTypeGeneral, HintTypeSpecific, HintTypeSolution:
		return true
	}
	return false
}

func (t *HintType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("hint type must be a string: %w", err)
	}
	hintType := HintType(raw)
	if !hintType.Valid() {
		return fmt.Errorf("invalid hint type %q (want general, specific or solution)", raw)
	}
	*t = hintType
	return nil
}
