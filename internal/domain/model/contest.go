package model

import (
	"time"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
	DifficultyExpert Difficulty = "Expert"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert:
		return true
	}
	return false
}

type ContestStatus string

const (
	StatusActive   ContestStatus = "active"
	StatusUpcoming ContestStatus = "upcoming"
	StatusPast     ContestStatus = "past"
)

func ParseContestStatus(s string) (ContestStatus, bool) {
	switch ContestStatus(s) {
	case StatusActive, StatusUpcoming, StatusPast:
		return ContestStatus(s), true
	case "":
		return StatusActive, true
	}
	return "", false
}

type Contest struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	Difficulty  Difficulty `json:"difficulty"`
	Category    string     `json:"category"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// StatusAt derives the lifecycle status. Both window bounds are inclusive for active.
func (c *Contest) StatusAt(now time.Time) ContestStatus {
	switch {
	case c.StartDate.After(now):
		return StatusUpcoming
	case c.EndDate.Before(now):
		return StatusPast
	default:
		return StatusActive
	}
}

type ContestWithCount struct {
	Contest
	Participants int           `json:"participants"`
	Status       ContestStatus `json:"status"`
}

type ContestFilter struct {
	Status     ContestStatus
	Search     string
	Difficulty Difficulty
	Category   string
}
