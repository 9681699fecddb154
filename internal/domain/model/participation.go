package model

import (
	"time"
)

type Participation struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ContestID     string    `json:"contestId"`
	RollNumber    *string   `json:"rollNumber,omitempty"`
	Section       *string   `json:"section,omitempty"`
	Semester      *string   `json:"semester,omitempty"`
	ContactNumber *string   `json:"contactNumber,omitempty"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// RegistrationDetails are the optional student fields collected by the registration form.
type RegistrationDetails struct {
	RollNumber    string `json:"rollNumber"`
	Section       string `json:"section"`
	Semester      string `json:"semester"`
	ContactNumber string `json:"contactNumber"`
}

type ParticipantUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type RegistrationWithUser struct {
	Participation
	User ParticipantUser `json:"user"`
}

// RegisteredContest is a profile row: a contest the user joined and when.
type RegisteredContest struct {
	Contest
	Status   ContestStatus `json:"status"`
	JoinedAt time.Time     `json:"joinedAt"`
}
