package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContest_StatusAt(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	algoCup := &Contest{
		Title:     "Algo Cup",
		StartDate: t0,
		EndDate:   t0.Add(2 * time.Hour),
	}

	tests := []struct {
		name string
		now  time.Time
		want ContestStatus
	}{
		{"before start", t0.Add(-time.Minute), StatusUpcoming},
		{"exactly at start", t0, StatusActive},
		{"one hour in", t0.Add(time.Hour), StatusActive},
		{"exactly at end", t0.Add(2 * time.Hour), StatusActive},
		{"three hours in", t0.Add(3 * time.Hour), StatusPast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, algoCup.StatusAt(tt.now))
		})
	}
}

func TestContest_StatusAtIsExclusive(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &Contest{StartDate: t0, EndDate: t0.Add(time.Hour)}

	for offset := -2 * time.Hour; offset <= 2*time.Hour; offset += 7 * time.Minute {
		now := t0.Add(offset)
		s := c.StatusAt(now)

		active := !c.StartDate.After(now) && !c.EndDate.Before(now)
		upcoming := c.StartDate.After(now)
		past := c.EndDate.Before(now)

		assert.Equal(t, active, s == StatusActive, now)
		assert.Equal(t, upcoming, s == StatusUpcoming, now)
		assert.Equal(t, past, s == StatusPast, now)
	}
}

func TestParseContestStatus(t *testing.T) {
	s, ok := ParseContestStatus("")
	assert.True(t, ok)
	assert.Equal(t, StatusActive, s)

	s, ok = ParseContestStatus("past")
	assert.True(t, ok)
	assert.Equal(t, StatusPast, s)

	_, ok = ParseContestStatus("archived")
	assert.False(t, ok)
}

func TestDifficulty_Valid(t *testing.T) {
	for _, d := range []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert} {
		assert.True(t, d.Valid(), d)
	}
	assert.False(t, Difficulty("easy").Valid())
	assert.False(t, Difficulty("").Valid())
}

func TestUser_Can(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	student := &User{Role: RoleUser}
	var anonymous *User

	assert.True(t, admin.Can(CapManageContests))
	assert.True(t, admin.Can(CapExportRegistrations))
	assert.True(t, student.Can(CapRegisterForContests))
	assert.False(t, student.Can(CapManageContests))
	assert.False(t, student.Can(CapViewRegistrations))
	assert.False(t, anonymous.Can(CapRegisterForContests))
	assert.False(t, (&User{Role: "ROOT"}).Can(CapManageUsers))
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Minute)))
}
