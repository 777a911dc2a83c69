package model

import "time"

// User owns planner records. Records and reminders are delivered to the
// Telegram chat identified by TelegramID.
type User struct {
	ID             uint  `gorm:"primaryKey"`
	TelegramID     int64 `gorm:"uniqueIndex"`
	FirstName      string
	LastName       string
	Username       string
	RemindersMuted bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
