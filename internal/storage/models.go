package storage

import (
	"time"
)

// DailyUptime is one row per UTC calendar day.
type DailyUptime struct {
	Date      string    `gorm:"primaryKey;size:10" json:"date"`
	Checks    int64     `gorm:"not null;default:0" json:"checks"`
	Failures  int64     `gorm:"not null;default:0" json:"failures"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProbeRecord is one probe result kept for latency history.
type ProbeRecord struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	ServiceID    string    `gorm:"index;not null" json:"service_id"`
	Status       string    `gorm:"not null" json:"status"`
	StatusCode   int       `json:"status_code"`
	LatencyMs    *int64    `json:"latency_ms"`
	ErrorMessage string    `json:"error_message"`
}

func (r *ProbeRecord) Success() bool {
	return r.Status == "operational"
}
