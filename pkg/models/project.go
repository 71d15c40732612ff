package models

import "time"

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	return s == ProjectStatusActive || s == ProjectStatusOnHold || s == ProjectStatusCompleted
}

type Project struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Address    string        `json:"address"`
	CustomerID *string       `json:"customer_id"`
	Status     ProjectStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}
