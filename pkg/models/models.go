package models

import "time"

// ScheduleRequest is the wire shape for creating or replacing a schedule.
// Days use long or short English names; time is "HH:MM" or "HH:MM:SS".
type ScheduleRequest struct {
	Title    string   `json:"title"`
	Time     string   `json:"time"`
	Days     []string `json:"days,omitempty"`
	IsActive bool     `json:"isActive"`
	Type     string   `json:"type"`
	Date     string   `json:"date,omitempty"`
}

type ToggleRequest struct {
	Active bool `json:"active"`
}

type DeviceTokenRequest struct {
	Token string `json:"token"`
}

type ConversationRequest struct {
	Title string `json:"title"`
}

type ChatRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

// ArmReport is one weekday's arm outcome inside a SyncReport.
type ArmReport struct {
	Day   string    `json:"day"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}

// SyncReport is the aggregate outcome of one synchronization pass, as
// returned alongside the persisted record. Partial failure is visible
// per-day rather than collapsing into a single error.
type SyncReport struct {
	Armed     []ArmReport `json:"armed"`
	Cancelled int         `json:"cancelled"`
	Errors    []string    `json:"errors,omitempty"`
}
