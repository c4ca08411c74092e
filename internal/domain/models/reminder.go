package models

import "time"

// ReminderKind identifies which milestone a reminder refers to.
type ReminderKind string

const (
	ReminderLockdown ReminderKind = "lockdown"
	ReminderHatch    ReminderKind = "hatch"
)

// Notification channels understood by the notification sink.
const (
	ChannelAlerts    = "alerts"
	ChannelReminders = "reminders"
)

// Reminder is a milestone detected for an active batch on a given day.
type Reminder struct {
	BatchID int64        `json:"batch_id"`
	Kind    ReminderKind `json:"kind"`
	Date    time.Time    `json:"date"`
}

// Notification is what the sink delivers; the core only decides its content.
type Notification struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Channel string `json:"channel"`
}
