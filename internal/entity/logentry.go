package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Action is the kind of mutation an audit entry records.
type Action int

const (
	ActionCreated   Action = 1
	ActionUpdated   Action = 2
	ActionCompleted Action = 3
	ActionCancelled Action = 4
	ActionDeleted   Action = 5
	ActionRemoved   Action = 6
)

// Text is the past-tense verb shown in activity feeds.
func (a Action) Text() string {
	switch a {
	case ActionCreated:
		return "created"
	case ActionUpdated:
		return "updated"
	case ActionCompleted:
		return "completed"
	case ActionCancelled:
		return "canceled"
	case ActionDeleted:
		return "deleted"
	case ActionRemoved:
		return "removed"
	default:
		return "changed"
	}
}

// Target names the entity kind an audit entry refers to.
type Target string

const (
	TargetCustomer  Target = "customer"
	TargetSupplier  Target = "supplier"
	TargetProduct   Target = "product"
	TargetBackorder Target = "backorder"
)

// Valid reports whether t is a known entity kind.
func (t Target) Valid() bool {
	switch t {
	case TargetCustomer, TargetSupplier, TargetProduct, TargetBackorder:
		return true
	}
	return false
}

// LogEntry is an append-only audit record.
type LogEntry struct {
	bun.BaseModel `bun:"table:log,alias:l"`

	ID      int64     `bun:"id,pk,autoincrement"`
	UserID  int64     `bun:"user_id"`
	Action  Action    `bun:"log_action"`
	Table   Target    `bun:"log_table"`
	Details string    `bun:"log_details"`
	Date    time.Time `bun:"log_date"`
}

// LogEntryView adds the actor's display name.
type LogEntryView struct {
	LogEntry `bun:",extend"`

	UserName string `bun:"user_name"`
}
