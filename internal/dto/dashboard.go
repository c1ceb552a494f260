package dto

import (
	"time"

	"github.com/Additional-Code/backorder/internal/service/audit"
	"github.com/Additional-Code/backorder/internal/service/dashboard"
)

// DashboardResponse is the landing page payload.
type DashboardResponse struct {
	Counts     CountsResponse      `json:"counts"`
	Charts     []SeriesResponse    `json:"charts"`
	Activity   []ActivityDay       `json:"activity"`
	Backorders []BackorderResponse `json:"backorders"`
}

// CountsResponse holds active row counts.
type CountsResponse struct {
	Backorders int `json:"backorders"`
	Products   int `json:"products"`
	Customers  int `json:"customers"`
	Suppliers  int `json:"suppliers"`
}

// SeriesResponse is one year of monthly counts.
type SeriesResponse struct {
	Year   int   `json:"year"`
	Months []int `json:"months"`
}

// ActivityDay groups the audit entries of one day.
type ActivityDay struct {
	Date    string          `json:"date"`
	Entries []ActivityEntry `json:"entries"`
}

// ActivityEntry is one audit entry in the feed.
type ActivityEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FirstName string    `json:"first_name"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Details   string    `json:"details"`
	Date      time.Time `json:"date"`
}

// FromActivity maps the grouped audit feed.
func FromActivity(days []audit.FeedDay) []ActivityDay {
	out := make([]ActivityDay, 0, len(days))
	for _, d := range days {
		day := ActivityDay{Date: d.Date.Format(time.DateOnly), Entries: make([]ActivityEntry, 0, len(d.Entries))}
		for _, e := range d.Entries {
			day.Entries = append(day.Entries, ActivityEntry{
				ID:        e.ID,
				UserID:    e.UserID,
				FirstName: e.FirstName,
				Action:    e.ActionText,
				Target:    string(e.Target),
				Details:   e.Details,
				Date:      e.Date,
			})
		}
		out = append(out, day)
	}
	return out
}

// FromOverview maps the dashboard aggregate.
func FromOverview(o *dashboard.Overview) DashboardResponse {
	out := DashboardResponse{
		Counts: CountsResponse{
			Backorders: o.Counts.Backorders,
			Products:   o.Counts.Products,
			Customers:  o.Counts.Customers,
			Suppliers:  o.Counts.Suppliers,
		},
		Charts:     make([]SeriesResponse, 0, len(o.Charts)),
		Activity:   FromActivity(o.Activity),
		Backorders: FromBackorderViews(o.Backorders),
	}
	for _, s := range o.Charts {
		out.Charts = append(out.Charts, SeriesResponse{Year: s.Year, Months: s.Months})
	}
	return out
}
