package dto

import (
	statsrepo "github.com/Additional-Code/backorder/internal/repository/statistics"
	"github.com/Additional-Code/backorder/internal/service/statistics"
)

// StatisticsResponse exposes the aggregates of one scope.
type StatisticsResponse struct {
	Totals         statsrepo.Totals        `json:"totals"`
	ByStatus       []statsrepo.StatusCount `json:"by_status"`
	ByMonth        []statsrepo.MonthCount  `json:"by_month"`
	ActiveProducts *int                    `json:"active_products,omitempty"`
}

// FromStatistics maps computed statistics, keeping empty groupings as empty arrays.
func FromStatistics(s *statistics.Statistics) StatisticsResponse {
	out := StatisticsResponse{
		Totals:         s.Totals,
		ByStatus:       s.ByStatus,
		ByMonth:        s.ByMonth,
		ActiveProducts: s.ActiveProducts,
	}
	if out.ByStatus == nil {
		out.ByStatus = []statsrepo.StatusCount{}
	}
	if out.ByMonth == nil {
		out.ByMonth = []statsrepo.MonthCount{}
	}
	return out
}
