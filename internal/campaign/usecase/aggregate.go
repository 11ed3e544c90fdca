package usecase

import (
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
)

const (
	chartSpendRevenueRows = 15
	chartCPATrendRows     = 20
)

// Aggregate reduces the dataset to totals and global ratios. It has no side
// effects and must be re-run after every dataset change.
func Aggregate(rows []entity.Row) entity.Stats {
	if len(rows) == 0 {
		return entity.Stats{}
	}

	var stats entity.Stats
	stats.Rows = len(rows)
	for i := range rows {
		stats.Impressions += rows[i].Impressions
		stats.Clicks += rows[i].Clicks
		stats.Conversions += rows[i].Conversions
		stats.Spend += rows[i].Spend
		stats.Revenue += rows[i].Revenue
	}

	if stats.Impressions != 0 {
		stats.CTR = stats.Clicks / stats.Impressions * 100
	}
	stats.CPA = stats.Spend / floorOne(stats.Conversions)

	return stats
}

// BuildCharts extracts the dashboard series from the head of the dataset.
func BuildCharts(rows []entity.Row) entity.Charts {
	charts := entity.Charts{
		SpendRevenue: make([]entity.ChartPoint, 0, min(len(rows), chartSpendRevenueRows)),
		CPATrend:     make([]entity.ChartPoint, 0, min(len(rows), chartCPATrendRows)),
	}

	for i := range rows {
		if i >= chartSpendRevenueRows && i >= chartCPATrendRows {
			break
		}

		point := entity.ChartPoint{
			CampaignName: rows[i].CampaignName,
			Spend:        rows[i].Spend,
			Revenue:      rows[i].Revenue,
			CPA:          rows[i].CPA,
		}
		if i < chartSpendRevenueRows {
			charts.SpendRevenue = append(charts.SpendRevenue, point)
		}
		if i < chartCPATrendRows {
			charts.CPATrend = append(charts.CPATrend, point)
		}
	}

	return charts
}
