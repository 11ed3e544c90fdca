package entity

// Stats is the aggregate snapshot of the whole dataset.
type Stats struct {
	Rows        int
	Impressions float64
	Clicks      float64
	Conversions float64
	Spend       float64
	Revenue     float64

	// CTR is a percentage (clicks per 100 impressions).
	CTR float64
	CPA float64
}

// ChartPoint is one campaign entry of a dashboard chart series.
type ChartPoint struct {
	CampaignName string
	Spend        float64
	Revenue      float64
	CPA          float64
}

// Charts holds the series rendered on the dashboard.
type Charts struct {
	SpendRevenue []ChartPoint
	CPATrend     []ChartPoint
}
