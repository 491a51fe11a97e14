package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"affiliate-ingest/internal/domain"
)

func TestRenderSubAffiliateCSV(t *testing.T) {
	name := "Alice"
	rows := []*domain.SubAffiliateRow{
		{Code: "SUB-001", Name: &name, Clicks: 4, Conversions: 2, Revenue: 100, EPC: 25, CTR: 0.5, CVR: 0.5},
		{Code: "SUB-002", Clicks: 1},
	}

	out := RenderSubAffiliateCSV(rows)
	assert.Equal(t,
		"sub_code,sub_name,clicks,conversions,revenue,epc,ctr,cvr\n"+
			"SUB-001,Alice,4,2,100.00,25.0000,0.5000,0.5000\n"+
			"SUB-002,,1,0,0.00,0.0000,0.0000,0.0000\n",
		out)
}

func TestRenderDailyCSV(t *testing.T) {
	points := []*domain.DailyPoint{
		{Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), Clicks: 2, Conversions: 1, Revenue: 25.5},
	}

	out := RenderDailyCSV(points)
	assert.Equal(t, "date,clicks,conversions,revenue\n2024-03-10,2,1,25.50\n", out)
}
