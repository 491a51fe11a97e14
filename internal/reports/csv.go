package reports

import (
	"fmt"
	"strings"

	"affiliate-ingest/internal/domain"
)

// RenderSubAffiliateCSV renders the per-sub-affiliate breakdown as a
// CSV string.
func RenderSubAffiliateCSV(rows []*domain.SubAffiliateRow) string {
	var sb strings.Builder

	sb.WriteString("sub_code,sub_name,clicks,conversions,revenue,epc,ctr,cvr\n")

	for _, r := range rows {
		name := ""
		if r.Name != nil {
			name = *r.Name
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.2f,%.4f,%.4f,%.4f\n",
			r.Code,
			name,
			r.Clicks,
			r.Conversions,
			r.Revenue,
			r.EPC,
			r.CTR,
			r.CVR,
		))
	}

	return sb.String()
}

// RenderDailyCSV renders the daily activity series as a CSV string.
func RenderDailyCSV(points []*domain.DailyPoint) string {
	var sb strings.Builder

	sb.WriteString("date,clicks,conversions,revenue\n")

	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%.2f\n",
			p.Date.Format("2006-01-02"),
			p.Clicks,
			p.Conversions,
			p.Revenue,
		))
	}

	return sb.String()
}
