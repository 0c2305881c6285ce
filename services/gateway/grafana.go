package gateway

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Ashwin12159/Control-Plane/models"
)

const (
	grafanaDatasourceUID = "defe15basslj4e"
	grafanaPaneID        = "85v"
	callLogFilename      = "/home/csiq/.pm2/logs/CallController-out.log"
	grafanaRangeBuffer   = 5 * time.Minute
)

type grafanaDatasource struct {
	Type string `json:"type"`
	UID  string `json:"uid"`
}

type grafanaQuery struct {
	RefID      string            `json:"refId"`
	Expr       string            `json:"expr"`
	QueryType  string            `json:"queryType"`
	Datasource grafanaDatasource `json:"datasource"`
	EditorMode string            `json:"editorMode"`
	Direction  string            `json:"direction"`
}

type grafanaRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type grafanaPane struct {
	Datasource string         `json:"datasource"`
	Queries    []grafanaQuery `json:"queries"`
	Range      grafanaRange   `json:"range"`
}

// ExploreURL builds a Loki explore link for a call's controller logs.
// The range is padded by five minutes on both sides.
// It returns "" when the region has no monitoring configured.
func ExploreURL(mon *models.Monitoring, callID string, start, end time.Time) string {
	if mon == nil || mon.BaseURL == "" || len(mon.Hosts) == 0 {
		return ""
	}

	hostExpr := fmt.Sprintf(`host="%s"`, mon.Hosts[0])
	if len(mon.Hosts) > 1 {
		hostExpr = fmt.Sprintf(`host=~"%s"`, strings.Join(mon.Hosts, "|"))
	}

	panes := map[string]grafanaPane{
		grafanaPaneID: {
			Datasource: grafanaDatasourceUID,
			Queries: []grafanaQuery{{
				RefID:      "A",
				Expr:       fmt.Sprintf("{%s, filename=\"%s\"} |= `%s`", hostExpr, callLogFilename, callID),
				QueryType:  "range",
				Datasource: grafanaDatasource{Type: "loki", UID: grafanaDatasourceUID},
				EditorMode: "builder",
				Direction:  "forward",
			}},
			Range: grafanaRange{
				From: strconv.FormatInt(start.Add(-grafanaRangeBuffer).UnixMilli(), 10),
				To:   strconv.FormatInt(end.Add(grafanaRangeBuffer).UnixMilli(), 10),
			},
		},
	}

	data, err := json.Marshal(panes)
	if err != nil {
		return ""
	}

	return strings.TrimSuffix(mon.BaseURL, "/") + "/explore" +
		"?schemaVersion=1" +
		"&panes=" + url.QueryEscape(string(data)) +
		"&orgId=1"
}

// attachExploreURL sets grafanaUrl on call details. Missing or unparseable
// call times fall back to now.
func attachExploreURL(region models.Region, resp *GetCallDetailsResponse, now time.Time) {
	if resp == nil || resp.CallDetails == nil {
		return
	}
	d := resp.CallDetails
	d.GrafanaURL = ExploreURL(region.Monitoring, d.CallID, parseCallTime(d.CallTime, now), parseCallTime(d.CallEndTime, now))
}

func parseCallTime(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return fallback
	}
	return t
}
