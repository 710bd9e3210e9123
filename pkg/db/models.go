package db

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/waterwatch/lifedrop/pkg/core/model"
)

// TimeLayout is the format timestamps are stored in
const TimeLayout = time.RFC3339

// Alert represents a database alert record
type Alert struct {
	ID             string   `ssql_header:"id" ssql_type:"uuid"`
	Timestamp      string   `ssql_header:"timestamp" ssql_type:"datetime"`
	Type           string   `ssql_header:"type" ssql_type:"text"`
	Message        string   `ssql_header:"message" ssql_type:"text"`
	LocationName   string   `ssql_header:"location_name" ssql_type:"text"`
	Address        string   `ssql_header:"address" ssql_type:"text"`
	Hours          string   `ssql_header:"hours" ssql_type:"text"`
	Lat            *float64 `ssql_header:"lat" ssql_type:"float"`
	Lng            *float64 `ssql_header:"lng" ssql_type:"float"`
	ExpirationTime string   `ssql_header:"expiration_time" ssql_type:"datetime"`
	Upvotes        int      `ssql_header:"upvotes" ssql_type:"int"`
	Downvotes      int      `ssql_header:"downvotes" ssql_type:"int"`
}

// AlertComment is one comment on an alert, kept in its own table so that a
// long thread never has to fit inside a single cell
type AlertComment struct {
	AlertID  string `ssql_header:"alert_id" ssql_type:"uuid"`
	Position int    `ssql_header:"position" ssql_type:"int"`
	Text     string `ssql_header:"text" ssql_type:"text"`
}

// WaterReport represents a database water report record
type WaterReport struct {
	Timestamp   string `ssql_header:"timestamp" ssql_type:"datetime"`
	Address     string `ssql_header:"address" ssql_type:"text"`
	Zipcode     string `ssql_header:"zipcode" ssql_type:"text"`
	Description string `ssql_header:"description" ssql_type:"text"`
	Concerns    string `ssql_header:"concerns" ssql_type:"text"`
	Type        string `ssql_header:"type" ssql_type:"text"`
	Used        bool   `ssql_header:"used" ssql_type:"bool"`
	Symptoms    string `ssql_header:"symptoms" ssql_type:"text"`
	Alert       bool   `ssql_header:"alert" ssql_type:"bool"`
	PhotoPath   string `ssql_header:"photo_path" ssql_type:"text"`
}

// FormatTime renders t the way every backend stores it
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// AlertFromModel converts a domain alert into its row and comment rows
func AlertFromModel(a model.Alert) (Alert, []AlertComment) {
	row := Alert{
		ID:             a.ID,
		Timestamp:      FormatTime(a.Timestamp),
		Type:           string(a.Type),
		Message:        a.Message,
		LocationName:   a.LocationName,
		Address:        a.Address,
		Hours:          a.Hours,
		ExpirationTime: FormatTime(a.ExpirationTime),
		Upvotes:        a.Upvotes,
		Downvotes:      a.Downvotes,
	}
	if a.Coordinates != nil {
		lat, lng := a.Coordinates.Lat, a.Coordinates.Lng
		row.Lat = &lat
		row.Lng = &lng
	}

	comments := make([]AlertComment, len(a.Comments))
	for i, text := range a.Comments {
		comments[i] = AlertComment{AlertID: a.ID, Position: i, Text: text}
	}

	return row, comments
}

// ToModel converts the row back into a domain alert carrying comments
func (r Alert) ToModel(comments []string) (model.Alert, error) {
	ts, err := time.Parse(TimeLayout, r.Timestamp)
	if err != nil {
		return model.Alert{}, fmt.Errorf("alert %s: invalid timestamp %q: %w", r.ID, r.Timestamp, err)
	}
	exp, err := time.Parse(TimeLayout, r.ExpirationTime)
	if err != nil {
		return model.Alert{}, fmt.Errorf("alert %s: invalid expiration_time %q: %w", r.ID, r.ExpirationTime, err)
	}
	if comments == nil {
		comments = []string{}
	}

	alert := model.Alert{
		ID:             r.ID,
		Timestamp:      ts,
		Type:           model.ResourceType(r.Type),
		Message:        r.Message,
		LocationName:   r.LocationName,
		Address:        r.Address,
		Hours:          r.Hours,
		ExpirationTime: exp,
		Upvotes:        r.Upvotes,
		Downvotes:      r.Downvotes,
		Comments:       comments,
	}
	if r.Lat != nil && r.Lng != nil {
		alert.Coordinates = &model.Coordinates{Lat: *r.Lat, Lng: *r.Lng}
	}

	return alert, nil
}

// GroupComments collects comment rows per alert id in position order
func GroupComments(rows []AlertComment) map[string][]string {
	sorted := append([]AlertComment(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	grouped := make(map[string][]string)
	for _, c := range sorted {
		grouped[c.AlertID] = append(grouped[c.AlertID], c.Text)
	}
	return grouped
}

// WaterReportFromModel converts a domain report into its row form
func WaterReportFromModel(r model.WaterReport) WaterReport {
	return WaterReport{
		Timestamp:   FormatTime(r.Timestamp),
		Address:     r.Address,
		Zipcode:     r.Zipcode,
		Description: r.Description,
		Concerns:    JoinConcerns(r.Concerns),
		Type:        string(r.Type),
		Used:        r.Used,
		Symptoms:    r.Symptoms,
		Alert:       r.Alert,
		PhotoPath:   r.PhotoPath,
	}
}

// ToModel converts the row back into a domain report
func (r WaterReport) ToModel() (model.WaterReport, error) {
	ts, err := time.Parse(TimeLayout, r.Timestamp)
	if err != nil {
		return model.WaterReport{}, fmt.Errorf("report at %s: invalid timestamp %q: %w", r.Address, r.Timestamp, err)
	}

	return model.WaterReport{
		Timestamp:   ts,
		Address:     r.Address,
		Zipcode:     r.Zipcode,
		Description: r.Description,
		Concerns:    SplitConcerns(r.Concerns),
		Type:        model.SourceType(r.Type),
		Used:        r.Used,
		Symptoms:    r.Symptoms,
		Alert:       r.Alert,
		PhotoPath:   r.PhotoPath,
	}, nil
}

// JoinConcerns renders concerns as a single storage column
func JoinConcerns(concerns []model.Concern) string {
	parts := make([]string, len(concerns))
	for i, c := range concerns {
		parts[i] = string(c)
	}
	return strings.Join(parts, model.ConcernSeparator)
}

// SplitConcerns parses a stored concerns column
func SplitConcerns(s string) []model.Concern {
	if strings.TrimSpace(s) == "" {
		return []model.Concern{}
	}
	parts := strings.Split(s, ",")
	concerns := make([]model.Concern, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			concerns = append(concerns, model.Concern(p))
		}
	}
	return concerns
}
