package model

import (
	"fmt"
	"time"
)

// ResourceType is the kind of community resource an alert advertises
type ResourceType string

const (
	ResourceWaterStation ResourceType = "Water Station"
	ResourceFreeMeal     ResourceType = "Free Meal"
	ResourceShower       ResourceType = "Shower"
	ResourceHealthClinic ResourceType = "Health Clinic"
)

// ResourceTypes lists every accepted resource type in display order
var ResourceTypes = []ResourceType{
	ResourceWaterStation,
	ResourceFreeMeal,
	ResourceShower,
	ResourceHealthClinic,
}

// ParseResourceType returns the ResourceType matching s exactly
func ParseResourceType(s string) (ResourceType, error) {
	for _, rt := range ResourceTypes {
		if string(rt) == s {
			return rt, nil
		}
	}
	return "", fmt.Errorf("unknown resource type %q", s)
}

// TTLChoices are the durations (in minutes) offered to users; any positive value is accepted
var TTLChoices = []int{1, 5, 10, 15, 30, 60, 120}

// Coordinates is a geocoded position
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Alert is a time-limited community notice about an available resource
type Alert struct {
	ID             string       `json:"id"`
	Timestamp      time.Time    `json:"timestamp"`
	Type           ResourceType `json:"type"`
	Message        string       `json:"message"`
	LocationName   string       `json:"location_name"`
	Address        string       `json:"address"`
	Hours          string       `json:"hours"`
	Coordinates    *Coordinates `json:"coordinates,omitempty"`
	ExpirationTime time.Time    `json:"expiration_time"`
	Upvotes        int          `json:"upvotes"`
	Downvotes      int          `json:"downvotes"`
	Comments       []string     `json:"comments"`
}

// IsLive reports whether the alert has not yet expired at now
func (a Alert) IsLive(now time.Time) bool {
	return now.Before(a.ExpirationTime)
}

// TimeRemaining returns how long the alert stays live, or zero once expired
func (a Alert) TimeRemaining(now time.Time) time.Duration {
	if !a.IsLive(now) {
		return 0
	}
	return a.ExpirationTime.Sub(now)
}

// VoteDirection is either up or down
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// Concern is an observed issue attached to a water report
type Concern string

const (
	ConcernDiscoloration      Concern = "Discoloration"
	ConcernFoulSmell          Concern = "Foul smell"
	ConcernFoam               Concern = "Foam on surface"
	ConcernBugs               Concern = "Bugs or larvae"
	ConcernNearIndustrialArea Concern = "Near industrial area"
	ConcernTrashNearby        Concern = "Trash nearby"
	ConcernOther              Concern = "Other"
)

// Concerns lists every accepted concern tag
var Concerns = []Concern{
	ConcernDiscoloration,
	ConcernFoulSmell,
	ConcernFoam,
	ConcernBugs,
	ConcernNearIndustrialArea,
	ConcernTrashNearby,
	ConcernOther,
}

// IsConcern reports whether s is a known concern tag
func IsConcern(s string) bool {
	for _, c := range Concerns {
		if string(c) == s {
			return true
		}
	}
	return false
}

// SourceType is the kind of water source a report describes
type SourceType string

const (
	SourceFaucet        SourceType = "Faucet"
	SourceRiverStream   SourceType = "River/Stream"
	SourcePipeLeak      SourceType = "Pipe Leak"
	SourceFountain      SourceType = "Fountain"
	SourceRainwaterPool SourceType = "Rainwater Pool"
	SourceOther         SourceType = "Other"
)

// SourceTypes lists every accepted water source type
var SourceTypes = []SourceType{
	SourceFaucet,
	SourceRiverStream,
	SourcePipeLeak,
	SourceFountain,
	SourceRainwaterPool,
	SourceOther,
}

// IsSourceType reports whether s is a known source type
func IsSourceType(s string) bool {
	for _, st := range SourceTypes {
		if string(st) == s {
			return true
		}
	}
	return false
}

// SymptomsNotProvided is stored when a report leaves symptoms blank
const SymptomsNotProvided = "N/A"

// ConcernSeparator joins concern tags for storage
const ConcernSeparator = ", "

// WaterReport is a persistent user submission about a water source
type WaterReport struct {
	Timestamp   time.Time  `json:"timestamp"`
	Address     string     `json:"address"`
	Zipcode     string     `json:"zipcode"`
	Description string     `json:"description"`
	Concerns    []Concern  `json:"concerns"`
	Type        SourceType `json:"type"`
	Used        bool       `json:"used"`
	Symptoms    string     `json:"symptoms"`
	Alert       bool       `json:"alert"`
	PhotoPath   string     `json:"photo_path,omitempty"`
}

// ReportSortOrder selects the timestamp ordering for report queries
type ReportSortOrder string

const (
	NewestFirst ReportSortOrder = "newest_first"
	OldestFirst ReportSortOrder = "oldest_first"
)

// TrendKey buckets reports by zip code and ISO week (e.g. "2025-W07")
type TrendKey struct {
	Zipcode string
	Week    string
}
