package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/waterwatch/lifedrop/pkg/core/model"
)

// TrendPoint is one (zip code, week) bucket with its report count
type TrendPoint struct {
	Zipcode string `json:"zipcode"`
	Week    string `json:"week"`
	Count   int    `json:"count"`
}

// ZipCount is the total number of reports for one zip code
type ZipCount struct {
	Zipcode string `json:"zipcode"`
	Count   int    `json:"count"`
}

// WeekLabel formats t's ISO week as YYYY-Www
func WeekLabel(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// AggregateTrends counts reports per zip code and ISO week. Every report lands in exactly one bucket.
func AggregateTrends(reports []model.WaterReport) map[model.TrendKey]int {
	trends := make(map[model.TrendKey]int)
	for _, r := range reports {
		trends[model.TrendKey{Zipcode: r.Zipcode, Week: WeekLabel(r.Timestamp)}]++
	}
	return trends
}

// SortedTrends flattens trends ordered by zip code then week
func SortedTrends(trends map[model.TrendKey]int) []TrendPoint {
	points := make([]TrendPoint, 0, len(trends))
	for key, count := range trends {
		points = append(points, TrendPoint{Zipcode: key.Zipcode, Week: key.Week, Count: count})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Zipcode != points[j].Zipcode {
			return points[i].Zipcode < points[j].Zipcode
		}
		return points[i].Week < points[j].Week
	})
	return points
}

// TopZipCodes returns up to n zip codes by total report count, highest first, ties by zip code.
// n <= 0 returns all of them.
func TopZipCodes(trends map[model.TrendKey]int, n int) []ZipCount {
	totals := make(map[string]int)
	for key, count := range trends {
		totals[key.Zipcode] += count
	}

	counts := make([]ZipCount, 0, len(totals))
	for zip, total := range totals {
		counts = append(counts, ZipCount{Zipcode: zip, Count: total})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Zipcode < counts[j].Zipcode
	})

	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
