package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/db"
)

// LoadReports reads every stored water report
func LoadReports(ctx context.Context, store db.WaterReportStore) ([]model.WaterReport, error) {
	reports, err := store.GetWaterReports(ctx)
	if err != nil {
		return nil, storeError("read water reports", err)
	}
	return reports, nil
}

// QueryReports filters reports by exact zip code (empty matches all) and sorts them by timestamp.
// Reports with equal timestamps keep their stored order.
func QueryReports(reports []model.WaterReport, zipFilter string, order model.ReportSortOrder) ([]model.WaterReport, error) {
	if order == "" {
		order = model.NewestFirst
	}
	if order != model.NewestFirst && order != model.OldestFirst {
		return nil, &model.ValidationError{
			Fields: []string{"sort"},
			Reason: fmt.Sprintf("sort must be %q or %q, got %q", model.NewestFirst, model.OldestFirst, order),
		}
	}

	result := make([]model.WaterReport, 0, len(reports))
	for _, r := range reports {
		if zipFilter == "" || r.Zipcode == zipFilter {
			result = append(result, r)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if order == model.OldestFirst {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	return result, nil
}
