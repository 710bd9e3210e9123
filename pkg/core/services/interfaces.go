package services

import (
	"context"

	"github.com/waterwatch/lifedrop/pkg/clients/llmclient"
	"github.com/waterwatch/lifedrop/pkg/core/model"
)

// TextGenerator produces a single completion
type TextGenerator interface {
	Complete(ctx context.Context, req llmclient.Completion) (string, error)
}

// ReportNotifier is told about reports that ask to alert the community
type ReportNotifier interface {
	NotifyWaterReport(ctx context.Context, report model.WaterReport) error
}

func storeError(op string, err error) error {
	return &model.StoreError{Op: op, Err: err}
}
