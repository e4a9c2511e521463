package order

import (
	"Go-Order-Intake/domain"
	"Go-Order-Intake/entities"
	"Go-Order-Intake/internal/logger"
	"Go-Order-Intake/pkg/compress"
	"Go-Order-Intake/pkg/record"
	"encoding/json"

	"go.uber.org/zap"
)

func toFormResponse(f Form) domain.FormResponse {
	res := domain.FormResponse{
		ID:         f.ID.String(),
		Manager:    f.Manager,
		Orders:     make([]domain.OrderItemResponse, 0, len(f.Items)),
		Submitting: f.Submitting,
	}
	if f.Result != nil {
		res.Result = &domain.ResultBanner{Type: f.Result.Type, Message: f.Result.Message}
	}

	for i, it := range f.Items {
		item := domain.OrderItemResponse{
			ID:           it.ID,
			Number:       i + 1,
			ImageStatus:  it.Image.Status(),
			AutoData:     nonNil(it.Auto()),
			ManualStatus: it.Manual.Status(),
			ManualText:   it.ManualText(),
			ManualData:   nonNil(it.ManualRecord()),
			Row:          it.Row(),
		}
		if file, ok := it.File(); ok {
			item.ImageName = file.Name
			item.ImagePreview = compress.DataURL(file)
		}
		if failed, ok := it.Image.(AnalysisFailed); ok {
			item.Error = failed.Reason
		}
		res.Orders = append(res.Orders, item)
	}
	return res
}

func nonNil(r record.Record) map[string]string {
	if r == nil {
		return map[string]string{}
	}
	return r
}

func toSubmissionResponse(b *entities.SubmissionBatch) domain.SubmissionResponse {
	res := domain.SubmissionResponse{
		ID:         b.ID.String(),
		Manager:    b.Manager,
		OrderCount: b.OrderCount,
		Message:    b.Message,
		Orders:     make([]domain.SubmittedOrderResponse, 0, len(b.Orders)),
		CreatedAt:  b.CreatedAt,
	}
	for _, o := range b.Orders {
		var row []string
		if err := json.Unmarshal([]byte(o.Row), &row); err != nil {
			logger.Log.Warn("stored row is not a JSON array", zap.String("order", o.ID.String()), zap.Error(err))
		}
		res.Orders = append(res.Orders, domain.SubmittedOrderResponse{
			Position:    o.Position,
			OrderNumber: o.OrderNumber,
			Row:         row,
			ImageURL:    o.ImageURL,
		})
	}
	return res
}
