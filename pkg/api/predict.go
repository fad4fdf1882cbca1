package api

import (
	"context"

	"github.com/grovetools/fleetview/pkg/models"
)

// DefaultPredictionPeriod is the forecast horizon in days.
const DefaultPredictionPeriod = 7

type predictionItem struct {
	ProductID         string `json:"product_id"`
	ProductName       string `json:"product_name"`
	CurrentStock      *int   `json:"current_stock"`
	DaysUntilStockout *int   `json:"days_until_stockout"`
	RecommendedOrder  *int   `json:"recommended_order_quantity"`
}

type predictionResponse struct {
	Predictions []predictionItem `json:"predictions"`
	Confidence  float64          `json:"confidence"`
}

// Predict requests restock predictions. The client only forwards the request;
// forecasting happens on the backend.
func (c *Client) Predict(ctx context.Context, req models.PredictionRequest) ([]models.Prediction, error) {
	if req.PeriodDays <= 0 {
		req.PeriodDays = DefaultPredictionPeriod
	}
	if req.Categories == nil {
		req.Categories = []string{}
	}

	var resp predictionResponse
	if err := c.postJSON(ctx, "/api/ai/predict", req, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		pred := models.Prediction{
			ProductID:         p.ProductID,
			ProductName:       p.ProductName,
			DaysUntilStockout: models.NoStockout,
		}
		if p.CurrentStock != nil && *p.CurrentStock > 0 {
			pred.CurrentStock = *p.CurrentStock
		}
		if p.DaysUntilStockout != nil && *p.DaysUntilStockout >= 0 {
			pred.DaysUntilStockout = *p.DaysUntilStockout
		}
		if p.RecommendedOrder != nil && *p.RecommendedOrder > 0 {
			pred.RecommendedOrder = *p.RecommendedOrder
		}
		out = append(out, pred)
	}
	c.logger.WithField("count", len(out)).WithField("confidence", resp.Confidence).Debug("Received predictions")
	return out, nil
}
