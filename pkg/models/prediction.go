package models

// NoStockout marks a prediction with no foreseeable stockout.
const NoStockout = -1

// Prediction is one restock recommendation returned by the prediction service.
type Prediction struct {
	ProductID         string `json:"product_id"`
	ProductName       string `json:"product_name"`
	CurrentStock      int    `json:"current_stock"`
	DaysUntilStockout int    `json:"days_until_stockout"`
	RecommendedOrder  int    `json:"recommended_order"`
}

// Label is the display name of the product, falling back to its ID.
func (p Prediction) Label() string {
	if p.ProductName != "" {
		return p.ProductName
	}
	return p.ProductID
}

// HasStockout reports whether a stockout is forecast.
func (p Prediction) HasStockout() bool {
	return p.DaysUntilStockout != NoStockout
}

// PredictionRequest selects the forecast horizon and product categories.
type PredictionRequest struct {
	PeriodDays int      `json:"period_days"`
	Categories []string `json:"categories"`
}
