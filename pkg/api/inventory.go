package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/grovetools/fleetview/errors"
	"github.com/grovetools/fleetview/pkg/models"
)

// ImportResult summarises a CSV import.
type ImportResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// ImportCSV uploads a semicolon-separated inventory file.
func (c *Client) ImportCSV(ctx context.Context, name string, r io.Reader) (*ImportResult, error) {
	const path = "/api/inventory/import"
	if filepath.Ext(name) != ".csv" {
		return nil, errors.InvalidInput("import file must have a .csv extension").WithDetail("file", name)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish upload body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var result ImportResult
	if err := decode(path, data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HistoryQuery filters the historical scan report. Zero values are omitted.
type HistoryQuery struct {
	From   time.Time
	To     time.Time
	Zone   string
	Status string
	Page   int
	Limit  int
}

// DefaultHistoryLimit is the page size used when none is given.
const DefaultHistoryLimit = 20

func (q HistoryQuery) values() url.Values {
	v := url.Values{}
	if !q.From.IsZero() {
		v.Set("from_date", q.From.Format("2006-01-02T15:04:05"))
	}
	if !q.To.IsZero() {
		v.Set("to_date", q.To.Format("2006-01-02T15:04:05"))
	}
	if q.Zone != "" {
		v.Set("zone", q.Zone)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(limit))
	return v
}

// Pagination describes the position of a HistoryPage.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// HistoryPage is one page of the historical report.
type HistoryPage struct {
	Total      int                   `json:"total"`
	Items      []models.HistoryEntry `json:"items"`
	Pagination Pagination            `json:"pagination"`
}

type historyItem struct {
	ID         int    `json:"id"`
	Date       string `json:"date"`
	RobotID    string `json:"robot_id"`
	Zone       string `json:"zone"`
	SKU        string `json:"sku"`
	Product    string `json:"product"`
	Expected   int    `json:"expected"`
	Actual     int    `json:"actual"`
	Difference int    `json:"difference"`
	Status     string `json:"status"`
}

type historyResponse struct {
	Total      int           `json:"total"`
	Items      []historyItem `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// History queries the historical scan report.
func (c *Client) History(ctx context.Context, q HistoryQuery) (*HistoryPage, error) {
	const path = "/api/inventory/history"
	if q.Page < 0 {
		return nil, errors.InvalidInput("page must not be negative")
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, errors.InvalidInput("to date is before from date")
	}

	var resp historyResponse
	if err := c.getJSON(ctx, path, q.values(), &resp); err != nil {
		return nil, err
	}

	page := &HistoryPage{
		Total:      resp.Total,
		Items:      make([]models.HistoryEntry, 0, len(resp.Items)),
		Pagination: resp.Pagination,
	}
	for _, it := range resp.Items {
		date, err := ParseTimestamp(it.Date)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBackend, fmt.Sprintf("history item %d has a bad date", it.ID))
		}
		page.Items = append(page.Items, models.HistoryEntry{
			ID:          it.ID,
			Date:        date,
			RobotID:     it.RobotID,
			Zone:        it.Zone,
			ProductID:   it.SKU,
			ProductName: it.Product,
			Expected:    it.Expected,
			Actual:      it.Actual,
			Difference:  it.Difference,
			Status:      it.Status,
		})
	}
	return page, nil
}
