package apiclient

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"jabbusiness-client-go/internal/domain/models"
)

const (
	pathReports         = "/jabbusiness/reports"
	pathReportsGenerate = "/jabbusiness/reports/generate"
	pathReportsByToken  = "/jabbusiness/reports/by-token/"
)

type ReportsClient struct {
	c *Client
}

// List returns a page of report history; page and limit default to 1 and 20.
func (r *ReportsClient) List(ctx context.Context, params models.ListReportsParams) (*models.ReportsListResponse, error) {
	var out models.ReportsListResponse
	if err := r.c.Get(ctx, pathReports, params.WithDefaults(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ReportsClient) Generate(ctx context.Context, payload models.GenerateReportPayload) (*models.GenerateReportResponse, error) {
	var out models.GenerateReportResponse
	if err := r.c.Do(ctx, http.MethodPost, pathReportsGenerate, payload, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ReportsClient) Delete(ctx context.Context, reportID string) (*models.DeleteReportResponse, error) {
	var out models.DeleteReportResponse
	if err := r.c.Do(ctx, http.MethodDelete, reportPath(reportID), nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByToken fetches a shared report. The endpoint needs no session.
func (r *ReportsClient) GetByToken(ctx context.Context, shareToken string) (*models.ReportByTokenResponse, error) {
	var out models.ReportByTokenResponse
	if err := r.c.Do(ctx, http.MethodGet, pathReportsByToken+url.PathEscape(shareToken), nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadURL builds the absolute PDF link. It performs no I/O.
func (r *ReportsClient) DownloadURL(reportID, shareToken string) string {
	u := r.c.BaseURL() + reportPath(reportID) + "/download"
	if shareToken != "" {
		u += "?token=" + url.QueryEscape(shareToken)
	}
	return u
}

// Download streams the PDF into w and returns the number of bytes written.
func (r *ReportsClient) Download(ctx context.Context, reportID, shareToken string, w io.Writer) (int64, error) {
	var q url.Values
	if shareToken != "" {
		q = url.Values{"token": {shareToken}}
	}
	return r.c.Stream(ctx, reportPath(reportID)+"/download", q, w)
}

func reportPath(id string) string {
	return pathReports + "/" + url.PathEscape(id)
}
