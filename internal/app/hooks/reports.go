package hooks

import (
	"context"

	"jabbusiness-client-go/internal/domain/eventbus"
	"jabbusiness-client-go/internal/domain/models"
	platformerrors "jabbusiness-client-go/internal/platform/errors"
	"jabbusiness-client-go/internal/querycache"
)

type (
	GenerateReportMutation = querycache.Mutation[models.GenerateReportPayload, *models.GenerateReportResponse]
	DeleteReportMutation   = querycache.Mutation[string, *models.DeleteReportResponse]
)

// Reports observes one page of the report history.
func (h *Hooks) Reports(params models.ListReportsParams) *querycache.Observer[*models.ReportsListResponse] {
	params = params.WithDefaults()
	return querycache.Observe(h.cache,
		querycache.NewKey(FamilyReports, params),
		func(ctx context.Context) (*models.ReportsListResponse, error) {
			return h.api.Reports.List(ctx, params)
		},
		querycache.QueryOptions{StaleTime: reportsStaleTime})
}

// ReportByToken observes a shared report. An empty token keeps it idle.
func (h *Hooks) ReportByToken(token string) *querycache.Observer[*models.ReportByTokenResponse] {
	return querycache.Observe(h.cache,
		querycache.NewKey(FamilyReportByToken, token),
		func(ctx context.Context) (*models.ReportByTokenResponse, error) {
			return h.api.Reports.GetByToken(ctx, token)
		},
		querycache.QueryOptions{Disabled: token == ""})
}

// GenerateReport creates a report. Success refreshes both the report list
// and analytics, since generation changes the counters.
func (h *Hooks) GenerateReport() *GenerateReportMutation {
	return querycache.NewMutation(h.cache, h.api.Reports.Generate,
		querycache.MutationOptions[models.GenerateReportPayload, *models.GenerateReportResponse]{
			Invalidates: []string{FamilyReports, FamilyAnalytics},
			OnSuccess: func(models.GenerateReportPayload, *models.GenerateReportResponse) {
				h.notify(eventbus.TopicNotifySuccess, "Report generated successfully!", "")
			},
			OnError: func(_ models.GenerateReportPayload, err error) {
				h.notify(eventbus.TopicNotifyError, "Failed to generate report: "+platformerrors.MessageOf(err), "")
			},
		})
}

// DeleteReport removes a report by id.
func (h *Hooks) DeleteReport() *DeleteReportMutation {
	return querycache.NewMutation(h.cache, h.api.Reports.Delete,
		querycache.MutationOptions[string, *models.DeleteReportResponse]{
			Invalidates: []string{FamilyReports},
			OnSuccess: func(string, *models.DeleteReportResponse) {
				h.notify(eventbus.TopicNotifySuccess, "Report deleted successfully", "")
			},
			OnError: func(_ string, err error) {
				h.notify(eventbus.TopicNotifyError, "Failed to delete report: "+platformerrors.MessageOf(err), "")
			},
		})
}

// DownloadURL builds the PDF link for a report. It never touches the cache.
func (h *Hooks) DownloadURL(reportID, shareToken string) string {
	return h.api.Reports.DownloadURL(reportID, shareToken)
}
