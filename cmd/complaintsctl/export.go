package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicdesk/complaints-service/internal/bootstrap"
	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/service"
)

var (
	exportStatuses []string
	exportPageSize int
)

type exportedComplaint struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Category    domain.Category        `json:"category"`
	Province    string                 `json:"province"`
	District    string                 `json:"district"`
	Sector      string                 `json:"sector"`
	Priority    domain.Priority        `json:"priority"`
	Status      domain.ComplaintStatus `json:"status"`
	SubmitterID string                 `json:"submitter_id"`
	AgencyID    *string                `json:"agency_id"`
	Attachments int                    `json:"attachments"`
	CreatedAt   string                 `json:"created_at"`
	UpdatedAt   string                 `json:"updated_at"`
	ResolvedAt  *string                `json:"resolved_at"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Stream complaints as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		var query service.ComplaintQuery
		for _, raw := range exportStatuses {
			status, err := domain.ParseStatus(raw)
			if err != nil {
				return err
			}
			query.Statuses = append(query.Statuses, status)
		}

		ctx := cmd.Context()
		store, err := bootstrap.OpenStore(ctx, *cfg, logger)
		if err != nil {
			return err
		}
		if store.Close != nil {
			defer store.Close(ctx) //nolint:errcheck
		}

		complaints := service.NewComplaintService(service.ComplaintDependencies{
			ComplaintRepo: store.Complaints,
			HistoryRepo:   store.History,
			ResponseRepo:  store.Responses,
			Logger:        logger,
		})
		operator := domain.Identity{UserID: "complaintsctl", Role: domain.RoleSystemAdmin}

		enc := json.NewEncoder(cmd.OutOrStdout())
		count := 0
		for complaint, err := range complaints.Complaints(ctx, operator, query, exportPageSize) {
			if err != nil {
				return fmt.Errorf("export stopped after %d complaints: %w", count, err)
			}
			if err := enc.Encode(toExport(complaint)); err != nil {
				return err
			}
			count++
		}
		logger.Info("export finished", zap.Int("count", count))
		return nil
	},
}

func toExport(c domain.Complaint) exportedComplaint {
	const layout = "2006-01-02T15:04:05.000Z07:00"
	out := exportedComplaint{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		Province:    c.Location.Province,
		District:    c.Location.District,
		Sector:      c.Location.Sector,
		Priority:    c.Priority,
		Status:      c.Status,
		SubmitterID: c.SubmitterID,
		AgencyID:    c.AgencyID,
		Attachments: len(c.Attachments),
		CreatedAt:   c.CreatedAt.Format(layout),
		UpdatedAt:   c.UpdatedAt.Format(layout),
	}
	if c.ResolvedAt != nil {
		resolved := c.ResolvedAt.Format(layout)
		out.ResolvedAt = &resolved
	}
	return out
}

func init() {
	exportCmd.Flags().StringSliceVar(&exportStatuses, "status", nil, "only export these statuses (repeat or comma separate)")
	exportCmd.Flags().IntVar(&exportPageSize, "page-size", 100, "complaints fetched per page")
}
