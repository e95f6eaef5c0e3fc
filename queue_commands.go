package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/camden-git/photoqueue/config"
	"github.com/camden-git/photoqueue/models"
	"github.com/camden-git/photoqueue/repository"
)

var statusOrder = []models.ReviewStatus{
	models.StatusPending,
	models.StatusApproved,
	models.StatusPublished,
	models.StatusUploaded,
}

func newQueueCommand(cfg *config.Config) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the review queue",
	}
	queueCmd.AddCommand(newQueueListCommand(cfg))
	queueCmd.AddCommand(newQueueStatusCommand(cfg))
	return queueCmd
}

func newQueueListCommand(cfg *config.Config) *cobra.Command {
	var statusFlag string
	var sortFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !repository.IsValidSortOrder(sortFlag) {
				return fmt.Errorf("unknown sort order %q", sortFlag)
			}
			a, err := openApp(*cfg, nil, false)
			if err != nil {
				return err
			}
			defer a.Close()

			var records []models.PhotoRecord
			if statusFlag == "" {
				records, err = a.repo.FindForReview()
			} else {
				records, err = a.repo.FindByStatuses(models.ReviewStatus(statusFlag))
			}
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}
			repository.SortRecords(records, sortFlag)

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					strconv.FormatUint(uint64(rec.ID), 10),
					rec.FileName,
					rec.Folder,
					formatQR(rec.QR),
					derefOr(rec.QCStatus, "-"),
					string(rec.Status()),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "File", "Folder", "QR", "QC", "Status"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&sortFlag, "sort", repository.DefaultSortOrder, "Sort order: id_asc, filename_asc, filename_nat, date_asc, date_desc, qr_desc")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only list records in this status (Pending, Approved, Published, Uploaded)")
	return cmd
}

func newQueueStatusCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show record counts per review status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*cfg, nil, false)
			if err != nil {
				return err
			}
			defer a.Close()

			counts, err := a.repo.CountByStatus()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(statusOrder))
			var total int64
			for _, status := range statusOrder {
				rows = append(rows, []string{string(status), strconv.FormatInt(counts[status], 10)})
				total += counts[status]
			}
			rows = append(rows, []string{"Total", strconv.FormatInt(total, 10)})
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Records"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func formatQR(qr *float64) string {
	if qr == nil {
		return "-"
	}
	return strconv.FormatFloat(*qr, 'f', 2, 64)
}

func derefOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
