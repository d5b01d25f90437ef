package store

import (
	"context"
	"fmt"

	"saral/pkg/domain"
)

// SeedUploads is the demo upload history, newest first.
func SeedUploads() []domain.UploadHistoryRecord {
	return []domain.UploadHistoryRecord{
		{ID: "seed-upload-1", Name: "NEP_2020_Guidelines.pdf", Type: domain.RecordDocument, Date: "2025-10-14", Time: "14:30", Status: domain.RecordSuccess, Size: "2.4 MB"},
		{ID: "seed-upload-2", Name: "AICTE_Approval_Process.pdf", Type: domain.RecordDocument, Date: "2025-10-13", Time: "11:20", Status: domain.RecordSuccess, Size: "1.8 MB"},
		{ID: "seed-upload-3", Name: "UGC Regulations Database", Type: domain.RecordDatabase, Date: "2025-10-12", Time: "09:15", Status: domain.RecordSuccess, Size: "-"},
		{ID: "seed-upload-4", Name: "Scholarship_Schemes_2024.pdf", Type: domain.RecordDocument, Date: "2025-10-11", Time: "16:45", Status: domain.RecordSuccess, Size: "3.1 MB"},
	}
}

// SeedQueries is the demo query history, newest first.
func SeedQueries() []domain.QueryHistoryRecord {
	return []domain.QueryHistoryRecord{
		{ID: "seed-query-1", Query: "What are the eligibility criteria for UGC scholarships?", Date: "2025-10-15", Time: "10:25", SourcesCount: 4},
		{ID: "seed-query-2", Query: "Explain the AICTE approval process for new institutions", Date: "2025-10-15", Time: "09:15", SourcesCount: 4},
		{ID: "seed-query-3", Query: "What are the key highlights of NEP 2020?", Date: "2025-10-14", Time: "15:40", SourcesCount: 4},
		{ID: "seed-query-4", Query: "NAAC accreditation process and requirements", Date: "2025-10-14", Time: "11:30", SourcesCount: 4},
	}
}

// SeedHistory adds the demo records to an empty store. Records are added
// oldest first so the newest-first listing matches SeedUploads order.
func SeedHistory(ctx context.Context, h HistoryStore) error {
	uploads, err := h.ListUploads(ctx)
	if err != nil {
		return fmt.Errorf("list uploads: %w", err)
	}
	if len(uploads) == 0 {
		seed := SeedUploads()
		for i := len(seed) - 1; i >= 0; i-- {
			if err := h.AddUpload(ctx, seed[i]); err != nil {
				return fmt.Errorf("seed upload %s: %w", seed[i].ID, err)
			}
		}
	}
	queries, err := h.ListQueries(ctx)
	if err != nil {
		return fmt.Errorf("list queries: %w", err)
	}
	if len(queries) == 0 {
		seed := SeedQueries()
		for i := len(seed) - 1; i >= 0; i-- {
			if err := h.AddQuery(ctx, seed[i]); err != nil {
				return fmt.Errorf("seed query %s: %w", seed[i].ID, err)
			}
		}
	}
	return nil
}
