package simulate

import (
	"context"
	"errors"
	"testing"
	"time"

	"saral/pkg/domain"
)

func newTestUploader(step float64) *Uploader {
	return &Uploader{
		Interval: time.Millisecond,
		MaxStep:  DefaultMaxStep,
		Rand:     func() float64 { return step },
		Now:      func() time.Time { return time.Date(2025, 10, 15, 14, 5, 0, 0, time.UTC) },
	}
}

func TestUploaderRunSingleFile(t *testing.T) {
	u := newTestUploader(0.5)
	var updates []domain.UploadItem
	items := []domain.UploadItem{{ID: "1", Name: "NEP.pdf", Size: 2516582, Status: domain.UploadPending}}

	res, err := u.Run(context.Background(), items, func(it domain.UploadItem) { updates = append(updates, it) })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// 15 points per tick: 15..90 uploading, then success.
	if len(updates) != 7 {
		t.Fatalf("updates = %d, want 7", len(updates))
	}
	for i, it := range updates[:6] {
		if it.Status != domain.UploadUploading || it.Progress != (i+1)*15 {
			t.Fatalf("update %d = %+v", i, it)
		}
	}
	if last := updates[6]; last.Status != domain.UploadSuccess || last.Progress != 100 {
		t.Fatalf("final update = %+v", last)
	}
	if len(res.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(res.Records))
	}
	rec := res.Records[0]
	want := domain.UploadHistoryRecord{ID: "1", Name: "NEP.pdf", Type: "Document", Date: "2025-10-15", Time: "02:05 PM", Status: "Success", Size: "2.40 MB"}
	if rec != want {
		t.Fatalf("record = %+v, want %+v", rec, want)
	}
	if res.Message != "Successfully uploaded 1 file!" {
		t.Fatalf("message = %q", res.Message)
	}
	if items[0].Status != domain.UploadPending {
		t.Fatalf("input items must not be mutated")
	}
}

func TestUploaderRunSequential(t *testing.T) {
	u := newTestUploader(0.99)
	var order []string
	items := []domain.UploadItem{{ID: "a", Name: "a.pdf"}, {ID: "b", Name: "b.pdf"}}
	res, err := u.Run(context.Background(), items, func(it domain.UploadItem) {
		if it.Status == domain.UploadSuccess {
			order = append(order, it.ID)
		}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("completion order = %v", order)
	}
	if res.Message != "Successfully uploaded 2 files!" || len(res.Records) != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestUploaderRunNoFiles(t *testing.T) {
	if _, err := NewUploader().Run(context.Background(), nil, nil); !errors.Is(err, ErrNoFiles) {
		t.Fatalf("err = %v, want ErrNoFiles", err)
	}
	if ErrNoFiles.Error() != "Please select at least one file" {
		t.Fatalf("unexpected message %q", ErrNoFiles)
	}
}

func TestUploaderPersistFailureMarksError(t *testing.T) {
	u := newTestUploader(0.99)
	boom := errors.New("disk full")
	u.Persist = func(_ context.Context, it domain.UploadItem) error {
		if it.ID == "b" {
			return boom
		}
		return nil
	}
	items := []domain.UploadItem{
		{ID: "a", Status: domain.UploadPending},
		{ID: "b", Status: domain.UploadPending},
		{ID: "c", Status: domain.UploadPending},
	}
	res, err := u.Run(context.Background(), items, nil)
	if !errors.Is(err, ErrUploadFailed) || !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if res.Items[0].Status != domain.UploadSuccess || res.Items[1].Status != domain.UploadError || res.Items[2].Status != domain.UploadPending {
		t.Fatalf("statuses = %v %v %v", res.Items[0].Status, res.Items[1].Status, res.Items[2].Status)
	}
	if len(res.Records) != 0 || res.Message != "Failed to upload documents" {
		t.Fatalf("result = %+v", res)
	}
}

func TestUploaderCancelMarksError(t *testing.T) {
	u := newTestUploader(0.01)
	u.Interval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := u.Run(ctx, []domain.UploadItem{{ID: "a"}}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	if res.Items[0].Status != domain.UploadError {
		t.Fatalf("status = %v, want error", res.Items[0].Status)
	}
}

func TestAcceptFile(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want error
	}{
		{name: "policy.PDF", size: 10},
		{name: "sheet.xlsx", size: MaxFileSize},
		{name: "image.png", size: 10, want: ErrUnsupportedType},
		{name: "huge.pdf", size: MaxFileSize + 1, want: ErrFileTooLarge},
	}
	for _, tc := range tests {
		if err := AcceptFile(tc.name, tc.size); !errors.Is(err, tc.want) {
			t.Fatalf("AcceptFile(%q) = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1536, "1.5 KB"},
		{2516582, "2.4 MB"},
		{1 << 30, "1 GB"},
	}
	for _, tc := range tests {
		if got := FormatFileSize(tc.bytes); got != tc.want {
			t.Fatalf("FormatFileSize(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}
