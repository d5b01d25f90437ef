// Package simulate drives the synthetic upload and connect progress shown on
// the add-data panel.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"saral/internal/task"
	"saral/pkg/domain"
)

const (
	DefaultTickInterval = 300 * time.Millisecond
	DefaultMaxStep      = 30.0
	DefaultClearDelay   = 2000 * time.Millisecond

	// MaxFileSize is the largest accepted upload.
	MaxFileSize = 100 << 20
)

// AcceptedExtensions lists the file types the upload form accepts.
var AcceptedExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".xlsx", ".xls", ".ppt", ".pptx"}

var (
	ErrNoFiles         = errors.New("Please select at least one file")
	ErrUploadFailed    = errors.New("Failed to upload documents")
	ErrFileTooLarge    = errors.New("file exceeds the 100MB limit")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// AcceptFile checks name and size against the upload form limits.
func AcceptFile(name string, size int64) error {
	if size > MaxFileSize {
		return fmt.Errorf("%s: %w", name, ErrFileTooLarge)
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AcceptedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", name, ErrUnsupportedType)
}

// Uploader advances each item by a random step every tick until it reaches 100.
type Uploader struct {
	Interval time.Duration
	MaxStep  float64
	// Rand returns a value in [0, 1).
	Rand func() float64
	Now  func() time.Time
	// Persist is called once an item reaches 100, before it is marked success.
	// An error marks the item as failed and stops the batch.
	Persist func(ctx context.Context, item domain.UploadItem) error
}

// NewUploader returns an uploader with the default 300ms tick and 30-point step.
func NewUploader() *Uploader {
	return &Uploader{Interval: DefaultTickInterval, MaxStep: DefaultMaxStep, Rand: rand.Float64, Now: time.Now}
}

// BatchResult is what a finished batch produced.
type BatchResult struct {
	Items   []domain.UploadItem
	Records []domain.UploadHistoryRecord
	Message string
}

// Run uploads items one after another. onUpdate sees every state change.
// On success it returns one history record per item, in item order.
func (u *Uploader) Run(ctx context.Context, items []domain.UploadItem, onUpdate func(domain.UploadItem)) (BatchResult, error) {
	if len(items) == 0 {
		return BatchResult{}, ErrNoFiles
	}
	if onUpdate == nil {
		onUpdate = func(domain.UploadItem) {}
	}
	out := append([]domain.UploadItem(nil), items...)
	for i := range out {
		if err := u.runOne(ctx, &out[i], onUpdate); err != nil {
			out[i].Status = domain.UploadError
			onUpdate(out[i])
			return BatchResult{Items: out, Message: ErrUploadFailed.Error()}, fmt.Errorf("%w: %s: %w", ErrUploadFailed, out[i].Name, err)
		}
	}

	now := u.now()
	records := make([]domain.UploadHistoryRecord, 0, len(out))
	for _, item := range out {
		records = append(records, RecordFor(item, now))
	}
	return BatchResult{Items: out, Records: records, Message: UploadedMessage(len(out))}, nil
}

func (u *Uploader) runOne(ctx context.Context, item *domain.UploadItem, onUpdate func(domain.UploadItem)) error {
	interval := u.Interval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	step := u.MaxStep
	if step <= 0 {
		step = DefaultMaxStep
	}
	random := u.Rand
	if random == nil {
		random = rand.Float64
	}

	progress := 0.0
	for {
		if err := task.Sleep(ctx, interval); err != nil {
			return err
		}
		progress += random() * step
		if progress >= 100 {
			break
		}
		item.Status = domain.UploadUploading
		item.Progress = int(math.Floor(progress))
		onUpdate(*item)
	}
	if u.Persist != nil {
		if err := u.Persist(ctx, *item); err != nil {
			return err
		}
	}
	item.Status = domain.UploadSuccess
	item.Progress = 100
	onUpdate(*item)
	return nil
}

func (u *Uploader) now() time.Time {
	if u.Now == nil {
		return time.Now()
	}
	return u.Now()
}

// RecordFor builds the history entry for a completed item.
func RecordFor(item domain.UploadItem, at time.Time) domain.UploadHistoryRecord {
	return domain.UploadHistoryRecord{
		ID:     item.ID,
		Name:   item.Name,
		Type:   domain.RecordDocument,
		Date:   at.Format("2006-01-02"),
		Time:   at.Format("03:04 PM"),
		Status: domain.RecordSuccess,
		Size:   fmt.Sprintf("%.2f MB", float64(item.Size)/1024/1024),
	}
}

// UploadedMessage is the toast shown after a batch of n files.
func UploadedMessage(n int) string {
	noun := "files"
	if n == 1 {
		noun = "file"
	}
	return fmt.Sprintf("Successfully uploaded %d %s!", n, noun)
}

// FormatFileSize renders bytes with the largest unit that keeps the value >= 1.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100
	return fmt.Sprintf("%s %s", trimFloat(v), units[i])
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
