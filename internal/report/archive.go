package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"o2d-backend/internal/models"
)

var ErrNotFound = errors.New("report not found")

// ObjectStore uploads rendered report files.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}

// MinIOStore stores reports in one bucket of a MinIO (or S3) server.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinIOStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinIOStore{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *MinIOStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Archive keeps a history of exported reports.
type Archive struct {
	db    *gorm.DB
	store ObjectStore
	log   *zap.Logger
}

// NewArchive returns an archive writing to db. store may be nil, in
// which case only the metadata is kept.
func NewArchive(db *gorm.DB, store ObjectStore, log *zap.Logger) *Archive {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archive{db: db, store: store, log: log.Named("report")}
}

// Save records one export and uploads its file when an object store is
// configured. An upload failure is logged and the entry is kept without
// an object key.
func (a *Archive) Save(ctx context.Context, d Data, format models.ReportFormat, body []byte, user string) (*models.DashboardReport, error) {
	filters, err := json.Marshal(d.Criteria)
	if err != nil {
		return nil, fmt.Errorf("encode filters: %w", err)
	}

	entry := &models.DashboardReport{
		ID:              uuid.NewString(),
		FileName:        FileName(d.GeneratedAt, format),
		Format:          format,
		CreatedBy:       user,
		Filters:         string(filters),
		RecordCount:     d.TotalRecords,
		TotalAmount:     d.Metrics.TotalAmount,
		PendingPayments: d.Metrics.PendingPayments,
		SizeBytes:       int64(len(body)),
		GeneratedAt:     d.GeneratedAt,
	}

	if a.store != nil {
		key := fmt.Sprintf("reports/%s/%s-%s", d.GeneratedAt.Format("2006/01/02"), entry.ID[:8], entry.FileName)
		if err := a.store.Put(ctx, key, ContentType(format), body); err != nil {
			a.log.Warn("report upload failed", zap.String("file", entry.FileName), zap.Error(err))
		} else {
			entry.ObjectKey = key
		}
	}

	if err := a.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("save report entry: %w", err)
	}
	a.log.Info("report archived",
		zap.String("id", entry.ID),
		zap.String("file", entry.FileName),
		zap.Int("records", entry.RecordCount),
		zap.String("object_key", entry.ObjectKey),
	)
	return entry, nil
}

// ListFilter narrows List.
type ListFilter struct {
	Format models.ReportFormat
	From   *time.Time
	To     *time.Time
	Limit  int
}

// List returns archived reports, newest first.
func (a *Archive) List(ctx context.Context, f ListFilter) ([]models.DashboardReport, error) {
	q := a.db.WithContext(ctx).Model(&models.DashboardReport{})
	if f.Format != "" {
		q = q.Where("format = ?", f.Format)
	}
	if f.From != nil {
		q = q.Where("generated_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("generated_at < ?", f.To.AddDate(0, 0, 1))
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var out []models.DashboardReport
	if err := q.Order("generated_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

func (a *Archive) Get(ctx context.Context, id string) (*models.DashboardReport, error) {
	var r models.DashboardReport
	err := a.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return &r, nil
}
