package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/regflow/internal/logging"
	"github.com/dmitrijs2005/regflow/internal/netx"
	"github.com/google/uuid"
)

const (
	MaxImageSize  = 5 << 20
	presignExpiry = 15 * time.Minute
	getURLExpiry  = 7 * 24 * time.Hour
)

var (
	ErrNotImage   = errors.New("file is not an image")
	ErrTooLarge   = errors.New("image is too large")
	ErrEmptyImage = errors.New("image is empty")
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

type Config struct {
	Bucket        string
	Region        string
	BaseEndpoint  string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

type S3Uploader struct {
	cfg        Config
	httpClient *http.Client
	logger     logging.Logger
}

// NewS3Uploader returns an uploader for cfg. A nil httpClient means
// http.DefaultClient.
func NewS3Uploader(cfg Config, httpClient *http.Client, logger logging.Logger) *S3Uploader {
	if logger == nil {
		logger = logging.Nop()
	}
	return &S3Uploader{cfg: cfg, httpClient: httpClient, logger: logger}
}

// StorageKey returns a fresh object key for an image of accountID.
func StorageKey(accountID, ext string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("avatars/%s/%d/%02d/%s%s", accountID, d.Year(), d.Month(), uuid.New(), strings.ToLower(ext))
}

// UploadFile reads the image at path and uploads it for accountID.
func (u *S3Uploader) UploadFile(ctx context.Context, accountID, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return u.Upload(ctx, accountID, filepath.Ext(path), data)
}

// Upload stores data and returns its hosted URL.
func (u *S3Uploader) Upload(ctx context.Context, accountID, ext string, data []byte) (string, error) {
	contentType, err := checkImage(data)
	if err != nil {
		return "", err
	}

	pc, err := u.presignClient(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 client: %w", err)
	}

	key := StorageKey(accountID, ext)
	put, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}

	if err := netx.UploadToPresignedURL(ctx, u.httpClient, put.URL, contentType, data); err != nil {
		return "", err
	}
	u.logger.Info(ctx, "profile image uploaded", "account_id", accountID, "key", key, "size", len(data))

	if u.cfg.PublicBaseURL != "" {
		return strings.TrimRight(u.cfg.PublicBaseURL, "/") + "/" + key, nil
	}

	get, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(getURLExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return get.URL, nil
}

func (u *S3Uploader) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(u.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			u.cfg.AccessKey,
			u.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if u.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(u.cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return s3.NewPresignClient(client), nil
}

func checkImage(data []byte) (string, error) {
	switch {
	case len(data) == 0:
		return "", ErrEmptyImage
	case len(data) > MaxImageSize:
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), MaxImageSize)
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, ct)
	}
	return ct, nil
}
