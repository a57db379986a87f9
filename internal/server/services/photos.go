package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/server/config"
	"github.com/google/uuid"
)

// Seams over the AWS SDK for tests.
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
	newS3PresignClient    = func(c *s3.Client) *s3.PresignClient { return s3.NewPresignClient(c) }
	presignPutObject      = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// PhotoService hands out presigned PUT URLs for borrower photos.
type PhotoService struct {
	config *config.Config
	now    func() time.Time
}

func NewPhotoService(cfg *config.Config) *PhotoService {
	return &PhotoService{config: cfg, now: time.Now}
}

// StorageKey returns a fresh object key for a photo of the given content type.
func (s *PhotoService) StorageKey(contentType string) (string, error) {
	ext, ok := photoExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported photo type %q", common.ErrValidation, contentType)
	}
	d := s.now().UTC()
	return fmt.Sprintf("photos/%04d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.NewString(), ext), nil
}

func (s *PhotoService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})
	return newS3PresignClient(client), nil
}

// PresignUpload returns the storage key and a URL the client PUTs the photo to.
func (s *PhotoService) PresignUpload(ctx context.Context, contentType string) (string, string, error) {
	key, err := s.StorageKey(contentType)
	if err != nil {
		return "", "", err
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", err
	}

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.S3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.config.PhotoUploadExpiry))
	if err != nil {
		return "", "", err
	}
	return key, req.URL, nil
}
