package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"bloodlink-backend/internal/apperror"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used here, for mocking.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store stores documents in a private bucket; links are presigned GETs.
type S3Store struct {
	client    S3API
	presigner Presigner
	bucket    string
	urlTTL    time.Duration
	now       func() time.Time
}

func NewS3Store(client S3API, presigner Presigner, bucket string, urlTTL time.Duration) *S3Store {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &S3Store{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		urlTTL:    urlTTL,
		now:       time.Now,
	}
}

// NewS3Clients builds the S3 client and its presigner from the default credential chain.
func NewS3Clients(ctx context.Context, region string) (*s3.Client, *s3.PresignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return client, s3.NewPresignClient(client), nil
}

var _ DocumentStore = (*S3Store)(nil)

func (s *S3Store) Upload(ctx context.Context, fileName, contentType string, body io.Reader) (Object, error) {
	if err := CheckContentType(contentType); err != nil {
		return Object{}, err
	}
	key, err := objectPath(fileName, s.now())
	if err != nil {
		return Object{}, err
	}
	data, err := readLimited(body)
	if err != nil {
		return Object{}, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, apperror.Upstream("s3", err)
	}

	url, err := s.SignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return Object{}, err
	}
	return Object{Path: key, URL: url}, nil
}

func (s *S3Store) SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	if objectPath == "" {
		return "", apperror.MissingField("path")
	}
	if ttl <= 0 {
		ttl = s.urlTTL
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", apperror.Upstream("s3", err)
	}
	return req.URL, nil
}
