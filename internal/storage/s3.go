package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/sharedfs/internal/common"
)

// s3API is the part of *s3.Client the store uses.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Options configures an S3-compatible endpoint (AWS or MinIO).
type S3Options struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
	// Prefix is prepended to every object key; "" stores at the bucket root.
	Prefix string
}

// S3Store keeps each file as one object under bucket/prefix. A PutObject
// replaces an object in one step, so readers never see a partial file.
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Store wraps an existing client.
func NewS3Store(client s3API, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// OpenS3Store builds a client with static credentials and a custom endpoint.
// Path-style addressing is used so MinIO works without DNS setup.
func OpenS3Store(ctx context.Context, o S3Options) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(opt *s3.Options) {
		if o.BaseEndpoint != "" {
			opt.BaseEndpoint = aws.String(o.BaseEndpoint)
		}
		opt.UsePathStyle = true
	})

	return NewS3Store(client, o.Bucket, o.Prefix), nil
}

func (s *S3Store) key(name string) *string {
	return aws.String(s.prefix + name)
}

func (s *S3Store) head(ctx context.Context, name string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: s.key(name)})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
		}
		return 0, fmt.Errorf("head %s: %w", name, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.head(ctx, name)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *S3Store) Stat(ctx context.Context, name string) (int64, error) {
	return s.head(ctx, name)
}

func (s *S3Store) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: s.key(name)})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
		}
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", name, err)
	}
	return data, nil
}

func (s *S3Store) put(ctx context.Context, name string, data []byte, ifNoneMatch bool) error {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           s.key(name),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	}
	if ifNoneMatch {
		in.IfNoneMatch = aws.String("*")
	}
	_, err := s.client.PutObject(ctx, in)
	return err
}

func (s *S3Store) Create(ctx context.Context, name string, data []byte) (int64, error) {
	_, err := s.head(ctx, name)
	switch {
	case err == nil:
		return 0, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, name)
	case !errors.Is(err, common.ErrorNotFound):
		return 0, err
	}

	// If-None-Match guards against writers outside this process
	if err := s.put(ctx, name, data, true); err != nil {
		if isPreconditionFailed(err) {
			return 0, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, name)
		}
		return 0, fmt.Errorf("put %s: %w", name, err)
	}
	return int64(len(data)), nil
}

func (s *S3Store) Overwrite(ctx context.Context, name string, data []byte) (int64, int64, error) {
	oldSize, err := s.head(ctx, name)
	if err != nil {
		return 0, 0, err
	}
	if err := s.put(ctx, name, data, false); err != nil {
		return 0, 0, fmt.Errorf("put %s: %w", name, err)
	}
	return oldSize, int64(len(data)), nil
}

func (s *S3Store) Delete(ctx context.Context, name string) (int64, error) {
	size, err := s.head(ctx, name)
	if err != nil {
		return 0, err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: s.key(name)})
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", name, err)
	}
	return size, nil
}

// List pages through the prefix once and returns the collected names.
// Keys below a further "/" are not files of this store and are skipped.
func (s *S3Store) List(ctx context.Context) (iter.Seq[string], error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var names []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if ValidateName(name) != nil {
				continue
			}
			names = append(names, name)
		}
	}
	return slices.Values(names), nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed"
}
