// SPDX-License-Identifier: GPL-2.0-or-later

package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dashgps/pkg/log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3API interface {
	PutObject(
		ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.PutObjectOutput, error)
}

// S3 uploads the output file to a bucket.
type S3 struct {
	client s3API
	bucket string
	key    string
	logger log.ILogger
}

// NewS3 returns an uploader using the default aws credential chain.
func NewS3(ctx context.Context, bucket, key string, logger log.ILogger) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		key:    strings.TrimPrefix(key, "/"),
		logger: logger,
	}, nil
}

// Upload uploads the file at path.
func (u *S3) Upload(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(u.key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(path)),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%v/%v: %w", u.bucket, u.key, err)
	}

	log.Info(u.logger).Src("publish").Msgf("uploaded s3://%v/%v", u.bucket, u.key)
	return nil
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpx":
		return "application/gpx+xml"
	case ".nmea":
		return "text/plain"
	}
	return "application/octet-stream"
}
