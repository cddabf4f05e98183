// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object archive for
// generated images. It wraps the AWS SDK v2 and is configured for
// path-style access (required by CEPH/MinIO-style endpoints).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archive stores generated image payloads in a single bucket.
type Archive struct {
	s3     *s3.Client
	bucket string
}

// New creates an S3 archive client with static credentials and
// path-style addressing. Returns (nil, nil) if endpoint or credentials
// are empty, allowing the gateway to run without an archive.
func New(endpoint, region, accessKey, secretKey, bucket string) (*Archive, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}
	if bucket == "" {
		return nil, fmt.Errorf("s3 archive: bucket is required when an endpoint is configured")
	}

	endpoint = strings.TrimRight(endpoint, "/")

	client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Archive{s3: client, bucket: bucket}, nil
}

// Put stores one object under the given key.
func (a *Archive) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", a.bucket, key, err)
	}
	return nil
}
