// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object storage client for
// publishing rendered images. It wraps the AWS SDK v2 and is configured for
// path-style access, which works with AWS, MinIO, CEPH and Hetzner alike.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ContentTypeJPEG is the content type of every rendered image.
const ContentTypeJPEG = "image/jpeg"

// Options configures a Client.
type Options struct {
	Endpoint  string // e.g. https://s3.eu-central-1.amazonaws.com
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string // optional CDN/direct URL for public files
	Prefix    string // optional key prefix, e.g. "images"
}

// putObjectAPI is the subset of the S3 client used for uploads.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client uploads images to a single public bucket.
type Client struct {
	s3        putObjectAPI
	bucket    string
	endpoint  string
	publicURL string
	prefix    string
}

// New creates an S3 storage client with path-style addressing. Returns
// (nil, nil) if endpoint or credentials are empty, allowing the caller to
// decide whether storage is mandatory.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" || opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, nil
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}

	endpoint := strings.TrimRight(opts.Endpoint, "/")

	s3Client := s3.New(s3.Options{
		Region:       opts.Region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		UsePathStyle: true,
	})

	return newClient(s3Client, endpoint, opts), nil
}

func newClient(api putObjectAPI, endpoint string, opts Options) *Client {
	return &Client{
		s3:        api,
		bucket:    opts.Bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
		prefix:    strings.Trim(opts.Prefix, "/"),
	}
}

// Upload stores an object in the bucket with public-read ACL so it can be
// served directly.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           s3types.ObjectCannedACLPublicRead,
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// Store uploads a rendered JPEG under filename and returns its public URL.
func (c *Client) Store(ctx context.Context, filename string, data []byte) (string, error) {
	key := c.ObjectKey(filename)
	if err := c.Upload(ctx, key, ContentTypeJPEG, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", err
	}
	return c.FileURL(key), nil
}

// ObjectKey returns the bucket key for filename, applying the prefix.
func (c *Client) ObjectKey(filename string) string {
	filename = strings.TrimLeft(filename, "/")
	if c.prefix == "" {
		return filename
	}
	return path.Join(c.prefix, filename)
}

// FileURL returns the public URL for a key. Uses the configured public URL
// if set, otherwise builds a path-style URL.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.bucket + "/" + key
}

// Bucket returns the name of the bucket.
func (c *Client) Bucket() string {
	return c.bucket
}
