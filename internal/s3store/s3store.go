// Package s3store lists and downloads plugin artifacts held in S3 buckets.
// It is a thin collaborator: one typed error, no retries beyond what the
// AWS SDK does itself.
package s3store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// Error is the failure surfaced by every s3store operation.
type Error struct {
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3: %s/%s: %v", e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("s3: %s: %v", e.Bucket, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client wraps an S3 API client. It implements plugininfo.BucketLister.
type Client struct {
	api s3iface.S3API
}

// New builds a client using the ambient AWS configuration (shared config
// files and environment).
func New() (*Client, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("creating AWS session failed: %w", err)
	}
	return &Client{api: s3.New(sess)}, nil
}

// NewWithAPI builds a client over an explicit API implementation, for tests.
func NewWithAPI(api s3iface.S3API) *Client {
	return &Client{api: api}
}

// List returns every object key in the bucket below the prefix.
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	err := c.api.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				keys = append(keys, aws.StringValue(obj.Key))
			}
			return true
		})
	if err != nil {
		return nil, &Error{Bucket: bucket, Err: err}
	}
	return keys, nil
}

// Download fetches one object into the destination path, writing through a
// temporary file so a partial download never shows up under the final name.
func (c *Client) Download(ctx context.Context, bucket, key, dest string) error {
	out, err := c.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &Error{Bucket: bucket, Key: key, Err: err}
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".s3-*")
	if err != nil {
		return &Error{Bucket: bucket, Key: key, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		return &Error{Bucket: bucket, Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &Error{Bucket: bucket, Key: key, Err: err}
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return &Error{Bucket: bucket, Key: key, Err: err}
	}
	return nil
}
