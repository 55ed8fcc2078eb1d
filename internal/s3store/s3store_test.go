package s3store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API

	pages   []*s3.ListObjectsV2Output
	objects map[string]string
	err     error
}

func (f *fakeS3) ListObjectsV2PagesWithContext(_ aws.Context, input *s3.ListObjectsV2Input,
	fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	if f.err != nil {
		return f.err
	}
	for i, page := range f.pages {
		if !fn(page, i == len(f.pages)-1) {
			break
		}
	}
	return nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, input *s3.GetObjectInput,
	_ ...request.Option) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[aws.StringValue(input.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func object(key string) *s3.Object {
	return &s3.Object{Key: aws.String(key)}
}

func TestList(t *testing.T) {
	t.Run("collects keys across pages", func(t *testing.T) {
		client := NewWithAPI(&fakeS3{pages: []*s3.ListObjectsV2Output{
			{Contents: []*s3.Object{object("plugin-launch-1.5.0.tar.gz")}},
			{Contents: []*s3.Object{object("plugin-conduct-2.0.0.tar.gz")}},
		}})

		keys, err := client.List(t.Context(), "ice-plugins", "")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"plugin-launch-1.5.0.tar.gz",
			"plugin-conduct-2.0.0.tar.gz",
		}, keys)
	})

	t.Run("wraps listing failures with the bucket", func(t *testing.T) {
		client := NewWithAPI(&fakeS3{err: errors.New("access denied")})

		_, err := client.List(t.Context(), "ice-plugins", "")
		var s3Err *Error
		require.ErrorAs(t, err, &s3Err)
		assert.Equal(t, "ice-plugins", s3Err.Bucket)
	})
}

func TestDownload(t *testing.T) {
	t.Run("writes the object to the destination", func(t *testing.T) {
		client := NewWithAPI(&fakeS3{objects: map[string]string{
			"stable/plugin-launch-1.5.0.tar.gz": "artifact bytes",
		}})

		dest := filepath.Join(t.TempDir(), "plugin-launch-1.5.0.tar.gz")
		require.NoError(t, client.Download(t.Context(), "ice-plugins", "stable/plugin-launch-1.5.0.tar.gz", dest))

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "artifact bytes", string(data))
	})

	t.Run("missing object leaves no file behind", func(t *testing.T) {
		client := NewWithAPI(&fakeS3{objects: map[string]string{}})

		dest := filepath.Join(t.TempDir(), "plugin-launch-1.5.0.tar.gz")
		err := client.Download(t.Context(), "ice-plugins", "plugin-launch-1.5.0.tar.gz", dest)
		var s3Err *Error
		require.ErrorAs(t, err, &s3Err)
		assert.Equal(t, "plugin-launch-1.5.0.tar.gz", s3Err.Key)
		assert.NoFileExists(t, dest)
	})
}
