package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

type object struct {
	data        []byte
	contentType string
}

type fakeClient struct {
	buckets map[string]bool
	objects map[string]object
	putErr  error
}

func newFake() *fakeClient {
	return &fakeClient{buckets: map[string]bool{}, objects: map[string]object{}}
}

func (f *fakeClient) PutObject(_ context.Context, bucket, name string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[bucket+"/"+name] = object{data: data, contentType: opts.ContentType}
	return minio.UploadInfo{Bucket: bucket, Key: name, Size: size}, nil
}

func (f *fakeClient) PresignedGetObject(_ context.Context, bucket, name string, expiry time.Duration, _ url.Values) (*url.URL, error) {
	return url.Parse("http://minio.local/" + bucket + "/" + name + "?X-Amz-Expires=" + expiry.String())
}

func (f *fakeClient) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeClient) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeClient) RemoveObject(_ context.Context, bucket, name string, _ minio.RemoveObjectOptions) error {
	delete(f.objects, bucket+"/"+name)
	return nil
}

func TestBucketPutAndRemove(t *testing.T) {
	client := newFake()
	b := NewBucket(client, "exports", "", "/ledgerdesk/")
	ctx := context.Background()

	require.NoError(t, b.EnsureBucket(ctx))
	require.True(t, client.buckets["exports"])
	require.NoError(t, b.EnsureBucket(ctx))

	require.Equal(t, "ledgerdesk/job-1/TB.csv", b.Key("job-1/TB.csv"))
	require.Equal(t, "ledgerdesk/etc/passwd", b.Key("../../etc/passwd"))

	require.NoError(t, b.Put(ctx, "job-1/TB.csv", "text/csv", []byte("a,b")))
	obj := client.objects["exports/ledgerdesk/job-1/TB.csv"]
	require.Equal(t, "a,b", string(obj.data))
	require.Equal(t, "text/csv", obj.contentType)

	link, err := b.URL(ctx, "ledgerdesk/job-1/TB.csv", time.Hour)
	require.NoError(t, err)
	require.Contains(t, link, "exports/ledgerdesk/job-1/TB.csv")

	require.NoError(t, b.Remove(ctx, "ledgerdesk/job-1/TB.csv"))
	require.Empty(t, client.objects)
}

func TestBucketPutFailure(t *testing.T) {
	client := newFake()
	client.putErr = errors.New("access denied")
	err := NewBucket(client, "exports", "", "").Put(context.Background(), "x.pdf", "application/pdf", []byte("%PDF"))
	require.ErrorContains(t, err, "access denied")
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(Config{Endpoint: "127.0.0.1:9000"})
	require.Error(t, err)
	b, err := New(Config{Endpoint: "127.0.0.1:9000", Bucket: "exports", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	require.Equal(t, "a.csv", b.Key("a.csv"))
}
