package s3blob

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/blobkit/internal/blobstore"
)

// fakeClient backs the S3 API subset with a map.
type fakeClient struct {
	objects map[string][]byte
	heads   int
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string][]byte)}
}

func (f *fakeClient) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeClient) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.heads++
	if _, ok := f.objects[*params.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3blobRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewWithClient(newFakeClient(), "bucket")

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	presence, err := s.IsPresent(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, blobstore.Absent, presence)

	require.NoError(t, s.Put(ctx, "k", []byte("v"), blobstore.IfAbsent))

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	presence, err = s.IsPresent(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, blobstore.Present, presence)
}

func TestS3blobIfAbsentConflict(t *testing.T) {
	ctx := context.Background()
	s := NewWithClient(newFakeClient(), "bucket")

	require.NoError(t, s.Put(ctx, "k", []byte("a"), blobstore.IfAbsent))
	// Identical bytes are idempotent.
	require.NoError(t, s.Put(ctx, "k", []byte("a"), blobstore.IfAbsent))

	var already *blobstore.AlreadyPresentError
	require.ErrorAs(t, s.Put(ctx, "k", []byte("b"), blobstore.IfAbsent), &already)

	got, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)
}

func TestS3blobOverwriteSkipsExistenceCheck(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	s := NewWithClient(client, "bucket")

	require.NoError(t, s.Put(ctx, "k", []byte("a"), blobstore.Overwrite))
	require.NoError(t, s.Put(ctx, "k", []byte("b"), blobstore.Overwrite))
	assert.Zero(t, client.heads)

	got, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
}
