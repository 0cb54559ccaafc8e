package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/marketplace-backend/internal/config"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewLocalStore(root, "http://localhost:8080/media/")

	exists, err := s.Exists(ctx, "receipts/receipt_1.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	key, err := s.Save(ctx, "receipts/receipt_1.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	assert.Equal(t, "receipts/receipt_1.pdf", key)

	data, err := os.ReadFile(filepath.Join(root, "receipts", "receipt_1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	exists, _ = s.Exists(ctx, key)
	assert.True(t, exists)
	assert.Equal(t, "http://localhost:8080/media/receipts/receipt_1.pdf", s.URL(key))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	exists, _ = s.Exists(ctx, key)
	assert.False(t, exists)
}

func TestLocalStoreStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(filepath.Join(root, "media"), "http://x")

	key, err := s.Save(context.Background(), "../../escape.txt", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "escape.txt", key)

	_, err = os.Stat(filepath.Join(root, "media", "escape.txt"))
	assert.NoError(t, err)

	_, err = s.Save(context.Background(), "", []byte("x"))
	assert.Error(t, err)
}

type fakeS3 struct {
	s3iface.S3API
	puts    []*s3.PutObjectInput
	headErr error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObjectWithContext(_ aws.Context, _ *s3.HeadObjectInput, _ ...request.Option) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{}, f.headErr
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, _ *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{}
	s := &S3Store{client: client, cfg: config.AWSConfig{S3Bucket: "shop", Region: "ap-south-1"}}

	key, err := s.Save(ctx, "receipts/receipt_2.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "receipts/receipt_2.pdf", key)
	require.Len(t, client.puts, 1)
	assert.Equal(t, "shop", aws.StringValue(client.puts[0].Bucket))
	assert.Equal(t, "application/pdf", aws.StringValue(client.puts[0].ContentType))

	assert.Equal(t, "https://shop.s3.ap-south-1.amazonaws.com/receipts/receipt_2.pdf", s.URL(key))
	s.cfg.CloudFrontURL = "https://cdn.example.com"
	assert.Equal(t, "https://cdn.example.com/receipts/receipt_2.pdf", s.URL(key))

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	client.headErr = awserr.New("NotFound", "not found", nil)
	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	client.headErr = awserr.New("AccessDenied", "denied", nil)
	_, err = s.Exists(ctx, key)
	assert.Error(t, err)

	assert.NoError(t, s.Delete(ctx, key))
}

func TestGenerateFileName(t *testing.T) {
	name := generateFileName("Photo.JPG", "products", time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC))
	assert.Regexp(t, `^products/20240203_[0-9a-f]{8}\.jpg$`, name)
}
