package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glow-mdsol/clinical-trials/config"
)

type fakeUploader struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeUploader) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestUploadDocument(t *testing.T) {
	up := &fakeUploader{}

	link, err := UploadDocument(context.Background(), up, "https://s3.example.com/", "trials", "NCT1/ICF_000.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "https://s3.example.com/trials/NCT1/ICF_000.pdf", link)
	assert.Equal(t, "trials", aws.ToString(up.input.Bucket))
	assert.Equal(t, "NCT1/ICF_000.pdf", aws.ToString(up.input.Key))
	assert.Equal(t, "application/pdf", aws.ToString(up.input.ContentType))
	assert.Equal(t, []byte("%PDF"), up.body)
}

func TestUploadDocumentError(t *testing.T) {
	up := &fakeUploader{err: errors.New("denied")}

	_, err := UploadDocument(context.Background(), up, "https://s3.example.com", "trials", "k", nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trials/k")
	assert.Nil(t, up.input.ContentType)
}

func TestDocumentKey(t *testing.T) {
	assert.Equal(t, "NCT03741543/Prot_000.pdf", DocumentKey("NCT03741543", "Prot_000.pdf"))
	assert.Equal(t, "NCT03741543/x.pdf", DocumentKey("NCT03741543", "../../x.pdf"))
}

func TestNewS3Client(t *testing.T) {
	client, err := NewS3Client(context.Background(), &config.Config{
		S3Key:    "key",
		S3Secret: "secret",
		S3URL:    "https://s3.example.com",
		S3Region: "eu-central-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", client.Options().Region)
	assert.True(t, client.Options().UsePathStyle)
}
