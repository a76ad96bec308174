package s3

import (
	"bytes"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.StringValue(in.Bucket) + "/" + aws.StringValue(in.Key)
	f.objects[key] = data
	f.types[key] = aws.StringValue(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestPutGet(t *testing.T) {
	fake := newFakeS3()
	client := NewWithClient(fake, "artifacts", "detection/")
	ctx := context.Background()

	require.NoError(t, client.Put(ctx, "results/a.jpg", []byte("jpeg"), "image/jpeg"))
	require.Equal(t, []byte("jpeg"), fake.objects["artifacts/detection/results/a.jpg"])
	require.Equal(t, "image/jpeg", fake.types["artifacts/detection/results/a.jpg"])

	data, err := client.Get(ctx, "results/a.jpg")
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg"), data)
}

func TestGetMissing(t *testing.T) {
	client := NewWithClient(newFakeS3(), "artifacts", "")

	_, err := client.Get(context.Background(), "results/missing.jpg")
	require.ErrorIs(t, err, ErrObjectNotFound)
}
