//go:build integration
// +build integration

package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"

	"github.com/williamokano/bucketview/pkg/storage"
	"github.com/williamokano/bucketview/pkg/vault"
)

const (
	localstackKey    = "test"
	localstackSecret = "test"
)

func TestGatewayAgainstLocalStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, host, port := setupLocalStackContainer(ctx, t)
	defer container.Terminate(ctx)

	for _, driver := range []string{"s3", "minio"} {
		t.Run(driver, func(t *testing.T) {
			bucket := "bucketview-" + driver
			createS3Bucket(ctx, t, host, port, bucket)

			profile := vault.Profile{
				ID:        "localstack-" + driver,
				Name:      "localstack",
				Endpoint:  host,
				Port:      port,
				AccessKey: localstackKey,
				SecretKey: localstackSecret,
				Driver:    driver,
			}

			g := New(WithLogger(zerolog.Nop()))
			require.True(t, g.TestConnection(ctx, profile))

			require.NoError(t, g.Initialize(ctx, profile))
			defer g.Close()

			buckets, err := g.ListBuckets(ctx)
			require.NoError(t, err)
			var names []string
			for _, b := range buckets {
				names = append(names, b.Name)
			}
			assert.Contains(t, names, bucket)

			// Five objects listed two per page
			var keys []string
			for i := 0; i < 5; i++ {
				name := fmt.Sprintf("file-%d.txt", i)
				key, err := g.UploadObject(ctx, bucket, Upload{
					Name: name,
					Size: int64(len(name)),
					Body: strings.NewReader(name),
				}, nil)
				require.NoError(t, err)
				keys = append(keys, key)
			}

			first, err := g.ListObjectsPage(ctx, bucket, 2, "")
			require.NoError(t, err)
			assert.Len(t, first.Objects, 2)
			assert.True(t, first.HasMore)
			require.NotEmpty(t, first.Cursor)

			second, err := g.ListObjectsPage(ctx, bucket, 2, first.Cursor)
			require.NoError(t, err)
			assert.Len(t, second.Objects, 2)
			assert.True(t, second.HasMore)

			last, err := g.ListObjectsPage(ctx, bucket, 2, second.Cursor)
			require.NoError(t, err)
			assert.Len(t, last.Objects, 1)
			assert.False(t, last.HasMore)
			assert.Empty(t, last.Cursor)

			all, err := g.ListAllObjects(ctx, bucket)
			require.NoError(t, err)
			assert.Len(t, all, 5)
			for _, o := range all {
				assert.Equal(t, TypeText, o.FileType)
				assert.False(t, o.LastModified.IsZero())
			}

			var buf bytes.Buffer
			n, err := g.DownloadObject(ctx, bucket, keys[0], &buf)
			require.NoError(t, err)
			assert.Equal(t, int64(len("file-0.txt")), n)
			assert.Equal(t, "file-0.txt", buf.String())

			url, err := g.PresignDownloadURL(ctx, bucket, keys[1], time.Minute)
			require.NoError(t, err)
			resp, err := http.Get(url)
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "file-1.txt", string(body))

			require.NoError(t, g.DeleteObject(ctx, bucket, "never-existed.txt"))
			require.NoError(t, g.DeleteObjects(ctx, bucket, keys[:3]))

			all, err = g.ListAllObjects(ctx, bucket)
			require.NoError(t, err)
			assert.Len(t, all, 2)

			_, err = g.ListObjectsPage(ctx, "no-such-bucket-"+driver, 10, "")
			assert.ErrorIs(t, err, storage.ErrConnectivity)
		})
	}
}

// setupLocalStackContainer starts a LocalStack container with S3 service
func setupLocalStackContainer(ctx context.Context, t *testing.T) (*localstack.LocalStackContainer, string, int) {
	lsContainer, err := localstack.Run(ctx, "localstack/localstack:3.0",
		testcontainers.WithEnv(map[string]string{
			"SERVICES": "s3",
		}),
	)
	if err != nil {
		t.Fatalf("Failed to start LocalStack: %v", err)
	}

	mappedPort, err := lsContainer.MappedPort(ctx, "4566/tcp")
	if err != nil {
		lsContainer.Terminate(ctx)
		t.Fatalf("Failed to get LocalStack port: %v", err)
	}

	host, err := lsContainer.Host(ctx)
	if err != nil {
		lsContainer.Terminate(ctx)
		t.Fatalf("Failed to get LocalStack host: %v", err)
	}

	return lsContainer, host, mappedPort.Int()
}

// createS3Bucket creates an S3 bucket in LocalStack
func createS3Bucket(ctx context.Context, t *testing.T, host string, port int, bucketName string) {
	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion(storage.DefaultRegion),
		awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(localstackKey, localstackSecret, ""),
		),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("http://%s:%d", host, port))
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	})
	require.NoError(t, err)
}
