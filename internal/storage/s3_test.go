//go:build integration

package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/cloo-solutions/skumatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_PutHeadList(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	defer rc.Terminate(ctx)

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "skumatch-test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))
	require.NoError(t, client.EnsureBucket(ctx))

	body := `{"Widget A": "Widget A Deluxe"}`
	require.NoError(t, client.PutObject(ctx, "mappings/1.json", "application/json", strings.NewReader(body)))
	require.NoError(t, client.PutObject(ctx, "uploads/x/invoice.pdf", "application/pdf", strings.NewReader("%PDF")))

	meta, err := client.HeadObject(ctx, "mappings/1.json")
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), meta.ContentLength)
	assert.Equal(t, "application/json", meta.ContentType)

	keys, err := client.ListKeys(ctx, "mappings/")
	require.NoError(t, err)
	assert.Equal(t, []string{"mappings/1.json"}, keys)

	_, err = client.HeadObject(ctx, "missing")
	assert.Error(t, err)
}

func TestNewS3Client_RequiresBucket(t *testing.T) {
	_, err := NewS3Client(context.Background(), S3ClientConfig{})
	assert.Error(t, err)
}
