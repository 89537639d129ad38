package storage

import (
	"context"
	"testing"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewS3Store_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.StorageConfig
		want string
	}{
		{"nil config", nil, "configuration is required"},
		{"missing bucket", &config.StorageConfig{AccessKey: "key", SecretKey: "secret"}, "bucket is required"},
		{"missing access key", &config.StorageConfig{Bucket: "imports", SecretKey: "secret"}, "access key and secret key"},
		{"missing secret key", &config.StorageConfig{Bucket: "imports", AccessKey: "key"}, "access key and secret key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3Store(tt.cfg, nil)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	store, err := NewS3Store(&config.StorageConfig{
		Bucket:       "imports",
		AccessKey:    "key",
		SecretKey:    "secret",
		Endpoint:     "localhost:9000",
		UsePathStyle: true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "imports", store.bucket)
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"", false, "http://localhost:9000"},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		got, err := endpointURL(tt.endpoint, tt.useSSL)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestS3Store_EmptyKey(t *testing.T) {
	store, err := NewS3Store(&config.StorageConfig{Bucket: "imports", AccessKey: "key", SecretKey: "secret"}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, store.Upload(context.Background(), "", []byte("x"), "text/csv"), errKeyRequired)
}
