package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"cmd",
		"-a", "127.0.0.1:9090", "-d", "db", "-redis", "r:6379",
		"-as", "accessSecret", "-rs", "refreshSecret",
		"-at", "1", "-rt", "3",
		"-s3-user", "user", "-s3-password", "password",
		"-s3-bucket", "bucket", "-s3-region", "us-west-1",
		"-s3-endpoint", "http://endpoint", "-s3-public", "http://public",
		"-tmp", "tmpdir", "-origin", "http://origin", "-prod",
	}

	config := &Config{}
	require.NotPanics(t, func() { parseFlags(config) })

	assert.Equal(t, "127.0.0.1:9090", config.EndpointAddrHTTP)
	assert.Equal(t, "db", config.DatabaseDSN)
	assert.Equal(t, "r:6379", config.RedisAddr)
	assert.Equal(t, "accessSecret", config.AccessTokenSecret)
	assert.Equal(t, "refreshSecret", config.RefreshTokenSecret)
	assert.Equal(t, 1*time.Minute, config.AccessTokenValidityDuration)
	assert.Equal(t, 3*time.Minute, config.RefreshTokenValidityDuration)
	assert.Equal(t, "user", config.S3RootUser)
	assert.Equal(t, "password", config.S3RootPassword)
	assert.Equal(t, "bucket", config.S3Bucket)
	assert.Equal(t, "us-west-1", config.S3Region)
	assert.Equal(t, "http://endpoint", config.S3BaseEndpoint)
	assert.Equal(t, "http://public", config.S3PublicBaseURL)
	assert.Equal(t, "tmpdir", config.TempUploadDir)
	assert.Equal(t, "http://origin", config.CORSOrigin)
	assert.True(t, config.Production)
}

func TestParseFlags_DefaultsPreserved(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"cmd", "-a", ":9001"}

	config := &Config{}
	config.LoadDefaults()
	parseFlags(config)

	assert.Equal(t, ":9001", config.EndpointAddrHTTP)
	assert.Equal(t, "16K", config.BodyLimit)
	assert.Equal(t, 10, config.LoginMaxAttempts)
	assert.Equal(t, 240*time.Hour, config.RefreshTokenValidityDuration)
}
