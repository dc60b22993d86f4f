package config

import (
	"flag"
	"os"
	"time"

	"github.com/indexdothtml/yt-backend/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string            HTTP bind address (e.g., ":8000")
//	-d string            PostgreSQL DSN
//	-redis string        Redis address (host:port)
//	-as string           access token HMAC secret
//	-rs string           refresh token HMAC secret
//	-at int              access token validity, minutes
//	-rt int              refresh token validity, minutes
//	-s3-user string      S3 root user
//	-s3-password string  S3 root password
//	-s3-bucket string    S3 bucket name
//	-s3-region string    S3 region
//	-s3-endpoint string  S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-s3-public string    public base URL stored in asset links
//	-tmp string          temp upload directory
//	-origin string       allowed CORS origin
//	-prod                production mode (hides stack detail in 500s)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-redis", "-as", "-rs", "-at", "-rt",
		"-s3-user", "-s3-password", "-s3-bucket", "-s3-region", "-s3-endpoint", "-s3-public",
		"-tmp", "-origin", "-prod",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.AccessTokenSecret, "as", config.AccessTokenSecret, "access token secret key")
	fs.StringVar(&config.RefreshTokenSecret, "rs", config.RefreshTokenSecret, "refresh token secret key")

	accessTokenValidityDuration := fs.Int("at", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("rt", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "s3-user", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "s3-password", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "s3-bucket", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "s3-region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "s3-endpoint", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3PublicBaseURL, "s3-public", config.S3PublicBaseURL, "public base URL for stored assets")

	fs.StringVar(&config.TempUploadDir, "tmp", config.TempUploadDir, "temp upload directory")
	fs.StringVar(&config.CORSOrigin, "origin", config.CORSOrigin, "allowed CORS origin")
	fs.BoolVar(&config.Production, "prod", config.Production, "production mode")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
