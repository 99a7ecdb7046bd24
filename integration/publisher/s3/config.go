package s3

import "time"

// Config holds the bucket settings.
type Config struct {
	Bucket               string        `env:"S3_BUCKET,required"`
	Region               string        `env:"S3_REGION" envDefault:"us-east-1"`
	AccessKeyID          string        `env:"S3_ACCESS_KEY_ID"`
	SecretKey            string        `env:"S3_SECRET_ACCESS_KEY"`
	Endpoint             string        `env:"S3_ENDPOINT"`
	ForcePathStyle       bool          `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
	Prefix               string        `env:"S3_PREFIX" envDefault:"certificates/"`
	UploadTimeout        time.Duration `env:"S3_UPLOAD_TIMEOUT" envDefault:"30s"`
	ServerSideEncryption string        `env:"S3_SSE" envDefault:"AES256"`
}
