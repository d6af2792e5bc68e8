package keys

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	getObject = func(ctx context.Context, c *s3.Client, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		return c.GetObject(ctx, in)
	}
)

// S3Settings locate an S3-compatible object store for s3:// sources.
type S3Settings struct {
	User         string
	Password     string
	Region       string
	BaseEndpoint string
	// Bucket is used for s3:///object sources that name no bucket.
	Bucket string
}

// Sources describes where key material comes from. Key sources are a plain
// path, a file:// URI or s3://bucket/object. RefreshPublicKey is optional;
// when set it must match the private key.
type Sources struct {
	AccessSecret      string
	RefreshPrivateKey string
	RefreshPublicKey  string
	S3                S3Settings
}

// Load reads and validates all key material. Every failure wraps
// common.ErrSigningKeyUnavailable.
func Load(ctx context.Context, src Sources) (*Material, error) {
	if src.RefreshPrivateKey == "" {
		return nil, fmt.Errorf("%w: refresh private key source is not configured", common.ErrSigningKeyUnavailable)
	}

	privPEM, err := readSource(ctx, src.RefreshPrivateKey, src.S3)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh private key: %v", common.ErrSigningKeyUnavailable, err)
	}

	priv, err := jwt.ParseEdPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh private key: %v", common.ErrSigningKeyUnavailable, err)
	}
	edPriv, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: refresh private key is not an ed25519 key", common.ErrSigningKeyUnavailable)
	}

	if src.RefreshPublicKey != "" {
		pubPEM, err := readSource(ctx, src.RefreshPublicKey, src.S3)
		if err != nil {
			return nil, fmt.Errorf("%w: refresh public key: %v", common.ErrSigningKeyUnavailable, err)
		}
		pub, err := jwt.ParseEdPublicKeyFromPEM(pubPEM)
		if err != nil {
			return nil, fmt.Errorf("%w: refresh public key: %v", common.ErrSigningKeyUnavailable, err)
		}
		edPub, ok := pub.(ed25519.PublicKey)
		if !ok || !edPub.Equal(edPriv.Public()) {
			return nil, fmt.Errorf("%w: refresh public key does not match private key", common.ErrSigningKeyUnavailable)
		}
	}

	return New([]byte(src.AccessSecret), edPriv)
}

func readSource(ctx context.Context, source string, s3cfg S3Settings) ([]byte, error) {
	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" {
		return os.ReadFile(source)
	}

	switch u.Scheme {
	case "file":
		return os.ReadFile(u.Path)
	case "s3":
		bucket := u.Host
		if bucket == "" {
			bucket = s3cfg.Bucket
		}
		return readS3Object(ctx, bucket, strings.TrimPrefix(u.Path, "/"), s3cfg)
	}
	return nil, fmt.Errorf("unsupported key source scheme %q", u.Scheme)
}

func readS3Object(ctx context.Context, bucket, key string, s3cfg S3Settings) ([]byte, error) {
	if bucket == "" || key == "" {
		return nil, errors.New("s3 source must be s3://bucket/object")
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s3cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s3cfg.User,
			s3cfg.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s3cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s3cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	out, err := getObject(ctx, client, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return buf.Bytes(), nil
}
