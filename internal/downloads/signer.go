package downloads

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// DefaultSignedURLTTL is used when no TTL is configured.
const DefaultSignedURLTTL = 15 * time.Minute

// Signer signs V4 URL payloads on behalf of a service account.
type Signer interface {
	Email() string
	SignBytes(ctx context.Context, payload []byte) ([]byte, error)
}

// ServiceAccountSigner signs with an RSA service account key.
type ServiceAccountSigner struct {
	email string
	key   *rsa.PrivateKey
}

// NewServiceAccountSigner accepts either a service account JSON key or a PEM
// private key. email is required for PEM keys and overrides the JSON one.
func NewServiceAccountSigner(email, key string) (*ServiceAccountSigner, error) {
	key = strings.TrimSpace(key)
	email = strings.TrimSpace(email)
	if key == "" {
		return nil, errors.New("downloads: signer key is empty")
	}
	pemKey := key
	if strings.HasPrefix(key, "{") {
		var sa struct {
			ClientEmail string `json:"client_email"`
			PrivateKey  string `json:"private_key"`
		}
		if err := json.Unmarshal([]byte(key), &sa); err != nil {
			return nil, fmt.Errorf("downloads: decode service account json: %w", err)
		}
		pemKey = sa.PrivateKey
		if email == "" {
			email = strings.TrimSpace(sa.ClientEmail)
		}
	}
	if email == "" {
		return nil, errors.New("downloads: signer email is required")
	}
	rsaKey, err := parseRSAPrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	return &ServiceAccountSigner{email: email, key: rsaKey}, nil
}

// Email implements Signer.
func (s *ServiceAccountSigner) Email() string { return s.email }

// SignBytes implements Signer with RSA PKCS#1 v1.5 over SHA-256.
func (s *ServiceAccountSigner) SignBytes(ctx context.Context, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("downloads: sign payload: %w", err)
	}
	return sig, nil
}

func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("downloads: failed to decode PEM private key")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("downloads: private key is not RSA")
	}
	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("downloads: parse RSA private key: %w", err)
	}
	return rsaKey, nil
}

// SignedURLResolver signs gs:// locations as V4 GET URLs and passes the rest
// through like StaticResolver.
type SignedURLResolver struct {
	signer Signer
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// SignedURLOption customises a SignedURLResolver.
type SignedURLOption func(*SignedURLResolver)

// WithTTL sets the signed URL lifetime.
func WithTTL(ttl time.Duration) SignedURLOption {
	return func(r *SignedURLResolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithNow injects the signing clock.
func WithNow(now func() time.Time) SignedURLOption {
	return func(r *SignedURLResolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) SignedURLOption {
	return func(r *SignedURLResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewSignedURLResolver builds a resolver around signer.
func NewSignedURLResolver(signer Signer, opts ...SignedURLOption) (*SignedURLResolver, error) {
	if signer == nil || strings.TrimSpace(signer.Email()) == "" {
		return nil, errors.New("downloads: signer is required")
	}
	r := &SignedURLResolver{
		signer: signer,
		ttl:    DefaultSignedURLTTL,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// ResolveURL implements URLResolver.
func (r *SignedURLResolver) ResolveURL(ctx context.Context, location string) (string, error) {
	bucket, object, ok := ParseGSURL(location)
	if !ok {
		return passthrough(location)
	}
	signed, err := storage.SignedURL(bucket, object, &storage.SignedURLOptions{
		GoogleAccessID: r.signer.Email(),
		Method:         "GET",
		Scheme:         storage.SigningSchemeV4,
		Expires:        r.now().Add(r.ttl),
		SignBytes: func(payload []byte) ([]byte, error) {
			return r.signer.SignBytes(ctx, payload)
		},
	})
	if err != nil {
		return "", fmt.Errorf("downloads: sign %s: %w", location, err)
	}
	r.logger.Debug("signed download url", zap.String("bucket", bucket), zap.String("object", object))
	return signed, nil
}
