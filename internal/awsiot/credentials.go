package awsiot

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
)

// Domain-specific errors. Use errors.Is() to check for these in calling code.
var (
	// ErrNoCredentials is returned when the SDK chain yields no usable
	// credential tuple. The caller should print RemediationHint.
	ErrNoCredentials = errors.New("awsiot: no AWS credentials found")

	// ErrNoRegion is returned when no region could be resolved from the
	// environment, shared config, or explicit override.
	ErrNoRegion = errors.New("awsiot: no AWS region configured")
)

// RemediationHint lists the ways an operator can supply credentials.
// Printed verbatim when startup fails on ErrNoCredentials.
const RemediationHint = `Set credentials using one of these methods:
  - AWS CLI: aws configure
  - Environment variables: AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
  - IAM roles (if running on EC2)`

// Credentials is the signing tuple for one session attempt. Immutable once
// obtained; re-derivation requires a fresh LoadCredentials call.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
}

// Complete reports whether both the access key and the secret key are
// present. Signing must not proceed otherwise.
func (c Credentials) Complete() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// String renders the tuple with the secret material redacted.
// Safe to log.
func (c Credentials) String() string {
	access := "none"
	if n := len(c.AccessKeyID); n > 0 {
		if n > 10 {
			access = c.AccessKeyID[:10] + "..."
		} else {
			access = c.AccessKeyID
		}
	}
	token := "not present"
	if c.SessionToken != "" {
		token = "present"
	}
	return fmt.Sprintf("access_key=%s session_token=%s region=%s", access, token, c.Region)
}

// NewSession builds an AWS SDK session honouring shared config files
// (~/.aws/config) and an optional region override.
func NewSession(region string) (*session.Session, error) {
	opts := session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}
	if region != "" {
		opts.Config = aws.Config{Region: aws.String(region)}
	}

	sess, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("awsiot: creating session: %w", err)
	}
	return sess, nil
}

// LoadCredentials resolves the SDK credential chain once and returns the
// signing tuple for this session attempt.
//
// The chain covers environment variables, shared credential files, and
// instance roles, in the SDK's documented order. An empty access key or
// secret key yields ErrNoCredentials; a missing region yields ErrNoRegion.
func LoadCredentials(ctx context.Context, sess *session.Session) (Credentials, error) {
	value, err := sess.Config.Credentials.GetWithContext(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %w", ErrNoCredentials, err)
	}

	creds := Credentials{
		AccessKeyID:     value.AccessKeyID,
		SecretAccessKey: value.SecretAccessKey,
		SessionToken:    value.SessionToken,
		Region:          aws.StringValue(sess.Config.Region),
	}

	if !creds.Complete() {
		return Credentials{}, ErrNoCredentials
	}
	if creds.Region == "" {
		return Credentials{}, ErrNoRegion
	}

	return creds, nil
}
