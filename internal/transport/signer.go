package transport

import (
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go/aws/credentials"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"

	"github.com/wrenhall/iot-explorer/internal/awsiot"
)

const (
	// signingService is the service name AWS IoT expects in the SigV4
	// credential scope for WebSocket connections.
	signingService = "iotdevicegateway"

	// signatureTTL is how long a presigned URL stays valid. AWS IoT's
	// documented maximum for device gateway URLs is 5 minutes.
	signatureTTL = 5 * time.Minute

	// wssPath is the fixed WebSocket upgrade path on the data endpoint.
	wssPath = "/mqtt"
)

// Signer derives presigned WebSocket URLs from a credential tuple.
//
// A Signer holds no state beyond the credentials and may be reused for any
// number of connection attempts; each SignURL call produces a fresh
// signature. This matters for automatic reconnects, where re-dialing a
// stale URL would be rejected once the signature expires.
type Signer struct {
	creds awsiot.Credentials
}

// NewSigner wraps a credential tuple. SignURL fails with
// ErrIncompleteCredentials if either key is missing.
func NewSigner(creds awsiot.Credentials) *Signer {
	return &Signer{creds: creds}
}

// SignURL produces the presigned wss:// URL for the given endpoint at the
// given signing time.
//
// The signature covers a GET of /mqtt with an empty payload, scoped to the
// iotdevicegateway service in the credential's region. A session token, when
// present, is appended after signing; AWS IoT requires the token excluded
// from the signature itself for presigned device gateway URLs.
func (s *Signer) SignURL(endpoint string, at time.Time) (string, error) {
	if !s.creds.Complete() {
		return "", ErrIncompleteCredentials
	}

	req, err := http.NewRequest(http.MethodGet, "https://"+endpoint+wssPath, nil)
	if err != nil {
		return "", err
	}

	// Sign with the token stripped; it is appended below.
	static := credentials.NewStaticCredentials(s.creds.AccessKeyID, s.creds.SecretAccessKey, "")
	signer := v4.NewSigner(static)

	if _, err := signer.Presign(req, nil, signingService, s.creds.Region, signatureTTL, at); err != nil {
		return "", err
	}

	if s.creds.SessionToken != "" {
		req.URL.RawQuery += "&X-Amz-Security-Token=" + url.QueryEscape(s.creds.SessionToken)
	}

	req.URL.Scheme = "wss"
	return req.URL.String(), nil
}
