package awsiot

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/iot"
)

// endpointType selects the ATS-signed data endpoint, the recommended type
// for all new AWS IoT integrations.
const endpointType = "iot:Data-ATS"

// DescribeEndpoint looks up the account's IoT data endpoint hostname.
// Consumed once before connecting; failure here aborts startup.
func DescribeEndpoint(ctx context.Context, sess *session.Session) (string, error) {
	svc := iot.New(sess)

	out, err := svc.DescribeEndpointWithContext(ctx, &iot.DescribeEndpointInput{
		EndpointType: aws.String(endpointType),
	})
	if err != nil {
		return "", fmt.Errorf("awsiot: describing endpoint: %w", err)
	}

	endpoint := aws.StringValue(out.EndpointAddress)
	if endpoint == "" {
		return "", fmt.Errorf("awsiot: describe endpoint returned an empty address")
	}

	return endpoint, nil
}
