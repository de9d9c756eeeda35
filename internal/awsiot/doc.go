// Package awsiot provides the AWS-facing collaborators for the explorer:
// endpoint discovery and credential resolution.
//
// Both are consumed exactly once at startup. They are thin adapters over
// the AWS SDK and carry no session state of their own; the messaging core
// in internal/transport and internal/session never talks to the SDK
// directly, it receives a hostname and a Credentials value.
package awsiot
