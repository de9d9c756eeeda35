// Package transport maintains the MQTT-over-WebSocket connection to AWS IoT.
//
// This package manages:
//   - SigV4 presigning of the wss:// connection URL
//   - Connection establishment with protocol version fallback (5.0 → 3.1.1)
//   - Automatic reconnection with signature refresh
//   - Lifecycle signals (interrupted, resumed) as channel events
//   - Blocking subscribe/publish/unsubscribe with broker acknowledgement
//
// # Authentication
//
// Connections authenticate with a presigned URL rather than an MQTT
// username/password: the query string carries a SigV4 signature over a GET
// of /mqtt, scoped to the iotdevicegateway service. Signatures expire after
// five minutes, so every reconnect attempt derives a fresh URL.
//
// # Concurrency
//
// The underlying library runs its own dispatch goroutines. Message handlers
// and lifecycle events arrive on those goroutines, concurrent with any
// foreground subscribe or publish on the same connector. Lifecycle signals
// are exposed as values on a channel (Events) so the consumer decides where
// to handle them.
package transport
