// IoT Explorer - interactive MQTT over WebSocket client for AWS IoT Core.
//
// The explorer authenticates with SigV4 presigned WebSocket URLs derived
// from the standard AWS credential chain, connects to the account's data
// endpoint on port 443, and drives an interactive publish/subscribe loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/wrenhall/iot-explorer/internal/awsiot"
	"github.com/wrenhall/iot-explorer/internal/infrastructure/config"
	"github.com/wrenhall/iot-explorer/internal/infrastructure/logging"
	"github.com/wrenhall/iot-explorer/internal/session"
	"github.com/wrenhall/iot-explorer/internal/transport"
)

// Default configuration file path
const defaultConfigPath = "configs/explorer.yaml"

var opts struct {
	ConfigPath  string
	Region      string
	Endpoint    string
	ClientID    string
	MQTTVersion string
	Debug       bool
}

func main() {
	app := &cli.App{
		Name:    "iotexplorer",
		Usage:   "interactive MQTT over WebSocket explorer for AWS IoT Core",
		Version: commitHash(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to the YAML configuration file",
				Value:       defaultConfigPath,
				EnvVars:     []string{"IOTEXPLORER_CONFIG"},
				Destination: &opts.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "region",
				Usage:       "AWS region (overrides config and shared config)",
				Destination: &opts.Region,
			},
			&cli.StringFlag{
				Name:        "endpoint",
				Usage:       "IoT data endpoint hostname (skips DescribeEndpoint)",
				Destination: &opts.Endpoint,
			},
			&cli.StringFlag{
				Name:        "client-id",
				Usage:       "explicit MQTT client identifier",
				Destination: &opts.ClientID,
			},
			&cli.StringFlag{
				Name:        "mqtt-version",
				Usage:       "requested MQTT protocol version (3.1.1 or 5.0)",
				Destination: &opts.MQTTVersion,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Aliases:     []string{"d"},
				Usage:       "enable debug logging and MQTT wire tracing",
				Destination: &opts.Debug,
			},
		},
		Action: func(c *cli.Context) error {
			// Cancel on Ctrl+C or SIGTERM so the loop can disconnect
			// cleanly before exit.
			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(cfg)

	log := logging.New(cfg.Logging, commitHash())
	logging.EnableMQTTTrace(log, opts.Debug)

	version, err := transport.ParseVersion(cfg.MQTT.Version)
	if err != nil {
		return err
	}

	clientID := cfg.MQTT.ClientID
	if clientID == "" {
		clientID = session.GenerateClientID(cfg.MQTT.ClientIDPrefix)
	} else if err := session.ValidateClientID(clientID); err != nil {
		return err
	}

	sess, err := awsiot.NewSession(cfg.AWS.Region)
	if err != nil {
		return fmt.Errorf("initialising AWS session: %w", err)
	}

	creds, err := awsiot.LoadCredentials(ctx, sess)
	if err != nil {
		fmt.Fprintln(os.Stderr, awsiot.RemediationHint)
		return err
	}
	log.Info("AWS credentials resolved", "credentials", creds.String())

	endpoint := cfg.AWS.Endpoint
	if endpoint == "" {
		endpoint, err = awsiot.DescribeEndpoint(ctx, sess)
		if err != nil {
			return fmt.Errorf("resolving IoT endpoint: %w", err)
		}
	}
	log.Info("using IoT data endpoint", "endpoint", endpoint)

	conn, err := transport.Dial(ctx, transport.Options{
		Endpoint:       endpoint,
		ClientID:       clientID,
		Version:        version,
		Signer:         transport.NewSigner(creds),
		KeepAlive:      cfg.GetKeepAlive(),
		ConnectTimeout: cfg.GetConnectTimeout(),
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", endpoint, err)
	}

	fmt.Printf("connected to %s\n", endpoint)
	fmt.Printf("  %s\n", conn.Describe())
	fmt.Printf("  client id: %s\n", clientID)
	fmt.Printf("  %s\n", creds)

	engine := session.New(conn, session.Options{
		ClientID:    clientID,
		HistorySize: cfg.Session.HistorySize,
		TestTopic:   cfg.Session.TestTopic,
		Out:         os.Stdout,
		Logger:      log,
	})

	return engine.Run(ctx, os.Stdin)
}

// applyFlagOverrides applies command-line flags over file and environment
// values. Flags win because they are the most explicit operator intent.
func applyFlagOverrides(cfg *config.Config) {
	if opts.Region != "" {
		cfg.AWS.Region = opts.Region
	}
	if opts.Endpoint != "" {
		cfg.AWS.Endpoint = opts.Endpoint
	}
	if opts.ClientID != "" {
		cfg.MQTT.ClientID = opts.ClientID
	}
	if opts.MQTTVersion != "" {
		cfg.MQTT.Version = opts.MQTTVersion
	}
	if opts.Debug {
		cfg.Logging.Level = "debug"
	}
}

// commitHash resolves the build's VCS revision for the version banner.
func commitHash() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
		return info.Main.Version
	}
	return "unknown"
}
