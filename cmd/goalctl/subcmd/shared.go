package subcmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/goalctl/pkg/admin"
	"github.com/segmentio/goalctl/pkg/cli"
	"github.com/segmentio/goalctl/pkg/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type sharedOptions struct {
	brokerAddr    string
	clusterConfig string
	expandEnv     bool
	newBrokerIDs  []int
	output        string
	saslMechanism string
	saslPassword  string
	saslUsername  string
	snapshot      string
	tlsCACert     string
	tlsCert       string
	tlsEnabled    bool
	tlsKey        string
	tlsSkipVerify bool
	tlsServerName string
	topics        []string
	zkAddr        string
	zkPrefix      string
}

func (s sharedOptions) validate() error {
	var err error

	numSources := 0
	for _, source := range []string{s.snapshot, s.clusterConfig, s.brokerAddr + s.zkAddr} {
		if source != "" {
			numSources++
		}
	}
	if numSources == 0 {
		err = multierror.Append(
			err,
			errors.New("Must set either snapshot, cluster-config, broker-addr, or zk-addr"),
		)
	}
	if numSources > 1 {
		err = multierror.Append(
			err,
			errors.New("Can only set one of snapshot, cluster-config, or broker-addr/zk-addr"),
		)
	}
	if s.zkAddr != "" && s.brokerAddr != "" {
		err = multierror.Append(
			err,
			errors.New("Cannot set both zk-addr and broker-addr"),
		)
	}

	if _, formatErr := cli.ParseOutputFormat(s.output); formatErr != nil {
		err = multierror.Append(err, formatErr)
	}

	if s.clusterConfig != "" {
		clusterConfig, clusterConfigErr := config.LoadClusterFile(s.clusterConfig, s.expandEnv)
		if clusterConfigErr != nil {
			err = multierror.Append(err, clusterConfigErr)
		} else if validateErr := clusterConfig.Validate(); validateErr != nil {
			err = multierror.Append(err, validateErr)
		}
	}

	if s.snapshot != "" &&
		(len(s.topics) > 0 || len(s.newBrokerIDs) > 0) {
		log.Warn("Topic and new-broker flags are ignored when using a snapshot")
	}
	if s.clusterConfig != "" &&
		(s.zkPrefix != "" || s.tlsCACert != "" || s.tlsCert != "" || s.tlsKey != "" ||
			s.tlsServerName != "" || s.saslMechanism != "") {
		log.Warn("Broker and zk flags are ignored when using cluster-config")
	}
	if s.snapshot != "" || s.clusterConfig != "" {
		return err
	}

	useTLS := s.tlsEnabled || s.tlsCACert != "" || s.tlsCert != "" || s.tlsKey != ""
	useSASL := s.saslMechanism != "" || s.saslPassword != "" || s.saslUsername != ""

	if useTLS && s.zkAddr != "" {
		log.Warn("TLS flags are ignored accessing cluster via zookeeper")
	}
	if useSASL && s.zkAddr != "" {
		log.Warn("SASL flags are ignored accessing cluster via zookeeper")
	}
	if useSASL {
		if _, saslErr := admin.SASLNameToMechanism(s.saslMechanism); saslErr != nil {
			err = multierror.Append(err, saslErr)
		}
	}

	return err
}

func (s sharedOptions) outputFormat() cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s.output)
	if err != nil {
		// Already checked in validate
		return cli.OutputFormatTable
	}
	return format
}

func (s sharedOptions) getClusterSource() (cli.ClusterSource, error) {
	if s.snapshot != "" {
		return cli.ClusterSource{SnapshotPath: s.snapshot}, nil
	}

	var clusterConfig config.ClusterConfig

	if s.clusterConfig != "" {
		var err error
		clusterConfig, err = config.LoadClusterFile(s.clusterConfig, s.expandEnv)
		if err != nil {
			return cli.ClusterSource{}, err
		}
	} else {
		log.Warn(
			"No cluster config set; brokers will have no capacity and partitions no load, " +
				"so only count-based goals are meaningful",
		)
		clusterConfig = s.adhocClusterConfig()
	}

	clusterConfig.Spec.NewBrokerIDs = append(clusterConfig.Spec.NewBrokerIDs, s.newBrokerIDs...)

	return cli.ClusterSource{
		ClusterConfig: &clusterConfig,
		Topics:        s.topics,
	}, nil
}

func (s sharedOptions) adhocClusterConfig() config.ClusterConfig {
	clusterConfig := config.ClusterConfig{
		Meta: config.ClusterMeta{
			Name: "adhoc",
		},
	}

	if s.zkAddr != "" {
		clusterConfig.Spec.ZKAddrs = []string{s.zkAddr}
		clusterConfig.Spec.ZKPrefix = s.zkPrefix
		return clusterConfig
	}

	clusterConfig.Spec.UseBrokerAdmin = true
	clusterConfig.Spec.BootstrapAddrs = []string{s.brokerAddr}
	clusterConfig.Spec.TLS = config.TLSConfig{
		Enabled:    s.tlsEnabled || s.tlsCACert != "" || s.tlsCert != "" || s.tlsKey != "",
		CACertPath: s.tlsCACert,
		CertPath:   s.tlsCert,
		KeyPath:    s.tlsKey,
		ServerName: s.tlsServerName,
		SkipVerify: s.tlsSkipVerify,
	}
	clusterConfig.Spec.SASL = config.SASLConfig{
		Enabled:   s.saslMechanism != "" || s.saslPassword != "" || s.saslUsername != "",
		Mechanism: s.saslMechanism,
		Username:  s.saslUsername,
		Password:  s.saslPassword,
	}
	return clusterConfig
}

func addSharedFlags(cmd *cobra.Command, options *sharedOptions) {
	cmd.PersistentFlags().StringVarP(
		&options.brokerAddr,
		"broker-addr",
		"b",
		"",
		"Broker address",
	)
	cmd.PersistentFlags().StringVar(
		&options.clusterConfig,
		"cluster-config",
		os.Getenv("GOALCTL_CLUSTER_CONFIG"),
		"Cluster config",
	)
	cmd.PersistentFlags().BoolVarP(
		&options.expandEnv,
		"expand-env",
		"",
		false,
		"Expand environment in cluster and optimizer configs",
	)
	cmd.PersistentFlags().IntSliceVar(
		&options.newBrokerIDs,
		"new-brokers",
		[]int{},
		"IDs of newly-added brokers that should receive load",
	)
	cmd.PersistentFlags().StringVarP(
		&options.output,
		"output",
		"o",
		string(cli.OutputFormatTable),
		"Output format (choices: table, json, or yaml)",
	)
	cmd.PersistentFlags().StringVar(
		&options.saslMechanism,
		"sasl-mechanism",
		"",
		"SASL mechanism if using SASL (choices: PLAIN, SCRAM-SHA-256, or SCRAM-SHA-512)",
	)
	cmd.PersistentFlags().StringVar(
		&options.saslPassword,
		"sasl-password",
		os.Getenv("GOALCTL_SASL_PASSWORD"),
		"SASL password if using SASL",
	)
	cmd.PersistentFlags().StringVar(
		&options.saslUsername,
		"sasl-username",
		os.Getenv("GOALCTL_SASL_USERNAME"),
		"SASL username if using SASL",
	)
	cmd.PersistentFlags().StringVar(
		&options.snapshot,
		"snapshot",
		"",
		"Path to a cluster snapshot to use instead of a live cluster",
	)
	cmd.PersistentFlags().StringVar(
		&options.tlsCACert,
		"tls-ca-cert",
		"",
		"Path to client CA cert PEM file if using TLS",
	)
	cmd.PersistentFlags().StringVar(
		&options.tlsCert,
		"tls-cert",
		"",
		"Path to client cert PEM file if using TLS",
	)
	cmd.PersistentFlags().BoolVar(
		&options.tlsEnabled,
		"tls-enabled",
		false,
		"Use TLS for communication with brokers",
	)
	cmd.PersistentFlags().StringVar(
		&options.tlsKey,
		"tls-key",
		"",
		"Path to client private key PEM file if using TLS",
	)
	cmd.PersistentFlags().StringVar(
		&options.tlsServerName,
		"tls-server-name",
		"",
		"Server name to use for TLS cert verification",
	)
	cmd.PersistentFlags().BoolVar(
		&options.tlsSkipVerify,
		"tls-skip-verify",
		false,
		"Skip hostname verification when using TLS",
	)
	cmd.PersistentFlags().StringSliceVar(
		&options.topics,
		"topics",
		[]string{},
		"Topics to model; all topics are modeled if unset",
	)
	cmd.PersistentFlags().StringVarP(
		&options.zkAddr,
		"zk-addr",
		"z",
		"",
		"ZooKeeper address",
	)
	cmd.PersistentFlags().StringVar(
		&options.zkPrefix,
		"zk-prefix",
		"",
		"Prefix for cluster-related nodes in zk",
	)
}

func loadOptimizerConfig(
	path string,
	expandEnv bool,
	goalsOverride []string,
) (config.OptimizerConfig, error) {
	optimizerConfig := config.OptimizerConfig{
		Meta: config.ResourceMeta{
			Name:    "default",
			Cluster: "any",
		},
	}

	if path != "" {
		var err error
		optimizerConfig, err = config.LoadOptimizerFile(path, expandEnv)
		if err != nil {
			return config.OptimizerConfig{}, err
		}
	}
	if len(goalsOverride) > 0 {
		optimizerConfig.Spec.Goals = goalsOverride
	}

	optimizerConfig.SetDefaults()
	return optimizerConfig, optimizerConfig.Validate()
}

func newCLIRunner(options sharedOptions) *cli.CLIRunner {
	return cli.NewCLIRunner(log.Infof, os.Stdout, options.outputFormat(), !noSpinner)
}

// signalContext returns a context that's cancelled on the first interrupt, so that runs can
// stop between goals and still report what they have.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Warn("Interrupted, stopping")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
