package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/comms"
	"github.com/fedcore/corefed/internal/comms/tcp"
	"github.com/fedcore/corefed/internal/comms/udp"
	"github.com/fedcore/corefed/internal/kernel"
	"github.com/fedcore/corefed/internal/logger"
	"github.com/fedcore/corefed/pkg/config"
	"github.com/fedcore/corefed/pkg/ids"
	"github.com/fedcore/corefed/pkg/metrics"
	"github.com/spf13/cobra"
)

var coreWorkers int

var coreCmd = &cobra.Command{
	Use:   "core",
	Short: "Run a core kernel, hosting the federates connected to it",
	Long: `Start a core process: the federate-facing gateway of a corefed
federation. A core connects outward to a broker at
core.broker_address:core.broker_port, then owns one TimeCoordinator
per federate registered against it and dispatches publications,
messages, and timing traffic between its federates and the rest of
the federation.`,
	RunE: runCore,
}

func init() {
	coreCmd.Flags().IntVar(&coreWorkers, "workers", 4, "Number of dispatch worker goroutines")
}

func runCore(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}
	action.MaxFrameSize = cfg.MaxMessageSize

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}
	actionMetrics := metrics.NewActionMetrics()
	kernelMetrics := metrics.NewKernelMetrics()
	commsMetrics := metrics.NewCommsMetrics()

	cc := cfg.Core
	iface, err := dialBroker(cc, commsMetrics)
	if err != nil {
		return err
	}

	c := kernel.NewCore(cc.Name, iface,
		kernel.WithActionMetrics(actionMetrics),
		kernel.WithKernelMetrics(kernelMetrics),
		kernel.WithCommsMetrics(commsMetrics),
	)

	fedID := ids.GlobalFederateId(cfg.Federate.ID)
	if err := c.RegisterFederate(fedID, cfg.Federate.Name, toTimecoordConfig(cfg.Federate), func(_ ids.GlobalFederateId, msg *action.Message) {
		c.TransmitUp(msg)
	}); err != nil {
		return fmt.Errorf("core: register federate %q: %w", cfg.Federate.Name, err)
	}

	var watcher *config.Watcher
	if configPath := resolvedConfigPath(); configPath != "" {
		federateCfg := cfg.Federate
		watcher, err = config.Watch(configPath, func(reloaded *config.Config) {
			msgs := federateConfigUpdateMessages(federateCfg, reloaded.Federate)
			if len(msgs) == 0 {
				return
			}
			coord := c.Coordinator(fedID)
			for _, msg := range msgs {
				coord.ProcessConfigUpdateMessage(msg)
			}
			federateCfg = reloaded.Federate
			logger.Info("core: applied hot-reloaded federate time parameters", "federate", federateCfg.Name, "changes", len(msgs))
		})
		if err != nil {
			logger.Warn("core: config hot-reload disabled", "error", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if watcher != nil {
		defer watcher.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("core: shutdown signal received")
		cancel()
	}()

	if cfg.Metrics.Enabled {
		metricsSrv := metrics.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port), "core:"+cc.Name)
		go func() {
			if err := metricsSrv.Serve(ctx); err != nil {
				logger.Error("core: metrics server error", "error", err)
			}
		}()
	}

	if err := writePidFile(GetDefaultPidFile()); err != nil {
		logger.Warn("core: failed to write PID file", "error", err)
	}

	logger.Info("core: starting", "name", cc.Name, "broker", fmt.Sprintf("%s:%d", cc.BrokerAddress, cc.BrokerPort))
	if err := c.Connect(ctx, coreWorkers); err != nil && ctx.Err() == nil {
		return fmt.Errorf("core: %w", err)
	}
	return nil
}

// resolvedConfigPath returns the on-disk path cfg was actually loaded
// from, for a config.Watcher to watch. Returns "" when the running
// config came from defaults alone, in which case there is nothing on
// disk to hot-reload.
func resolvedConfigPath() string {
	if path := GetConfigFile(); path != "" {
		return path
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return ""
}

// dialBroker opens the core's single upstream transport link to its
// broker, per core.comms_type. Port negotiation against a BrokerServer
// (comms.Network.NegotiatePort) is available to embedders that need
// auto-allocated ports; the CLI instead uses core.broker_port directly,
// matching the common case of a broker with a fixed, configured port.
func dialBroker(cc config.CoreConfig, commsMetrics metrics.CommsMetrics) (*comms.Interface, error) {
	addr := fmt.Sprintf("%s:%d", cc.BrokerAddress, cc.BrokerPort)

	switch cc.CommsType {
	case "tcp":
		conn, err := tcp.Dial(addr)
		if err != nil {
			return nil, fmt.Errorf("core: dial broker %s: %w", addr, err)
		}
		return comms.New(comms.Dual, tcp.QueueFuncs(
			func(string) (*tcp.Conn, error) { return conn, nil },
			func(ids.RouteID) string { return addr },
			nil,
		), commsMetrics), nil

	case "udp":
		conn, err := udp.Listen(":0")
		if err != nil {
			return nil, fmt.Errorf("core: bind udp socket: %w", err)
		}
		return comms.New(comms.Dual, udp.QueueFuncs(
			conn,
			func(ids.RouteID) string { return addr },
		), commsMetrics), nil

	case "inproc":
		return nil, fmt.Errorf("core: comms_type=inproc is a same-process testing transport and is not supported for the corefed core command; use tcp or udp")

	default:
		return nil, fmt.Errorf("core: unsupported comms_type %q", cc.CommsType)
	}
}
