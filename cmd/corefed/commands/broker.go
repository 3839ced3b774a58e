package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fedcore/corefed/internal/action"
	"github.com/fedcore/corefed/internal/brokerserver"
	"github.com/fedcore/corefed/internal/comms"
	"github.com/fedcore/corefed/internal/comms/tcp"
	"github.com/fedcore/corefed/internal/kernel"
	"github.com/fedcore/corefed/internal/logger"
	"github.com/fedcore/corefed/pkg/config"
	"github.com/fedcore/corefed/pkg/ids"
	"github.com/fedcore/corefed/pkg/metrics"
)

var brokerWorkers int

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Run a broker kernel, routing ActionMessages between cores and sub-brokers",
	Long: `Start a broker process: the routing hub of a corefed federation tree.

A root broker (broker.root: true) has no parent and terminates
unroutable traffic. A non-root broker dials out to its parent at
broker.parent_address:broker.parent_port, the same way a core dials
out to its broker.

With broker.server_mode enabled, the broker also runs a BrokerServer on
the well-known bootstrap ports so joining cores/brokers can negotiate
a port before opening their real transport connection.`,
	RunE: runBroker,
}

func init() {
	brokerCmd.Flags().IntVar(&brokerWorkers, "workers", 4, "Number of dispatch worker goroutines")
}

func runBroker(cmd *cobra.Command, args []string) error {
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

	bc := cfg.Broker
	opts := []kernel.BrokerOption{
		kernel.WithBrokerActionMetrics(actionMetrics),
		kernel.WithBrokerKernelMetrics(kernelMetrics),
		kernel.WithBrokerCommsMetrics(commsMetrics),
	}

	var b *kernel.Broker
	if bc.Root {
		b = kernel.NewRootBroker(bc.Name, opts...)
	} else {
		if bc.CommsType != "tcp" {
			return fmt.Errorf("broker: non-root parent link currently only supports comms_type=tcp (got %q)", bc.CommsType)
		}
		parentAddr := fmt.Sprintf("%s:%d", bc.ParentAddress, bc.ParentPort)
		parentConn, err := tcp.Dial(parentAddr)
		if err != nil {
			return fmt.Errorf("broker: dial parent %s: %w", parentAddr, err)
		}
		parentIface := comms.New(comms.Dual, tcp.QueueFuncs(
			func(string) (*tcp.Conn, error) { return parentConn, nil },
			func(ids.RouteID) string { return parentAddr },
			nil,
		), commsMetrics)
		b = kernel.NewChildBroker(bc.Name, parentIface, opts...)
	}

	var bootstrap *brokerserver.Server
	if bc.ServerMode {
		bootstrap = brokerserver.NewServer(brokerserver.Config{})
	}

	var ln *tcp.Listener
	if bc.CommsType == "tcp" {
		ln, err = tcp.Listen(fmt.Sprintf(":%d", brokerserver.DefaultTCPPort+1))
		if err != nil {
			return fmt.Errorf("broker: listen for children: %w", err)
		}
		logger.Info("broker: listening for child connections", "addr", ln.Addr())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("broker: shutdown signal received")
		cancel()
	}()

	if bootstrap != nil {
		go func() {
			if err := bootstrap.Serve(ctx); err != nil {
				logger.Error("broker: bootstrap server error", "error", err)
			}
		}()
		defer bootstrap.Stop()
	}

	if ln != nil {
		go acceptChildren(ctx, ln, b, commsMetrics)
		defer ln.Close()
	}

	if cfg.Metrics.Enabled {
		metricsSrv := metrics.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port), "broker:"+bc.Name)
		go func() {
			if err := metricsSrv.Serve(ctx); err != nil {
				logger.Error("broker: metrics server error", "error", err)
			}
		}()
	}

	if err := writePidFile(GetDefaultPidFile()); err != nil {
		logger.Warn("broker: failed to write PID file", "error", err)
	}

	logger.Info("broker: starting", "name", bc.Name, "root", bc.Root)
	if err := b.Connect(ctx, brokerWorkers); err != nil && ctx.Err() == nil {
		return fmt.Errorf("broker: %w", err)
	}
	return nil
}

// acceptChildren admits dynamically joining cores or sub-brokers over
// ln, allocating a fresh route per connection and wiring it into b.
func acceptChildren(ctx context.Context, ln *tcp.Listener, b *kernel.Broker, commsMetrics metrics.CommsMetrics) {
	ln.Serve(func(conn net.Conn) {
		admissionID := uuid.New().String()[:8]
		route := b.NextRoute(kernel.RouteTarget{Address: conn.RemoteAddr().String()})
		c := tcp.NewConn(conn)
		iface := comms.New(comms.Dual, tcp.ServerQueueFuncs(c, route), commsMetrics)
		if err := b.AddChildAndConnect(route, iface); err != nil {
			logger.Error("broker: failed to admit child", "admission", admissionID, "route", route, "error", err)
			return
		}
		logger.Info("broker: admitted child", "admission", admissionID, "route", route, "addr", conn.RemoteAddr().String())
	})
	<-ctx.Done()
}
