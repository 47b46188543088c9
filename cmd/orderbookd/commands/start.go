package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/abci/server"
	"golang.org/x/sync/errgroup"

	"github.com/tendermint/orderbook/app"
	cfg "github.com/tendermint/orderbook/config"
	"github.com/tendermint/orderbook/eventsink"
	"github.com/tendermint/orderbook/orderbook"
)

const shutdownTimeout = 5 * time.Second

// NewStartCmd returns the command serving the application to Tendermint.
func NewStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the ABCI application",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runNode(ctx, config)
		},
	}

	cmd.Flags().String("abci.laddr", config.ABCI.ListenAddress, "ABCI server listen address")
	cmd.Flags().String("abci.transport", config.ABCI.Transport, "ABCI transport (socket | grpc)")
	cmd.Flags().String("db-backend", config.DBBackend, "database backend: goleveldb | memdb | pebbledb")
	cmd.Flags().String("db-dir", config.DBPath, "database directory")
	cmd.Flags().StringSlice("event-sink.sinks", config.EventSink.Sinks, "event sinks: null | kafka | psql")
	cmd.Flags().Bool("instrumentation.prometheus", config.Instrumentation.Prometheus, "serve prometheus metrics")
	return cmd
}

func runNode(ctx context.Context, conf *cfg.Config) error {
	db, err := cfg.DefaultDBProvider(&cfg.DBContext{ID: "orderbook", Config: conf})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	metrics := orderbook.NopMetrics()
	if conf.Instrumentation.Prometheus {
		metrics = orderbook.PrometheusMetrics(conf.Instrumentation.Namespace)
	}

	sink, err := newEventSink(conf)
	if err != nil {
		db.Close()
		return err
	}
	publisher := eventsink.NewPublisher(sink, conf.EventSink.BufferSize, conf.EventSink.WriteTimeout,
		logger.With("module", "events"))

	application, err := app.NewApplication(db,
		app.WithLogger(logger.With("module", "app")),
		app.WithMetrics(metrics),
		app.WithPublisher(publisher),
		app.WithQueryDepthLimit(conf.Engine.QueryDepthLimit),
	)
	if err != nil {
		sink.Close()
		db.Close()
		return err
	}

	srv, err := server.NewServer(conf.ABCI.ListenAddress, conf.ABCI.Transport, application)
	if err != nil {
		sink.Close()
		application.Close()
		return err
	}
	srv.SetLogger(logger.With("module", "abci-server"))

	if err := publisher.Start(); err != nil {
		sink.Close()
		application.Close()
		return fmt.Errorf("failed to start event publisher: %w", err)
	}
	if err := srv.Start(); err != nil {
		_ = publisher.Stop()
		application.Close()
		return fmt.Errorf("failed to start ABCI server: %w", err)
	}
	logger.Info("Started ABCI server", "laddr", conf.ABCI.ListenAddress, "transport", conf.ABCI.Transport)

	g, ctx := errgroup.WithContext(ctx)
	if conf.Instrumentation.Prometheus {
		metricsSrv := newMetricsServer(conf.Instrumentation)
		g.Go(func() error {
			logger.Info("Serving metrics", "laddr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return metricsSrv.Shutdown(sctx)
		})
	}
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-srv.Quit():
		}
		logger.Info("Stopping")
		// the server goes first, so no block commits while the publisher drains
		if srv.IsRunning() {
			if err := srv.Stop(); err != nil {
				logger.Error("Failed to stop ABCI server", "err", err)
			}
		}
		if err := publisher.Stop(); err != nil {
			logger.Error("Failed to stop event publisher", "err", err)
		}
		return application.Close()
	})
	return g.Wait()
}

// newEventSink builds the sinks named in the config. Several sinks are
// written in turn.
func newEventSink(conf *cfg.Config) (sink eventsink.Sink, err error) {
	sinkTypes, err := conf.EventSink.Types()
	if err != nil {
		return nil, err
	}

	var sinks eventsink.MultiSink
	defer func() {
		if err != nil {
			sinks.Close()
		}
	}()
	for _, t := range sinkTypes {
		switch t {
		case eventsink.NULL:
			return eventsink.NullSink{}, nil

		case eventsink.KAFKA:
			sinks = append(sinks, eventsink.NewKafkaSink(
				conf.EventSink.KafkaBrokers, conf.EventSink.KafkaTopic, conf.EventSink.KafkaBatchTimeout))

		case eventsink.PSQL:
			ps, err := eventsink.NewPSQLSink(conf.EventSink.PsqlConn, conf.ChainID)
			if err != nil {
				return nil, fmt.Errorf("creating psql sink: %w", err)
			}
			sinks = append(sinks, ps)
			if err := ps.Migrate(); err != nil {
				return nil, fmt.Errorf("migrating psql sink: %w", err)
			}
		}
	}
	switch len(sinks) {
	case 0:
		return eventsink.NullSink{}, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}

func newMetricsServer(conf *cfg.InstrumentationConfig) *http.Server {
	return &http.Server{
		Addr: conf.PrometheusListenAddr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: conf.MaxOpenConnections},
			),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
