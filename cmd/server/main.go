// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

// Command server runs the biometric capture gateway: the gRPC frame
// ingestion front, the analysis bus bridge, the result and signaling
// WebSocket endpoints and the archive writer, in one process.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/archive"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/breaker"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/bus"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/capturerpc"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/health"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/ingest"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/logging"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/metrics"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/objstore"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/signaling"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/internal/viewer"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/pkg/config"
	"github.com/wso2/biometric-platform/gateway/capture-gateway/pkg/core"
)

const version = "1.0.0"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level)
	logger.Info("capture gateway starting",
		"version", version,
		"bus_driver", cfg.Bus.Driver,
		"rpc_port", cfg.RPC.Port,
		"http_port", cfg.HTTP.Port,
	)
	logger.Info("retention policy loaded",
		"raw_days", cfg.Retention.RawDays,
		"derived_days", cfg.Retention.DerivedDays,
		"audit_days", cfg.Retention.AuditDays,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := bus.Dial(ctx, cfg.Bus.Driver, cfg.Bus.URL, logger)
	if err != nil {
		logger.Error("bus dial failed", "driver", cfg.Bus.Driver, "url", cfg.Bus.URL, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	m := metrics.New()
	gate := breaker.New(cfg.Breaker.Timeout.Std(), cfg.Breaker.ProbeInterval.Std())
	client := bus.NewClient(conn, m, logger)

	store, err := objstore.NewFS(cfg.Archive.Root)
	if err != nil {
		logger.Error("archive store init failed", "root", cfg.Archive.Root, "error", err)
		os.Exit(1)
	}

	results := viewer.NewEndpoint(logger)
	relay := signaling.NewRelay(logger)
	archiver := archive.NewHandler(store, m, logger)

	if err := client.SubscribeResults(func(resp *core.AnalyzeResponse) {
		gate.RecordResult()
		m.ResultReceived()
		results.Broadcast(resp)
	}); err != nil {
		logger.Error("result subscription failed", "error", err)
		os.Exit(1)
	}
	if err := client.SubscribeArchive(archiver.HandleMessage); err != nil {
		logger.Error("archive subscription failed", "error", err)
		os.Exit(1)
	}
	if _, err := archiver.ScanExisting(); err != nil {
		logger.Warn("archive store scan failed", "error", err)
	}

	svc := ingest.NewService(gate, client, m, logger, logging.NewFrameLogger(logger))

	grpcServer := grpc.NewServer(grpc.ForceServerCodec(capturerpc.Codec()))
	capturerpc.RegisterCaptureServer(grpcServer, svc)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.RPC.Port))
	if err != nil {
		logger.Error("rpc listen failed", "port", cfg.RPC.Port, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("rpc server listening", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("rpc server stopped", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(m)

	mux := http.NewServeMux()
	health.NewHandler(client, gate, version).Register(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/ws/results", results)
	mux.Handle("/ws/signaling", relay)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: mux,
	}
	go func() {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}

	logger.Info("capture gateway stopped")
}
