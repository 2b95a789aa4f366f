package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admin-service/internal/factory"
	"admin-service/internal/handler"
	"admin-service/internal/util"
)

func main() {
	f, err := factory.NewFactory()
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	cfg := f.Config()

	adminService := f.ServiceFactory().AdminService()
	adminHandler := handler.NewAdminHandler(adminService, util.Get(), cfg.Server.EnableTLS)
	router := handler.NewRouter(adminHandler, util.Get(), f.HealthCheck)

	serverAddr := cfg.GetServerAddress()
	if cfg.Server.EnableTLS {
		serverAddr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.TLSPort)
	}

	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.Server.EnableTLS {
		tlsConfig, err := f.TLSManager().GetTLSConfig()
		if err != nil {
			util.Fatal("Failed to configure TLS", util.ErrorField(err))
		}
		server.TLSConfig = tlsConfig
	}

	go func() {
		var err error
		if cfg.Server.EnableTLS {
			util.Info("Starting HTTPS server",
				util.String("environment", cfg.Environment),
				util.String("address", server.Addr))
			err = server.ListenAndServeTLS("", "")
		} else {
			util.Warn("Starting HTTP server - TLS is disabled",
				util.String("environment", cfg.Environment),
				util.String("address", server.Addr))
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			util.Fatal("Server failed to start", util.ErrorField(err))
		}
	}()

	util.Info("Server started",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.String("address", server.Addr))

	waitForShutdown(f, server)
}

func waitForShutdown(f *factory.Factory, server *http.Server) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-signalChan
	util.Info("Received shutdown signal", util.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		util.Error("Failed to shutdown server gracefully", util.ErrorField(err))
	} else {
		util.Info("Server shutdown completed")
	}
	f.Close()
}
