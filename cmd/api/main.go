package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tableflow/pkg/logger"
	"tableflow/pkg/restaurant"
	"tableflow/pkg/server"
)

func main() {
	logger.Init("tableflow")
	defer logger.Log.Sync()
	log := logger.Log

	godotenv.Load()
	addr := envOr("LISTEN_ADDR", ":8080")
	adminAddr := envOr("ADMIN_ADDR", ":9090")
	tables := envInt(log, "TABLES", 150)

	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatal("init tracing", zap.Error(err))
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rest := restaurant.New(uint32(tables))
	srv := server.New(server.NewRouter(rest), log)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("listen", zap.Error(err))
	}
	admin := &http.Server{Addr: adminAddr, Handler: adminRouter()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx, ln) })
	g.Go(func() error {
		if err := admin.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return admin.Shutdown(sctx)
	})

	log.Info("listening",
		zap.String("addr", addr),
		zap.String("admin_addr", adminAddr),
		zap.Int("tables", tables),
	)
	if err := g.Wait(); err != nil {
		log.Fatal("server", zap.Error(err))
	}
	log.Info("shut down")
}

// adminRouter serves the observability surface: metrics and API docs.
func adminRouter() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	return r
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(log *zap.Logger, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := parsePositive(v)
	if err != nil {
		log.Fatal("bad value for "+key, zap.String("value", v), zap.Error(err))
	}
	return n
}

// parsePositive parses a strictly positive integer. TABLES feeds a uint32
// conversion and a slice allocation, so zero and negatives are rejected
// here rather than wrapping around downstream.
func parsePositive(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
