package server

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/solatis/siren/internal/catalog"
	"github.com/solatis/siren/internal/core/api"
	"github.com/solatis/siren/internal/core/config"
	"github.com/solatis/siren/internal/core/db"
)

func newTestService(t *testing.T) *api.Service {
	t.Helper()
	database, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if _, err := db.MigrateUp(database); err != nil {
		t.Fatalf("db.MigrateUp() error = %v", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		t.Fatalf("db.LoadQueries() error = %v", err)
	}
	resolver, err := catalog.NewResolver(nil)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	service, err := api.NewService(catalog.NewStore(queries, nil), resolver, nil)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return service
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return lis
}

func TestNewGRPCServer_RequiresService(t *testing.T) {
	if _, err := NewGRPCServer(config.GRPCConfig{}, nil, nil, nil); err == nil {
		t.Errorf("NewGRPCServer(nil service) error = nil")
	}
}

func TestGRPCServer_HealthAndShutdown(t *testing.T) {
	srv, err := NewGRPCServer(config.GRPCConfig{RequestTimeout: time.Second}, newTestService(t), nil, nil)
	if err != nil {
		t.Fatalf("NewGRPCServer() error = %v", err)
	}
	lis := listen(t)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient() error = %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: api.EntityServiceName})
	if err != nil {
		t.Fatalf("health Check() error = %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}

	if _, err := api.GetEntity(ctx, conn, "/courses"); err != nil {
		t.Errorf("GetEntity() error = %v", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve() returned %v after graceful stop", err)
	}
}

func TestHTTPServer_ServeAndShutdown(t *testing.T) {
	service := newTestService(t)
	srv, err := NewHTTPServer(config.HTTPConfig{ReadTimeout: time.Second, WriteTimeout: time.Second}, service.Handler(nil), nil)
	if err != nil {
		t.Fatalf("NewHTTPServer() error = %v", err)
	}
	lis := listen(t)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(lis) }()

	resp, err := http.Get("http://" + lis.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve() = %v, want nil after shutdown", err)
	}
}

func TestTimeoutInterceptor(t *testing.T) {
	intercept := timeoutInterceptor(time.Minute)
	_, err := intercept(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req interface{}) (interface{}, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("handler context has no deadline")
		}
		return nil, nil
	})
	if err != nil {
		t.Errorf("interceptor error = %v", err)
	}
}
