package e2e

import (
	"context"
	"database/sql"
	"net"
	"testing"
	"time"

	"github.com/asakaida/skillperm/internal/handlers"
	"github.com/asakaida/skillperm/internal/infrastructure/metrics"
	"github.com/asakaida/skillperm/internal/repositories/cached"
	"github.com/asakaida/skillperm/internal/repositories/sqlstore"
	"github.com/asakaida/skillperm/internal/services"
	"github.com/asakaida/skillperm/internal/services/authorization"
	"github.com/asakaida/skillperm/pkg/cache/memorycache"
	pb "github.com/asakaida/skillperm/proto/skillperm/v1"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const bufSize = 1024 * 1024

// E2ETestServer represents an E2E test server
type E2ETestServer struct {
	Server    *grpc.Server
	Client    pb.CapabilityServiceClient
	Conn      *grpc.ClientConn
	DB        *sql.DB
	Listener  *bufconn.Listener
	Seed      *sqlstore.SeedFixture
	Collector *metrics.Collector
}

// SetupE2ETest wires the full server stack, grant cache included, over bufconn.
// The database is in-memory SQLite unless INTEGRATION is set.
func SetupE2ETest(t *testing.T) *E2ETestServer {
	t.Helper()

	db := sqlstore.SetupTestDB(t)
	seed := sqlstore.Seed(t, db)

	grantCache, err := memorycache.New(&memorycache.Config{
		MaxSizeBytes:  1 << 20,
		DefaultTTL:    time.Minute,
		EnableMetrics: true,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	collector := metrics.NewCollector()
	collector.SetCache(grantCache)
	exporter := metrics.NewPrometheusExporter(collector, prometheus.NewRegistry())

	memberRepo := sqlstore.NewMemberRepository(db)
	skillRepo := sqlstore.NewSkillRepository(db)
	permissionRepo := cached.NewPermissionRepository(sqlstore.NewPermissionRepository(db), grantCache, time.Minute, exporter)

	resolver := authorization.NewResolver(permissionRepo)
	resolver.SetObserver(exporter)
	permissionService := services.NewPermissionService(memberRepo, skillRepo, permissionRepo, sqlstore.NewAuditRepository(db), sqlstore.NewTxManager(db))
	handler := handlers.NewCapabilityHandler(resolver, permissionService, memberRepo, skillRepo)

	// Create in-memory gRPC server with bufconn
	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer(grpc.UnaryInterceptor(metrics.UnaryServerInterceptor(collector, exporter)))
	pb.RegisterCapabilityServiceServer(server, handler)

	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	bufDialer := func(context.Context, string) (net.Conn, error) {
		return listener.Dial()
	}

	conn, err := grpc.NewClient(
		"passthrough://bufconn",
		grpc.WithContextDialer(bufDialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		server.Stop()
		t.Fatalf("failed to create client connection: %v", err)
	}

	return &E2ETestServer{
		Server:    server,
		Client:    pb.NewCapabilityServiceClient(conn),
		Conn:      conn,
		DB:        db,
		Listener:  listener,
		Seed:      seed,
		Collector: collector,
	}
}

// Teardown cleans up the E2E test environment
func (e *E2ETestServer) Teardown(t *testing.T) {
	t.Helper()

	if e.Conn != nil {
		e.Conn.Close()
	}
	if e.Server != nil {
		e.Server.Stop()
	}
	if e.Listener != nil {
		e.Listener.Close()
	}
	if e.DB != nil {
		sqlstore.CleanupTestDB(t, e.DB)
	}
}

// Member returns the seeded member ID for a display name
func (e *E2ETestServer) Member(name string) string {
	return e.Seed.MemberIDs[name]
}

// Skill returns the seeded skill ID for a skill name
func (e *E2ETestServer) Skill(name string) string {
	return e.Seed.SkillIDs[name]
}

func mustStruct(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	return s
}

// check calls Check and returns the allowed flag
func (e *E2ETestServer) check(ctx context.Context, t *testing.T, memberID, skillID, action string) bool {
	t.Helper()
	resp, err := e.Client.Check(ctx, mustStruct(t, map[string]interface{}{
		"member_id": memberID,
		"skill_id":  skillID,
		"action":    action,
	}))
	if err != nil {
		t.Fatalf("Check(%s, %s, %s) failed: %v", memberID, skillID, action, err)
	}
	return resp.GetFields()["allowed"].GetBoolValue()
}

// grant calls SetPermission
func (e *E2ETestServer) grant(ctx context.Context, actorID, memberID, skillID, capability string) error {
	req, err := structpb.NewStruct(map[string]interface{}{
		"actor_id":   actorID,
		"member_id":  memberID,
		"skill_id":   skillID,
		"capability": capability,
	})
	if err != nil {
		return err
	}
	_, err = e.Client.SetPermission(ctx, req)
	return err
}
