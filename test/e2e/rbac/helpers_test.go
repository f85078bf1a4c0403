//go:build e2e

package rbac_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/warden/pkg/rbacsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Container setup and shared helpers for the RBAC service end-to-end tests.
 * Run with: go test -tags e2e ./test/e2e/...
 */

const (
	testImageName = "warden-rbac-test:latest"

	adminUsername = "admin"
	adminEmail    = "admin@example.com"
	adminPassword = "Admin123!secret"
)

// TestMain builds the Docker image once before all tests and removes it
// after they complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Warden Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Warden Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/warden/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // image might not exist
}

// baseEnv is the container environment shared by every test.
func baseEnv() map[string]string {
	return map[string]string{
		"WARDEN_ADMIN_USERNAME": adminUsername,
		"WARDEN_ADMIN_EMAIL":    adminEmail,
		"WARDEN_ADMIN_PASSWORD": adminPassword,
		"WARDEN_ISSUER":         "warden-e2e",
		"WARDEN_KEY_ID":         "warden-e2e-key-001",
		"ENV":                   "test",
		"LOG_LEVEL":             "info",
		"LOG_FORMAT":            "json",
	}
}

// setupContainer starts the service with relaxed rate limits and returns
// its base URL. Tests sign in many times in quick succession, which the
// production limits would reject.
func setupContainer(t *testing.T) (string, func()) {
	t.Helper()

	env := baseEnv()
	env["RATELIMIT_STRICT_REQUESTS"] = "1000"
	env["RATELIMIT_STRICT_WINDOW_SEC"] = "60"
	env["RATELIMIT_STRICT_BURST"] = "1000"
	env["RATELIMIT_MODERATE_REQUESTS"] = "1000"
	env["RATELIMIT_MODERATE_BURST"] = "1000"

	return startContainer(t, env)
}

// setupContainerWithDefaultRateLimits starts the service with production
// rate limits. Only the rate limiting tests use it.
func setupContainerWithDefaultRateLimits(t *testing.T) (string, func()) {
	t.Helper()
	return startContainer(t, baseEnv())
}

func startContainer(t *testing.T, env map[string]string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// loginAdmin signs in as the seeded administrator.
func loginAdmin(t *testing.T, client *rbacsdk.SDKClient) *rbacsdk.Session {
	t.Helper()

	session, err := client.Login(t.Context(), adminUsername, adminPassword)
	require.NoError(t, err, "admin login should succeed")
	require.True(t, session.HasRole(rbacsdk.RoleAdmin))
	return session
}

// findRoleByName returns the id of the named role.
func findRoleByName(t *testing.T, session *rbacsdk.Session, name string) string {
	t.Helper()

	roles, err := session.ListRoles(t.Context())
	require.NoError(t, err)

	for _, role := range roles {
		if role.Name == name {
			return role.ID
		}
	}

	t.Fatalf("role %q not found", name)
	return ""
}

// findPermissionByCode returns the id of the permission with code.
func findPermissionByCode(t *testing.T, session *rbacsdk.Session, code string) string {
	t.Helper()

	perms, err := session.ListPermissions(t.Context())
	require.NoError(t, err)

	for _, p := range perms {
		if p.Code == code {
			return p.ID
		}
	}

	t.Fatalf("permission %q not found", code)
	return ""
}

// assertStatus checks that err is an API error with the given status.
func assertStatus(t *testing.T, err error, status int, context string) {
	t.Helper()
	require.Error(t, err, context)
	require.True(t, rbacsdk.IsStatus(err, status), "%s: want HTTP %d, got: %v", context, status, err)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *rbacsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
