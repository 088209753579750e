package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/jam/internal/appctx"
	"github.com/Sternrassler/jam/internal/config"
	"github.com/Sternrassler/jam/internal/input"
	"github.com/Sternrassler/jam/internal/output"
	"github.com/Sternrassler/jam/internal/testutil"
	"github.com/Sternrassler/jam/pkg/auth"
	"github.com/Sternrassler/jam/pkg/client"
	"github.com/Sternrassler/jam/pkg/credential"
	"github.com/Sternrassler/jam/pkg/jumpcloud"
	"github.com/Sternrassler/jam/pkg/progress"
)

// testApp bundles an app wired to a mock API with captured output.
type testApp struct {
	app    *appctx.App
	mock   *testutil.MockAPI
	store  *credential.FileStore
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

type testOptions struct {
	piped    bool
	stdin    string
	noSecret bool
}

// setupTestApp creates an app whose service talks to a fresh MockAPI. The
// token endpoint is served at /oauth2/token.
func setupTestApp(t *testing.T, opts testOptions) *testApp {
	t.Helper()

	mock := testutil.NewMockAPI()
	t.Cleanup(mock.Close)
	mock.SetTokenEndpoint("/oauth2/token", time.Hour)

	cfg := config.Default()
	cfg.APIURL = mock.URL()
	cfg.OAuthURL = mock.URL() + "/oauth2/token"
	cfg.ClientID = "client"
	cfg.ClientSecret = "secret"
	cfg.LocalTZ = "UTC"
	if opts.noSecret {
		cfg.ClientSecret = ""
	}

	store := credential.NewFileStore(t.TempDir())
	session, err := credential.Open(context.Background(), store)
	if err != nil {
		t.Fatalf("Open session: %v", err)
	}
	provider := auth.NewProvider(auth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.OAuthURL,
	}, session)

	factory, err := client.NewFactory(client.DefaultConfig(cfg.APIURL), provider)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}

	var stdout, stderr bytes.Buffer
	piped := opts.piped
	app := &appctx.App{
		Config:   cfg,
		Session:  session,
		Provider: provider,
		Service:  jumpcloud.NewService(factory, jumpcloud.Config{PageSize: 2}),
		Output: output.NewRenderer(output.Options{
			Out:      &stdout,
			ErrOut:   &stderr,
			Location: time.UTC,
			Piped:    &piped,
		}),
		Input:    input.NewWithTTY(strings.NewReader(opts.stdin), opts.stdin == ""),
		Progress: progress.Nop,
	}

	return &testApp{app: app, mock: mock, store: store, stdout: &stdout, stderr: &stderr}
}

// execute runs cmd with args against the app.
func (ta *testApp) execute(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetContext(appctx.WithApp(context.Background(), ta.app))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func userRecords(n int) []map[string]any {
	return testutil.NewRecords(n, func(i int) map[string]any {
		return map[string]any{
			"email":      fmt.Sprintf("user%d@example.com", i),
			"state":      "ACTIVATED",
			"department": "Engineering",
		}
	})
}

func systemRecords(n int) []map[string]any {
	return testutil.NewRecords(n, func(i int) map[string]any {
		return map[string]any{
			"hostname":     fmt.Sprintf("host-%d", i),
			"os":           "Mac OS X",
			"version":      "15.1",
			"serialNumber": fmt.Sprintf("SN%04d", i),
		}
	})
}

func associations(ids ...string) []map[string]any {
	out := make([]map[string]any, len(ids))
	for i, id := range ids {
		out[i] = map[string]any{"to": map[string]any{"id": id, "type": "user"}}
	}
	return out
}

func ids(records []map[string]any) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = testutil.RecordID(rec)
	}
	return out
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return string(data)
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	return output.AsError(err).Code
}

func TestRequireAppWithoutApp(t *testing.T) {
	cmd := NewUsersCmd()
	cmd.SetArgs([]string{"list"})
	cmd.SetContext(context.Background())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	if code := errorCode(t, cmd.Execute()); code != output.CodeUsage {
		t.Errorf("code = %q, want usage", code)
	}
}
