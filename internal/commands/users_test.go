package commands

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/jam/internal/output"
	"github.com/Sternrassler/jam/internal/testutil"
)

func TestUsersListTable(t *testing.T) {
	ta := setupTestApp(t, testOptions{})
	ta.mock.SetBodyPaginated("/systemusers", userRecords(5))

	if err := ta.execute(NewUsersCmd(), "list"); err != nil {
		t.Fatalf("users list failed: %v", err)
	}

	got := ta.stdout.String()
	for _, want := range []string{"Users - Total Count: 5", "user4@example.com", "ACTIVATED", "Engineering"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestUsersListPiped(t *testing.T) {
	ta := setupTestApp(t, testOptions{piped: true})
	records := userRecords(3)
	ta.mock.SetBodyPaginated("/systemusers", records)

	if err := ta.execute(NewUsersCmd(), "list"); err != nil {
		t.Fatalf("users list failed: %v", err)
	}

	want := strings.Join(ids(records), "\n") + "\n"
	if got := ta.stdout.String(); got != want {
		t.Errorf("piped output = %q, want %q", got, want)
	}
}

func TestUsersListFilters(t *testing.T) {
	ta := setupTestApp(t, testOptions{})
	ta.mock.SetBodyPaginated("/systemusers", userRecords(1))

	err := ta.execute(NewUsersCmd(), "list",
		"--filter", "employeeType:$eq:Contractor",
		"--department", "Engineering",
		"--state", "activated",
	)
	if err != nil {
		t.Fatalf("users list failed: %v", err)
	}

	queries := ta.mock.Queries("/systemusers")
	if len(queries) != 1 {
		t.Fatalf("requests = %d, want 1", len(queries))
	}
	q, err := url.ParseQuery(queries[0])
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	want := map[string]string{
		"filter[0]": "employeeType:$eq:Contractor",
		"filter[1]": "department:$eq:Engineering",
		"filter[2]": "state:$eq:ACTIVATED",
	}
	for name, value := range want {
		if got := q.Get(name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}
}

func TestUsersListInvalidState(t *testing.T) {
	ta := setupTestApp(t, testOptions{})

	err := ta.execute(NewUsersCmd(), "list", "--state", "RETIRED")
	if code := errorCode(t, err); code != output.CodeUsage {
		t.Errorf("code = %q, want usage", code)
	}
	if n := ta.mock.GetRequestCount(); n != 0 {
		t.Errorf("requests = %d, want none", n)
	}
}

func TestUsersListCSV(t *testing.T) {
	ta := setupTestApp(t, testOptions{})
	ta.mock.SetBodyPaginated("/systemusers", userRecords(3))
	path := filepath.Join(t.TempDir(), "users.csv")

	if err := ta.execute(NewUsersCmd(), "list", "--csv", path); err != nil {
		t.Fatalf("users list failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("csv lines = %d, want header + 3:\n%s", len(lines), data)
	}
	if lines[0] != "ID,State,Email,Employee Type,Job Title,Department,Cost Center" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(ta.stdout.String(), "Users - Total Count: 3") {
		t.Error("table should still be printed alongside the export")
	}
	if !strings.Contains(ta.stderr.String(), "Exported 3 items") {
		t.Errorf("notice = %q", ta.stderr.String())
	}
}

func TestUsersListJSON(t *testing.T) {
	ta := setupTestApp(t, testOptions{piped: true})
	ta.mock.SetBodyPaginated("/systemusers", userRecords(2))

	if err := ta.execute(NewUsersCmd(), "list", "-j"); err != nil {
		t.Fatalf("users list failed: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(ta.stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, ta.stdout.String())
	}
	if len(decoded) != 2 || decoded[0]["email"] != "user0@example.com" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestUsersGetFromStdin(t *testing.T) {
	records := userRecords(3)
	stdin := testutil.RecordID(records[2]) + "\n" + testutil.RecordID(records[0]) + "\n"
	ta := setupTestApp(t, testOptions{piped: true, stdin: stdin})
	ta.mock.SetEntities("/systemusers", records)

	if err := ta.execute(NewUsersCmd(), "get"); err != nil {
		t.Fatalf("users get failed: %v", err)
	}

	if got := ta.stdout.String(); got != stdin {
		t.Errorf("output = %q, want ids in requested order %q", got, stdin)
	}
}

func TestUsersGetNotFound(t *testing.T) {
	ta := setupTestApp(t, testOptions{})
	ta.mock.SetEntities("/systemusers", userRecords(1))

	err := ta.execute(NewUsersCmd(), "get", "ffffffffffffffffffffffff")
	if code := errorCode(t, err); code != output.CodeNotFound {
		t.Errorf("code = %q, want not_found", code)
	}
}

func searchHandler(t *testing.T, results []map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"totalCount": len(results), "results": results})
	}
}

func TestUsersFind(t *testing.T) {
	records := userRecords(3)

	tests := []struct {
		name       string
		results    []map[string]any
		wantStdout string
		wantStderr string
	}{
		{"single match prints id", records[:1], testutil.RecordID(records[0]) + "\n", ""},
		{"no match prints notice", nil, "", "No users found matching 'ada@example.com'."},
		{"several matches print table", records, "Search Results - Total Count: 3", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := setupTestApp(t, testOptions{})
			ta.mock.SetHandler("/search/systemusers", searchHandler(t, tt.results))

			if err := ta.execute(NewUsersCmd(), "find", "ada@example.com"); err != nil {
				t.Fatalf("users find failed: %v", err)
			}
			if !strings.Contains(ta.stdout.String(), tt.wantStdout) {
				t.Errorf("stdout = %q, want %q", ta.stdout.String(), tt.wantStdout)
			}
			if !strings.Contains(ta.stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want %q", ta.stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestUsersFindMissingEmail(t *testing.T) {
	ta := setupTestApp(t, testOptions{})

	err := ta.execute(NewUsersCmd(), "find")
	if code := errorCode(t, err); code != output.CodeUsage {
		t.Errorf("code = %q, want usage", code)
	}
	if msg := output.AsError(err).Message; msg != "Email not provided" {
		t.Errorf("message = %q", msg)
	}
}

func TestUsersBoundSystems(t *testing.T) {
	ta := setupTestApp(t, testOptions{piped: true})
	systems := systemRecords(4)
	userID := "5f1b2c3d4e5f607182930a1b"

	bound := []map[string]any{
		{"id": testutil.RecordID(systems[3]), "type": "system"},
		{"id": testutil.RecordID(systems[1]), "type": "system"},
	}
	ta.mock.SetHeaderPaginated("/v2/users/"+userID+"/systems", bound)
	ta.mock.SetEntities("/systems", systems)

	if err := ta.execute(NewUsersCmd(), "bound-systems", userID); err != nil {
		t.Fatalf("users bound-systems failed: %v", err)
	}

	want := testutil.RecordID(systems[1]) + "\n" + testutil.RecordID(systems[3]) + "\n"
	if got := ta.stdout.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
