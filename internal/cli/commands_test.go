package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coursenotify/internal/notification"
	"github.com/roach88/coursenotify/internal/server"
)

const harnessScenarios = "../harness/testdata/scenarios"

// copyScenario copies a harness scenario into dir so golden files can be
// written next to it.
func copyScenario(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(harnessScenarios, name+".yaml"))
	require.NoError(t, err)
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

const failingScenario = `
name: failing
world:
  users:
    - { id: 1, login: alice }
events:
  - { event: file_submission, exercise: 99, user: 1, expect_error: MISSING_CONTEXT }
assertions:
  - { type: notification_count, count: 3 }
`

func TestSimulate_Text(t *testing.T) {
	out, _, err := execute(t, "simulate", filepath.Join(harnessScenarios, "plagiarism_enabled.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, "Scenario plagiarism_enabled: PASS")
	assert.Contains(t, out, "[1] new_plagiarism_case")
	assert.Contains(t, out, "n-0001 -> user 1 NEW_PLAGIARISM_CASE_STUDENT (stored) push=yes email=yes")
	assert.Contains(t, out, "Stored: 1 notification(s), 1 email(s)")
}

func TestSimulate_JSON(t *testing.T) {
	out, _, err := execute(t, "simulate", "--format", "json", filepath.Join(harnessScenarios, "plagiarism_enabled.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Scenario      string `json:"scenario"`
			Pass          bool   `json:"pass"`
			Notifications []struct {
				ID   string `json:"id"`
				Type string `json:"type"`
			} `json:"notifications"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "plagiarism_enabled", resp.Data.Scenario)
	assert.True(t, resp.Data.Pass)
	require.Len(t, resp.Data.Notifications, 1)
	assert.Equal(t, "n-0001", resp.Data.Notifications[0].ID)
}

func TestSimulate_FailureExitCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(failingScenario), 0o644))

	out, _, err := execute(t, "simulate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Scenario failing: FAIL")
	assert.Contains(t, out, "Failures:")
}

func TestSimulate_FailureJSONEnvelope(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(failingScenario), 0o644))

	out, _, err := execute(t, "simulate", "--format", "json", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeScenarioFailed, resp.Error.Code)
	assert.Equal(t, "scenario failing failed", resp.Error.Message)
}

func TestSimulate_MissingFile(t *testing.T) {
	_, _, err := execute(t, "simulate", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "plagiarism_enabled")
	copyScenario(t, dir, "tutorial_group_update")

	out, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ plagiarism_enabled (golden updated)")
	assert.FileExists(t, filepath.Join(dir, "golden", "plagiarism_enabled.golden"))

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "plagiarism_enabled.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/plagiarism_enabled.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(golden))

	out, _, err = execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "plagiarism_enabled")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "plagiarism_enabled.golden"), []byte("{}\n"), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_FilterAndJSON(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "plagiarism_enabled")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.yaml"), []byte(failingScenario), 0o644))

	out, _, err := execute(t, "test", dir, "--filter", "plagiarism_*", "--format", "json")
	require.NoError(t, err)
	var ok struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &ok))
	assert.Equal(t, "ok", ok.Status)
	assert.Equal(t, 1, ok.Data.Total)

	out, _, err = execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	var bad struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &bad))
	assert.Equal(t, "error", bad.Status)
	assert.Equal(t, 1, bad.Data.Failed)
	require.NotNil(t, bad.Error)
	assert.Equal(t, CodeTestFailed, bad.Error.Code)
}

func TestTest_MissingDir(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTitles(t *testing.T) {
	out, _, err := execute(t, "titles")
	require.NoError(t, err)
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "TUTORIAL_GROUP_DELETED")
	assert.Contains(t, out, "Tutorial Group deleted")

	out, _, err = execute(t, "titles", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data []TitleRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data, len(notification.Types()))
	assert.Equal(t, string(notification.TypeNewReplyForExercisePost), resp.Data[0].Type)
}

func TestSettings_SetThenGet(t *testing.T) {
	db := filepath.Join(t.TempDir(), "settings.db")
	key := notification.CategoryTutorialGroupDeleteUpdate.Key()

	out, _, err := execute(t, "settings", "set", "--db", db, "--user", "42",
		"--category", key, "--webapp=false", "--email=true")
	require.NoError(t, err)
	assert.Contains(t, out, "user 42: "+key+" webapp=no email=yes")

	out, _, err = execute(t, "settings", "get", "--db", db, "--user", "42", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data []SettingRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, len(notification.Categories()))

	found := false
	for _, r := range resp.Data {
		if r.Category == key {
			found = true
			assert.True(t, r.Stored)
			assert.False(t, r.WebApp)
			assert.True(t, r.Email)
		} else {
			assert.False(t, r.Stored)
		}
	}
	assert.True(t, found)
}

func TestSettings_GetWithPolicy(t *testing.T) {
	dir := t.TempDir()
	pol := filepath.Join(dir, "policy.cue")
	key := notification.CategoryNewPlagiarismCase.Key()
	require.NoError(t, os.WriteFile(pol, []byte(`defaults: "`+key+`": {webapp: false, email: false}`+"\n"), 0o644))

	out, _, err := execute(t, "settings", "get", "--db", filepath.Join(dir, "s.db"), "--user", "1",
		"--policy", pol, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data []SettingRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	for _, r := range resp.Data {
		if r.Category == key {
			assert.False(t, r.WebApp)
			assert.False(t, r.Email)
		}
	}
}

func TestSettings_SetRejectsUnknownCategory(t *testing.T) {
	_, _, err := execute(t, "settings", "set", "--db", filepath.Join(t.TempDir(), "s.db"),
		"--user", "1", "--category", "notification.nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPolicyValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.cue")
	key := notification.CategoryTutorialGroupDeleteUpdate.Key()
	require.NoError(t, os.WriteFile(good, []byte(
		`defaults: "`+key+`": {webapp: true, email: true}`+"\n"+
			`sweep: include_automatic_results: true`+"\n"), 0o644))

	out, _, err := execute(t, "policy", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, key+" webapp=yes email=yes")
	assert.Contains(t, out, "include_automatic_results=true")

	out, _, err = execute(t, "policy", "validate", good, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data PolicySummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Overrides, 1)
	assert.True(t, resp.Data.IncludeAutomaticResults)

	bad := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(bad, []byte(`defaults: "notification.nope": {webapp: true, email: true}`+"\n"), 0o644))
	out, _, err = execute(t, "policy", "validate", bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_POLICY]")
}

func TestToken(t *testing.T) {
	t.Setenv("COURSENOTIFY_JWT_SECRET", "cli-secret")

	out, _, err := execute(t, "token", "--user", "42", "--login", "alice", "--group", "5", "--group", "7")
	require.NoError(t, err)

	claims := &server.Claims{}
	_, err = jwt.ParseWithClaims(strings.TrimSpace(out), claims, func(_ *jwt.Token) (any, error) {
		return []byte("cli-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Login)
	assert.Equal(t, server.Issuer, claims.Issuer)
	assert.Equal(t, []int64{5, 7}, claims.TutorialGroups)
}

func TestToken_RequiresUser(t *testing.T) {
	t.Setenv("COURSENOTIFY_JWT_SECRET", "cli-secret")

	_, _, err := execute(t, "token")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

