package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowlayout/internal/graph"
	"github.com/rendis/flowlayout/internal/store"
)

const greetingDialog = `{
  "$kind": "Microsoft.IfCondition",
  "condition": "user.name != null",
  "actions": [{"$kind": "Microsoft.SendActivity", "activity": "Hi ${user.name}"}],
  "elseActions": [{"$kind": "Microsoft.SendActivity", "activity": "Hi there"}]
}`

// cliEnv is an isolated settings file, database and bin dir.
type cliEnv struct {
	t        *testing.T
	dir      string
	settings string
	env      map[string]string
}

func newCLIEnv(t *testing.T) *cliEnv {
	dir := t.TempDir()
	return &cliEnv{
		t:        t,
		dir:      dir,
		settings: filepath.Join(dir, "settings.yaml"),
		env: map[string]string{
			"FLOWLAYOUT_DB_PATH": filepath.Join(dir, "flowlayout.db"),
			"FLOWLAYOUT_BIN_DIR": filepath.Join(dir, "bin"),
		},
	}
}

func (e *cliEnv) file(name, body string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func (e *cliEnv) run(stdin string, args ...string) (code int, stdout, stderr string) {
	var out, errb bytes.Buffer
	args = append([]string{"--settings", e.settings}, args...)
	code = run(args, envMap(e.env), strings.NewReader(stdin), &out, &errb)
	return code, out.String(), errb.String()
}

func TestRunVersion(t *testing.T) {
	e := newCLIEnv(t)
	code, out, _ := e.run("", "--version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "dev", strings.TrimSpace(out))
}

func TestRunLayout(t *testing.T) {
	e := newCLIEnv(t)
	path := e.file("greeting.json", greetingDialog)

	code, out, errOut := e.run("", "layout", path)
	require.Equal(t, 0, code, errOut)

	var resp struct {
		Graph graph.Graph `json:"graph"`
		Width float64     `json:"width"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	_, ok := resp.Graph.Node("actions[0]")
	assert.True(t, ok)
	_, ok = resp.Graph.Node("elseActions[0]")
	assert.True(t, ok)
	assert.Greater(t, resp.Width, 0.0)
}

func TestRunLayoutFromStdinWithQuery(t *testing.T) {
	e := newCLIEnv(t)
	doc := `{"triggers": [{"$kind": "Microsoft.OnBeginDialog", "actions": [{"$kind": "Microsoft.EndDialog"}]}]}`

	code, out, errOut := e.run(doc, "layout", "-q", ".triggers[0].actions", "--compact")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, 1, strings.Count(out, "\n"), "compact output is one line")
	assert.Contains(t, out, `"id":"actions[0]"`)
}

func TestRunLayoutRecordsSnapshots(t *testing.T) {
	e := newCLIEnv(t)
	path := e.file("greeting.json", greetingDialog)

	code, out, errOut := e.run("", "layout", path, "--dialog-id", "greeting")
	require.Equal(t, 0, code, errOut)
	var first struct {
		Snapshot store.Snapshot `json:"snapshot"`
		Change   graph.Change   `json:"change"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, int64(1), first.Snapshot.Revision)
	assert.NotEmpty(t, first.Change.AddedNodes)

	e.file("greeting.json", `[{"$kind": "Microsoft.SendActivity"}]`)
	code, _, errOut = e.run("", "layout", path, "--dialog-id", "greeting")
	require.Equal(t, 0, code, errOut)

	code, out, errOut = e.run("", "snapshots", "list", "greeting")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "DIALOG")
	assert.Equal(t, 3, strings.Count(out, "\n"), "header plus two revisions")

	code, out, errOut = e.run("", "snapshots", "dialogs")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "greeting")

	code, out, errOut = e.run("", "snapshots", "changes", "greeting")
	require.Equal(t, 0, code, errOut)
	var replay struct {
		Changes []graph.Change `json:"changes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &replay))
	assert.Len(t, replay.Changes, 2)

	code, out, errOut = e.run("", "snapshots", "prune", "--keep", "1")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "removed 1 snapshots")
}

func TestRunRender(t *testing.T) {
	e := newCLIEnv(t)
	path := e.file("greeting.yaml", strings.Join([]string{
		"$kind: Microsoft.SendActivity",
		"$designer:",
		"  name: welcome",
	}, "\n"))

	code, out, errOut := e.run("", "render", path, "-r", "mermaid")
	require.Equal(t, 0, code, errOut)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, "%% greeting")
	assert.Contains(t, out, "welcome")

	code, out, errOut = e.run("", "render", path, "--builtin", "--title", "Welcome")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Welcome")
	assert.Contains(t, out, "welcome")

	png := filepath.Join(e.dir, "out.png")
	code, _, errOut = e.run("", "render", path, "-r", "image", "-o", png)
	require.Equal(t, 0, code, errOut)
	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestRunValidate(t *testing.T) {
	e := newCLIEnv(t)

	ok := e.file("ok.json", greetingDialog)
	code, out, errOut := e.run("", "validate", ok)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "ok")

	warn := e.file("warn.json", `[{"$kind": "Contoso.CustomAction"}]`)
	code, out, errOut = e.run("", "validate", warn)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "0 errors, 1 warning")
	code, _, errOut = e.run("", "validate", warn, "--fail-on-warning")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "VALIDATION_ERROR")

	bad := e.file("bad.json", `[{"$kind": "Microsoft.IfCondition", "condition": "user.age >="}]`)
	code, out, errOut = e.run("", "validate", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "actions[0]")
	assert.Contains(t, errOut, "VALIDATION_ERROR")

	code, out, _ = e.run("", "validate", bad, "--json")
	assert.Equal(t, 1, code)
	var result struct {
		Errors []map[string]any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.NotEmpty(t, result.Errors)
}

func TestRunErrors(t *testing.T) {
	e := newCLIEnv(t)

	code, _, errOut := e.run("", "layout", filepath.Join(e.dir, "missing.json"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "INPUT_ERROR")

	code, _, _ = e.run("", "render", "-r", "svg")
	assert.Equal(t, 2, code, "flag errors are usage errors")

	e.env["FLOWLAYOUT_DIALECT"] = "python"
	code, _, errOut = e.run("", "layout")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Config.Dialect")
}

func TestRunInstallWritesSettings(t *testing.T) {
	e := newCLIEnv(t)

	code, out, errOut := e.run("", "install", "--skip-tools")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Config written to")

	cfg, err := loadConfig(e.settings, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, e.env["FLOWLAYOUT_DB_PATH"], cfg.DBPath)

	code, out, _ = e.run("", "install", "--skip-tools")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Settings already exist")
}
