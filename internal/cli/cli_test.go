package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/config"
	"vellum/internal/jsvm"
	"vellum/internal/server"
	"vellum/internal/storage"
)

const definitionYAML = `
type: card
id: c1
text: Welcome
children:
  - type: button
    id: b1
    props:
      label: Continue
`

// writeConfig writes a config file for one test and resets viper afterwards.
func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	data := "log:\n  level: error\n  format: json\nstorage:\n  path: " + filepath.Join(dir, "data.db") + "\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Cleanup(config.Reset)
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)

	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestLoadDefinitionYAML(t *testing.T) {
	dir := t.TempDir()
	def, err := loadDefinition(writeFile(t, dir, "app.yaml", definitionYAML))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"card","id":"c1","text":"Welcome","children":[{"type":"button","id":"b1","props":{"label":"Continue"}}]}`, string(def))

	// JSON passes through byte for byte
	raw := `{"type": "text",  "id": "t1"}`
	def, err = loadDefinition(writeFile(t, dir, "app.json", raw))
	require.NoError(t, err)
	assert.Equal(t, raw, string(def))

	_, err = loadDefinition(writeFile(t, dir, "bad.yaml", "a: [1, 2"))
	assert.Error(t, err)
}

func TestJSONCompatibleKeys(t *testing.T) {
	v := jsonCompatible(map[any]any{1: []any{map[any]any{true: "x"}}})
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"1":[{"true":"x"}]}`, string(data))
}

func TestMessageFlags(t *testing.T) {
	dir := t.TempDir()
	f := messageFlags{
		Definition: writeFile(t, dir, "app.yaml", definitionYAML),
		Styles:     writeFile(t, dir, "app.css", ".card{margin:0}"),
		Selection:  "button:b1",
	}
	assert.Len(t, f.Files(), 2)

	msg, err := f.Build()
	require.NoError(t, err)
	assert.Equal(t, ".card{margin:0}", msg.Styles)
	assert.Equal(t, "button", msg.SelectedComponentType)
	assert.Equal(t, "b1", msg.SelectedComponentID)

	f.Selection = "button"
	_, err = f.Build()
	assert.Error(t, err)

	f = messageFlags{Styles: filepath.Join(dir, "missing.css")}
	_, err = f.Build()
	assert.Error(t, err)
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")
	def := writeFile(t, dir, "app.yaml", definitionYAML)
	css := writeFile(t, dir, "app.css", ".card{padding:8px}")

	out, err := execute(t, "--config", cfgPath, "render",
		"--definition", def, "--styles", css, "--select", "button:b1")
	require.NoError(t, err)

	assert.Contains(t, out, ".card{padding:8px}")
	assert.Contains(t, out, ".button-b1{border:2px solid #0055ff;}")
	assert.Contains(t, out, `data-component-id="b1"`)
	assert.Contains(t, out, "Continue")
}

func TestRenderToFileNoRuntime(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "preview:\n  highlight_border: 1px dashed red\n")
	def := writeFile(t, dir, "app.yaml", definitionYAML)
	outPath := filepath.Join(dir, "preview.html")

	_, err := execute(t, "--config", cfgPath, "render", "--no-runtime",
		"--definition", def, "--select", "card:c1", "--out", outPath)
	require.NoError(t, err)

	html, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), ".card-c1{border:1px dashed red;}")
	assert.NotContains(t, string(html), "Welcome")
}

func TestRenderPersist(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")
	def := writeFile(t, dir, "app.yaml", definitionYAML)

	for i := 0; i < 2; i++ {
		_, err := execute(t, "--config", cfgPath, "render", "--persist", "--definition", def)
		require.NoError(t, err)
	}

	db, err := storage.Open(filepath.Join(dir, "data.db"))
	require.NoError(t, err)
	defer db.Close()
	v, ok := db.LocalStorage(renderNamespace).GetItem("vellum.renders")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	var out bytes.Buffer
	require.NoError(t, RunInit(&out, &InitOptions{Dir: dir}))
	assert.Contains(t, out.String(), "Initialized vellum")

	script, err := os.ReadFile(filepath.Join(dir, jsvm.DefaultScriptName))
	require.NoError(t, err)
	assert.Equal(t, jsvm.DefaultScript, string(script))

	t.Cleanup(config.Reset)
	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPort, cfg.Gateway.Port)
	assert.Equal(t, config.DefaultRuntimeTimeout, cfg.Runtime.Timeout)
	assert.Equal(t, filepath.Join(dir, "data.db"), cfg.Storage.Path)

	err = RunInit(&out, &InitOptions{Dir: dir})
	assert.Error(t, err)
	require.NoError(t, RunInit(&out, &InitOptions{Dir: dir, Force: true}))

	out.Reset()
	require.NoError(t, RunInit(&out, &InitOptions{Dir: dir, Upgrade: true}))
	assert.Contains(t, out.String(), "up to date")

	scriptPath := filepath.Join(dir, jsvm.DefaultScriptName)
	require.NoError(t, os.WriteFile(scriptPath, []byte("// @version 0.0.1\n"), 0644))
	out.Reset()
	require.NoError(t, RunInit(&out, &InitOptions{Dir: dir, Upgrade: true}))
	assert.Contains(t, out.String(), "0.0.1 -> "+jsvm.DefaultVersion())
}

func TestConfigGetAndPath(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "gateway:\n  port: 19999\n")

	out, err := execute(t, "--config", cfgPath, "config", "get", "gateway.port")
	require.NoError(t, err)
	assert.Equal(t, "19999", strings.TrimSpace(out))

	out, err = execute(t, "--config", cfgPath, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, cfgPath, strings.TrimSpace(out))

	_, err = execute(t, "--config", cfgPath, "config", "set", "no.such.key", "1")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeConfig(t, dir, "")
	out, err := execute(t, "--config", good, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
	assert.Equal(t, statusOK, checkConfigFile(good, DefaultConfig(dir)).status)

	badDir := t.TempDir()
	bad := writeConfig(t, badDir, "preview:\n  reap_schedule: whenever\n")
	_, err = execute(t, "--config", bad, "config", "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reap_schedule")

	cfg := DefaultConfig(badDir)
	cfg.Storage.Driver = "postgres"
	assert.Equal(t, statusError, checkConfigFile(bad, cfg).status)
}

func TestCheckRenderer(t *testing.T) {
	cfg := &config.Config{}
	r := checkRenderer(t.Context(), cfg)
	assert.Equal(t, statusOK, r.status)

	dir := t.TempDir()
	cfg.Runtime.Script = writeFile(t, dir, "broken.js", "function (")
	r = checkRenderer(t.Context(), cfg)
	assert.Equal(t, statusError, r.status)

	cfg.Runtime.Script = writeFile(t, dir, "noop.js", "var x = 1;")
	r = checkRenderer(t.Context(), cfg)
	assert.Equal(t, statusWarning, r.status)

	cfg.Runtime.Script = writeFile(t, dir, "old.js", "// @version 0.0.1\nfunction renderPreview(ctx) {}\n")
	r = checkRenderer(t.Context(), cfg)
	assert.Equal(t, statusWarning, r.status)
	assert.Contains(t, r.message, "init --upgrade")
}

func TestPrintResults(t *testing.T) {
	var out bytes.Buffer
	printResults(&out, []checkResult{
		{"System", statusOK, "fine"},
		{"Server", statusWarning, "not running"},
	})
	assert.Contains(t, out.String(), "✓ System: fine")
	assert.Contains(t, out.String(), "! Server: not running")
	assert.Contains(t, out.String(), "Some warnings detected")
}

func TestPushAndSessionCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")
	def := writeFile(t, dir, "app.yaml", definitionYAML)

	srv, err := server.NewServer(server.ServerConfig{
		Config: &config.Config{
			Gateway: config.GatewayConfig{Host: "127.0.0.1"},
			Storage: config.StorageConfig{Driver: server.DriverNone},
		},
		Version: "test",
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	defer srv.Stop()
	url := "http://" + srv.Addr()

	out, err := execute(t, "--config", cfgPath, "push", "--server", url,
		"--session", "demo", "--definition", def, "--select", "card:c1")
	require.NoError(t, err)
	assert.Contains(t, out, "session: demo")

	require.Eventually(t, func() bool {
		out, err := execute(t, "--config", cfgPath, "session", "snapshot", "demo", "--server", url)
		return err == nil && strings.Contains(out, ".card-c1{border:2px solid #0055ff;}")
	}, 5*time.Second, 50*time.Millisecond)

	out, err = execute(t, "--config", cfgPath, "session", "list", "--server", url)
	require.NoError(t, err)
	assert.Contains(t, out, "demo")

	out, err = execute(t, "--config", cfgPath, "session", "show", "demo", "--server", url)
	require.NoError(t, err)
	assert.Contains(t, out, "Selection: card:c1")

	out, err = execute(t, "--config", cfgPath, "session", "delete", "demo", "--server", url)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = execute(t, "--config", cfgPath, "session", "show", "demo", "--server", url)
	assert.ErrorContains(t, err, "session not found")
}

func TestLoadContextOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "gateway:\n  port: 19123\n")

	cliCtx, err := loadContext(&GlobalFlags{ConfigPath: cfgPath, Verbose: true, Quiet: true, LogFormat: "console"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cliCtx.Close() })

	assert.Equal(t, cfgPath, cliCtx.ConfigPath)
	assert.Equal(t, filepath.Join(dir, "data.db"), cliCtx.StoragePath)
	assert.Equal(t, "http://127.0.0.1:19123", cliCtx.ServerURL())
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel(), "quiet wins over verbose")
}
