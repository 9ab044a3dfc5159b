package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// response is CLIResponse with the payload left undecoded.
type response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// runJSON executes a command with --format json and decodes the envelope.
func runJSON(t *testing.T, args ...string) (response, error) {
	t.Helper()

	out, err := run(t, append(args, "--format", "json")...)
	var resp response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

// decode unmarshals the payload of a successful response.
func decode[T any](t *testing.T, resp response) T {
	t.Helper()

	require.Equal(t, "ok", resp.Status, "error: %+v", resp.Error)
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "editions.db")
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{
		"create", "predict", "blob", "mint", "mint-batch", "filter",
		"approve", "approve-all", "transfer", "transfer-ownership", "minter",
		"registry", "show", "events", "receipt", "status", "replay", "test",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := run(t, "predict", "alpha", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommand_CallRequiresCaller(t *testing.T) {
	_, err := run(t, "create", "alpha", "--db", tempDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--as is required")
}

func TestParseIdentity(t *testing.T) {
	labeled, err := parseIdentity("@artist")
	require.NoError(t, err)
	again, err := parseIdentity(" @artist ")
	require.NoError(t, err)
	assert.Equal(t, labeled, again)

	hexAddr, err := parseIdentity(labeled.Hex())
	require.NoError(t, err)
	assert.Equal(t, labeled, hexAddr)

	_, err = parseIdentity("@")
	assert.Error(t, err)
	_, err = parseIdentity("not-an-address")
	assert.Error(t, err)
}
