package testutil

import (
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixture(t *testing.T) {
	t.Parallel()

	content := LoadFixture(t, "README.md")
	assert.Contains(t, string(content), "validate:step")
}

func TestWriteFixtureToDir(t *testing.T) {
	t.Parallel()

	path := WriteFixtureToDir(t, t.TempDir(), "README.md", "README.md")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "validate:cleanup")
}

func TestListen(t *testing.T) {
	t.Parallel()

	_, port := Listen(t)

	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), time.Second)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestClosedPort(t *testing.T) {
	t.Parallel()

	port := ClosedPort(t)

	_, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), time.Second)
	assert.Error(t, err)
}

func TestProcessAlive(t *testing.T) {
	t.Parallel()

	assert.True(t, ProcessAlive(os.Getpid()))
}
