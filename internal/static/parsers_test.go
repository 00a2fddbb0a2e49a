package static

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpotBugs_Empty(t *testing.T) {
	r, err := ParseSpotBugs([]byte(`<BugCollection version="4.8.3"/>`))
	require.NoError(t, err)
	assert.Equal(t, 0, BugCount(r))
}

func TestParseSpotBugs_NotXML(t *testing.T) {
	_, err := ParseSpotBugs([]byte(""))
	assert.Error(t, err)
}

func TestParseOWASP_NotObject(t *testing.T) {
	_, err := ParseOWASP([]byte(`null`))
	assert.Error(t, err)

	_, err = ParseOWASP([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestParseSonarQube(t *testing.T) {
	data := []byte("# generated\nprojectKey=acme\n\nceTaskUrl=http://sonar/api/ce/task?id=AX1\n")
	r, err := ParseSonarQube(data)
	require.NoError(t, err)
	assert.Equal(t, "acme", r["projectKey"])
	assert.Equal(t, "http://sonar/api/ce/task?id=AX1", r["ceTaskUrl"])

	_, err = ParseSonarQube([]byte("garbage line"))
	assert.Error(t, err)
}

func TestParseSARIF(t *testing.T) {
	r, err := ParseSARIF([]byte(sarifLog))
	require.NoError(t, err)
	bugs := Bugs(r)
	require.Len(t, bugs, 2)
	assert.Equal(t, Bug{Type: "java.lang.security.audit.xss", Priority: "error", Category: "semgrep"}, bugs[0])
	assert.Equal(t, "warning", bugs[1].Priority)

	_, err = ParseSARIF([]byte(`{}`))
	assert.Error(t, err)
}
