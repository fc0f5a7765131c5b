package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/coursecheck/pkg/config"
)

const testProperties = `browser=chrome
implicitlyWait=5
operatingSystem=linux
urlHome=http://site/
urlCourses=http://site/courses
urlSoftwareTesting=http://site/courses/software-testing
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Configuration.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		configPath = config.DefaultConfigPath
		engine, browserArg = "", ""
		verbose = false
	})
}

func TestLoadSettings_FlagsOverrideEnvironment(t *testing.T) {
	resetFlags(t)
	configPath = writeConfig(t, testProperties)
	t.Setenv("COURSECHECK_BROWSER", "firefox")
	t.Setenv("COURSECHECK_ENGINE", "rod")

	s, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, config.BrowserFirefox, s.Browser, "environment overrides the file")
	assert.Equal(t, config.EngineRod, s.Engine)

	engine = "static"
	browserArg = "edge"
	s, err = loadSettings()
	require.NoError(t, err)
	assert.Equal(t, config.BrowserEdge, s.Browser, "flags override the environment")
	assert.Equal(t, config.EngineStatic, s.Engine)
	assert.Equal(t, "http://site/courses", s.CoursesURL)
}

func TestLoadSettings_MissingFile(t *testing.T) {
	resetFlags(t)
	configPath = filepath.Join(t.TempDir(), "missing.properties")

	_, err := loadSettings()
	assert.Error(t, err)
}

func TestLoadSettings_InvalidValue(t *testing.T) {
	resetFlags(t)
	configPath = writeConfig(t, testProperties)
	browserArg = "opera"

	_, err := loadSettings()
	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, config.KeyBrowser, cfgErr.Key)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "coursecheck dev\n", out.String())
}

func TestListCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"list", "--scenario", "Browse*"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		runOpts = runFlags{}
	})

	require.NoError(t, rootCmd.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "Browse courses", lines[0])
	assert.Len(t, lines, 5)
}
