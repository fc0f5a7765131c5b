package config

import (
	"fmt"

	"github.com/mstoykov/envconfig"
)

// envOverrides lists the settings that may be overridden from the
// environment. Empty fields leave the file value alone.
type envOverrides struct {
	Browser         string `envconfig:"COURSECHECK_BROWSER"`
	Environment     string `envconfig:"COURSECHECK_ENVIRONMENT"`
	Headless        string `envconfig:"COURSECHECK_HEADLESS"`
	WindowMaximize  string `envconfig:"COURSECHECK_WINDOW_MAXIMIZE"`
	ImplicitlyWait  string `envconfig:"COURSECHECK_IMPLICITLY_WAIT"`
	OperatingSystem string `envconfig:"COURSECHECK_OPERATING_SYSTEM"`
	Engine          string `envconfig:"COURSECHECK_ENGINE"`
	HomeURL         string `envconfig:"COURSECHECK_URL_HOME"`
	CoursesURL      string `envconfig:"COURSECHECK_URL_COURSES"`
	SubjectURL      string `envconfig:"COURSECHECK_URL_SOFTWARE_TESTING"`
}

// ApplyEnv overlays COURSECHECK_* environment variables onto values. The
// optional lookup replaces os.LookupEnv, which tests use to inject variables.
func ApplyEnv(values map[string]string, lookup ...func(string) (string, bool)) error {
	var env envOverrides
	if err := envconfig.Process("", &env, lookup...); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	for key, v := range map[string]string{
		KeyBrowser:         env.Browser,
		KeyEnvironment:     env.Environment,
		KeyHeadless:        env.Headless,
		KeyWindowMaximize:  env.WindowMaximize,
		KeyImplicitlyWait:  env.ImplicitlyWait,
		KeyOperatingSystem: env.OperatingSystem,
		KeyEngine:          env.Engine,
		KeyHomeURL:         env.HomeURL,
		KeyCoursesURL:      env.CoursesURL,
		KeySubjectURL:      env.SubjectURL,
	} {
		if v != "" {
			values[key] = v
		}
	}
	return nil
}
