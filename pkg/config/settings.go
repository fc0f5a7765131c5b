package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Recognized configuration keys.
const (
	KeyBrowser          = "browser"
	KeyEnvironment      = "environment"
	KeyHeadless         = "headless"
	KeyWindowMaximize   = "windowMaximize"
	KeyImplicitlyWait   = "implicitlyWait"
	KeyOperatingSystem  = "operatingSystem"
	KeyEngine           = "engine"
	KeyHomeURL          = "urlHome"
	KeyCoursesURL       = "urlCourses"
	KeySubjectURL       = "urlSoftwareTesting"
	KeyReportConfigPath = "reportConfigPath"
)

// BrowserKind identifies the browser a session drives.
type BrowserKind string

const (
	BrowserChrome           BrowserKind = "chrome"
	BrowserFirefox          BrowserKind = "firefox"
	BrowserInternetExplorer BrowserKind = "iexplorer"
	BrowserEdge             BrowserKind = "edge"
	BrowserSafari           BrowserKind = "safari"
)

// DisplayName returns the product name used in notices.
func (b BrowserKind) DisplayName() string {
	switch b {
	case BrowserChrome:
		return "Chrome"
	case BrowserFirefox:
		return "Firefox"
	case BrowserInternetExplorer:
		return "Internet Explorer"
	case BrowserEdge:
		return "Edge"
	case BrowserSafari:
		return "Safari"
	default:
		return string(b)
	}
}

// EnvironmentKind tells whether the browser runs on this machine or elsewhere.
type EnvironmentKind string

const (
	EnvironmentLocal  EnvironmentKind = "local"
	EnvironmentRemote EnvironmentKind = "remote"
)

// OSKind is the operating system the browser processes run on.
type OSKind string

const (
	OSWindows OSKind = "windows"
	OSLinux   OSKind = "linux"
	OSUbuntu  OSKind = "ubuntu"
	OSMacOS   OSKind = "macos"
)

// EngineKind selects the automation backend that drives the browser.
type EngineKind string

const (
	EnginePlaywright EngineKind = "playwright"
	EngineRod        EngineKind = "rod"
	EngineStatic     EngineKind = "static"
)

var (
	browserKinds = []BrowserKind{BrowserChrome, BrowserFirefox, BrowserInternetExplorer, BrowserEdge, BrowserSafari}
	envKinds     = []EnvironmentKind{EnvironmentLocal, EnvironmentRemote}
	osKinds      = []OSKind{OSWindows, OSLinux, OSUbuntu, OSMacOS}
	engineKinds  = []EngineKind{EnginePlaywright, EngineRod, EngineStatic}
)

// Settings is the validated driver configuration for one run. It is never
// mutated after Resolve returns it.
type Settings struct {
	Browser         BrowserKind
	Environment     EnvironmentKind
	Headless        bool
	WindowMaximize  bool
	ImplicitWait    time.Duration
	OperatingSystem OSKind
	Engine          EngineKind

	HomeURL    string
	CoursesURL string
	SubjectURL string

	// ReportConfigPath is passed through for external report generators.
	ReportConfigPath string

	Locators Locators
}

// Resolve parses and validates a flat configuration map. Every problem is
// reported as a *ConfigError before any browser is started.
func Resolve(values map[string]string) (*Settings, error) {
	s := &Settings{}
	var err error

	if s.Browser, err = matchEnum(values, KeyBrowser, BrowserChrome, browserKinds); err != nil {
		return nil, err
	}
	if s.Environment, err = matchEnum(values, KeyEnvironment, EnvironmentLocal, envKinds); err != nil {
		return nil, err
	}
	if s.OperatingSystem, err = matchEnum(values, KeyOperatingSystem, OSWindows, osKinds); err != nil {
		return nil, err
	}
	if s.Engine, err = matchEnum(values, KeyEngine, EnginePlaywright, engineKinds); err != nil {
		return nil, err
	}
	if s.Headless, err = parseBool(values, KeyHeadless, true); err != nil {
		return nil, err
	}
	if s.WindowMaximize, err = parseBool(values, KeyWindowMaximize, true); err != nil {
		return nil, err
	}

	wait, ok := lookup(values, KeyImplicitlyWait)
	if !ok {
		return nil, &ConfigError{Key: KeyImplicitlyWait, Reason: "not specified"}
	}
	seconds, convErr := strconv.ParseInt(wait, 10, 64)
	if convErr != nil {
		return nil, &ConfigError{Key: KeyImplicitlyWait, Value: wait, Reason: "not a whole number of seconds"}
	}
	if seconds < 0 {
		return nil, &ConfigError{Key: KeyImplicitlyWait, Value: wait, Reason: "must not be negative"}
	}
	s.ImplicitWait = time.Duration(seconds) * time.Second

	for _, u := range []struct {
		key  string
		dest *string
	}{
		{KeyHomeURL, &s.HomeURL},
		{KeyCoursesURL, &s.CoursesURL},
		{KeySubjectURL, &s.SubjectURL},
	} {
		v, ok := lookup(values, u.key)
		if !ok {
			return nil, &ConfigError{Key: u.key, Reason: "not specified"}
		}
		*u.dest = v
	}

	s.ReportConfigPath, _ = lookup(values, KeyReportConfigPath)

	if s.Locators, err = resolveLocators(values); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Settings) String() string {
	return fmt.Sprintf("browser=%s environment=%s engine=%s headless=%t maximize=%t implicitWait=%s os=%s",
		s.Browser, s.Environment, s.Engine, s.Headless, s.WindowMaximize, s.ImplicitWait, s.OperatingSystem)
}

// lookup returns a trimmed, non-empty value for key.
func lookup(values map[string]string, key string) (string, bool) {
	v, ok := values[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

func matchEnum[T ~string](values map[string]string, key string, def T, allowed []T) (T, error) {
	raw, ok := lookup(values, key)
	if !ok {
		return def, nil
	}
	for _, candidate := range allowed {
		if strings.EqualFold(raw, string(candidate)) {
			return candidate, nil
		}
	}
	return def, &ConfigError{Key: key, Value: raw, Reason: "value is not matched"}
}

func parseBool(values map[string]string, key string, def bool) (bool, error) {
	raw, ok := lookup(values, key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def, &ConfigError{Key: key, Value: raw, Reason: "not a boolean"}
	}
	return b, nil
}
