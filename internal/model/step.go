package model

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Empty is stored for every blank setter input.
	Empty = ""

	DefaultClientPath     = `$TRICENTIS_HOME\ToscaCI\Client\ToscaCIJavaClient.jar`
	DefaultConfigFilePath = `$TRICENTIS_HOME\ToscaCI\Client\Testconfig.xml`
	DefaultEndpoint       = "http://servername/DistributionServerService/ManagerService.svc"
	ResultsFileName       = "results.xml"

	// dexService marks an endpoint of the distributed execution server
	dexService = "managerservice.svc"
)

// RunConfiguration holds the settings of one configured build step.
// A nil field was never set and falls back to its default.
type RunConfiguration struct {
	clientPath     *string
	endpoint       *string
	configFilePath *string
	testEvents     *string
}

func NewRunConfiguration(clientPath, endpoint string) *RunConfiguration {
	c := &RunConfiguration{}
	c.SetClientPath(clientPath)
	c.SetEndpoint(endpoint)
	return c
}

func (c *RunConfiguration) ClientPath() string {
	return getOr(c.clientPath, DefaultClientPath)
}

func (c *RunConfiguration) SetClientPath(path string) {
	c.clientPath = normalized(path, true)
}

func (c *RunConfiguration) Endpoint() string {
	return getOr(c.endpoint, DefaultEndpoint)
}

func (c *RunConfiguration) SetEndpoint(endpoint string) {
	c.endpoint = normalized(endpoint, false)
}

func (c *RunConfiguration) ConfigFilePath() string {
	return getOr(c.configFilePath, DefaultConfigFilePath)
}

func (c *RunConfiguration) SetConfigFilePath(path string) {
	c.configFilePath = normalized(path, true)
}

func (c *RunConfiguration) TestEvents() string {
	return getOr(c.testEvents, Empty)
}

// SetTestEvents keeps the value as given, blank input collapses to Empty.
func (c *RunConfiguration) SetTestEvents(events string) {
	v := events
	if strings.TrimSpace(events) == "" {
		v = Empty
	}
	c.testEvents = &v
}

func (c *RunConfiguration) ResultsFile() string {
	return ResultsFileName
}

// Missing returns the name of the first required field which was
// explicitly set to an empty value.
func (c *RunConfiguration) Missing() (string, bool) {
	if strings.TrimSpace(c.ClientPath()) == "" {
		return MsgClientPath.String(), true
	}
	if strings.TrimSpace(c.Endpoint()) == "" {
		return MsgEndpoint.String(), true
	}
	return "", false
}

// Validate checks the mutual exclusivity of the configuration file path and
// test events for the execution mode derived from the endpoint.
func (c *RunConfiguration) Validate() error {
	return ValidateOnlyOne(c.TestEvents(), c.ConfigFilePath(), c.Endpoint())
}

// IsDex reports whether the endpoint points to a distributed execution server.
func IsDex(endpoint string) bool {
	return strings.Contains(strings.ToLower(endpoint), dexService)
}

// ValidateOnlyOne enforces exactly one of testEvents and configPath for DEX
// endpoints and at most one, without test events, for the others.
func ValidateOnlyOne(testEvents, configPath, endpoint string) error {
	hasEvents := strings.TrimSpace(testEvents) != ""
	hasConfig := strings.TrimSpace(configPath) != ""
	if IsDex(endpoint) {
		if hasEvents == hasConfig {
			return NewConfigError("testEvents", MsgOnlyOne)
		}
		return nil
	}
	if hasEvents && hasConfig {
		return NewConfigError("testEvents", MsgAtMostOne)
	}
	if hasEvents {
		return NewConfigError("testEvents", MsgDexOnly)
	}
	return nil
}

// NormalizePath trims the path and strips one leading and one trailing
// double quote, each independently of the other.
func NormalizePath(path string) string {
	p := strings.TrimSpace(path)
	p = strings.TrimPrefix(p, `"`)
	p = strings.TrimSuffix(p, `"`)
	return p
}

type runConfigurationYAML struct {
	ClientPath     *string `yaml:"tricentisClientPath,omitempty" json:"tricentisClientPath,omitempty"`
	Endpoint       *string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	ConfigFilePath *string `yaml:"configurationFilePath,omitempty" json:"configurationFilePath,omitempty"`
	TestEvents     *string `yaml:"testEvents,omitempty" json:"testEvents,omitempty"`
}

func (c RunConfiguration) MarshalYAML() (any, error) {
	return runConfigurationYAML{
		ClientPath:     c.clientPath,
		Endpoint:       c.endpoint,
		ConfigFilePath: c.configFilePath,
		TestEvents:     c.testEvents,
	}, nil
}

func (c *RunConfiguration) UnmarshalYAML(node *yaml.Node) error {
	var raw runConfigurationYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.apply(raw)
	return nil
}

func (c *RunConfiguration) apply(raw runConfigurationYAML) {
	*c = RunConfiguration{}
	if raw.ClientPath != nil {
		c.SetClientPath(*raw.ClientPath)
	}
	if raw.Endpoint != nil {
		c.SetEndpoint(*raw.Endpoint)
	}
	if raw.ConfigFilePath != nil {
		c.SetConfigFilePath(*raw.ConfigFilePath)
	}
	if raw.TestEvents != nil {
		c.SetTestEvents(*raw.TestEvents)
		// inline events replace the default descriptor path
		if raw.ConfigFilePath == nil && c.TestEvents() != Empty {
			c.SetConfigFilePath(Empty)
		}
	}
}

func normalized(value string, path bool) *string {
	v := strings.TrimSpace(value)
	switch {
	case v == "":
		v = Empty
	case path:
		v = NormalizePath(v)
	}
	return &v
}

func getOr(p *string, dflt string) string {
	if p == nil {
		return dflt
	}
	return *p
}
