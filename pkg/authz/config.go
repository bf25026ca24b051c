package authz

import (
	"github.com/sirupsen/logrus"
)

// DefaultModel is a role based model with wildcard objects and actions.
const DefaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// Config captures all inputs necessary to initialize the Casbin enforcer.
// Policy holds CSV policy lines; PolicyPath, when set, replaces them with a
// policy file on disk.
type Config struct {
	Model        string
	Policy       string
	PolicyPath   string
	FlagProvider FlagProvider
	Logger       *logrus.Logger
}

func (c Config) validate() error {
	if c.Policy == "" && c.PolicyPath == "" {
		return configError("missing policy")
	}
	return nil
}

func (c Config) normalized() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.FlagProvider == nil {
		c.FlagProvider = StaticMode(ModeEnforce)
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}
