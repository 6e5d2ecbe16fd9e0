package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestAlertRules(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "telecrm.yml"))
	require.NoError(t, err)

	var spec alertSpec
	require.NoError(t, yaml.Unmarshal(data, &spec))

	expected := map[string]string{
		"HighErrorRate":     "critical",
		"HighLatency":       "warning",
		"JobFailures":       "warning",
		"ImportFailureRate": "warning",
	}

	seen := map[string]bool{}
	for _, group := range spec.Groups {
		for _, rule := range group.Rules {
			severity, ok := expected[rule.Alert]
			require.Truef(t, ok, "unexpected rule %q", rule.Alert)
			require.Equal(t, severity, rule.Labels["severity"], rule.Alert)
			require.NotEmpty(t, rule.Expr, rule.Alert)
			require.NotEmpty(t, rule.For, rule.Alert)
			require.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
			require.NotEmpty(t, rule.Annotations["runbook"], rule.Alert)
			seen[rule.Alert] = true
		}
	}
	require.Len(t, seen, len(expected))
}
