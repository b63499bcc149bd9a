// Package ruleset loads alert rule definitions from a YAML file and keeps
// the engine registry in sync when the file changes on disk.
package ruleset

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/telemon/telemon/internal/alerting/model"
	"gopkg.in/yaml.v3"
)

// ruleSpec is one entry of the rules file.
//
//	rules:
//	  - name: High CPU Usage
//	    metric: cpu_usage
//	    threshold: 80
//	    operator: ">"
//	    severity: warning
//	    cooldown: 5m
type ruleSpec struct {
	Name      string  `yaml:"name"`
	Metric    string  `yaml:"metric"`
	Threshold float64 `yaml:"threshold"`
	Operator  string  `yaml:"operator"`
	Severity  string  `yaml:"severity"`
	Cooldown  string  `yaml:"cooldown"`
}

type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

// Load parses the rules file at path into validated rules.
func Load(path string) ([]*model.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	rules := make([]*model.Rule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		cooldown := time.Duration(0)
		if spec.Cooldown != "" {
			cooldown, err = time.ParseDuration(spec.Cooldown)
			if err != nil {
				return nil, fmt.Errorf("rule %d (%s): invalid cooldown %q: %w", i, spec.Name, spec.Cooldown, err)
			}
		}
		r := &model.Rule{
			Name:       spec.Name,
			MetricName: spec.Metric,
			Threshold:  spec.Threshold,
			Operator:   model.Operator(spec.Operator),
			Severity:   model.Severity(spec.Severity),
			Cooldown:   cooldown,
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Registry is the subset of the engine the loader needs: append-only
// registration plus a duplicate check.
type Registry interface {
	AddRule(r *model.Rule) error
	HasRule(name, metric string) bool
}

// Bootstrap loads the rules file and registers every rule not already present
// in the registry. A missing path is a no-op. It returns the number of rules
// registered.
func Bootstrap(path string, reg Registry) (int, error) {
	if path == "" {
		return 0, nil
	}
	rules, err := Load(path)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, r := range rules {
		if reg.HasRule(r.Name, r.MetricName) {
			continue
		}
		if err := reg.AddRule(r); err != nil {
			return added, err
		}
		added++
	}
	log.Info().Int("count", added).Str("path", path).Msg("alert rules loaded from file")
	return added, nil
}
