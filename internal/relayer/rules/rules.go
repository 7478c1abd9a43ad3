// Package rules holds the event-name -> EventRuleConfig lookup table the
// consumer's rules engine branches on, grounded on config.py's
// get_relayer_event_rule.
package rules

import (
	"fmt"
	"strings"

	"github.com/chaincraft-labs/bridge-relayer/internal/relayer/domain"
)

// Table is an immutable, case-insensitive event-name lookup, loaded once
// from the [relayer_event_rules] TOML table at startup.
type Table struct {
	rules map[string]domain.EventRuleConfig
}

// NewTable builds a Table from the parsed TOML rule set.
func NewTable(rules map[string]domain.EventRuleConfig) *Table {
	t := &Table{rules: make(map[string]domain.EventRuleConfig, len(rules))}
	for name, rule := range rules {
		t.rules[strings.ToLower(name)] = rule
	}
	return t
}

// Lookup mirrors get_relayer_event_rule: returns ErrConfigEventRuleKeyError
// if no rule is configured for eventName.
func (t *Table) Lookup(eventName string) (domain.EventRuleConfig, error) {
	rule, ok := t.rules[strings.ToLower(eventName)]
	if !ok {
		return domain.EventRuleConfig{}, fmt.Errorf("%w: event_name=%s", domain.ErrConfigEventRuleKeyError, eventName)
	}
	return rule, nil
}

// DependsOn mirrors depend_on_event: returns "" if eventName has no rule or
// no dependency, swallowing the lookup failure the same way the Python
// method logs-and-returns-None instead of propagating.
func (t *Table) DependsOn(eventName string) string {
	rule, err := t.Lookup(eventName)
	if err != nil {
		return ""
	}
	return rule.DependsOn
}
