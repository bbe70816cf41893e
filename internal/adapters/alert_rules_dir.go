package adapters

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"generic-exporter/internal/core"
	"generic-exporter/internal/ports"
)

const (
	DefaultRulesParentDir = "/run"
	AlertRulesFile        = "alerts.yaml"
)

// AlertRulesDirAdapter owns the per-instance directory that a metrics
// agent scrapes for alerting rules.
type AlertRulesDirAdapter struct {
	Dir string
}

// NewAlertRulesDirAdapter places the rules under <parent>/<app>-<unit>,
// where unit is the suffix of a "name/N" peer id.
func NewAlertRulesDirAdapter(parent string, appName string, peerID string) AlertRulesDirAdapter {
	if strings.TrimSpace(parent) == "" {
		parent = DefaultRulesParentDir
	}
	return AlertRulesDirAdapter{Dir: filepath.Join(parent, appName+"-"+unitIndex(peerID))}
}

func unitIndex(peerID string) string {
	if idx := strings.LastIndex(peerID, "/"); idx >= 0 && idx < len(peerID)-1 {
		return core.NormalizePeerID(peerID[idx+1:])
	}
	return core.NormalizePeerID(peerID)
}

func (a AlertRulesDirAdapter) Path() string {
	return filepath.Join(a.Dir, AlertRulesFile)
}

// Install copies the rules file after checking it is a YAML mapping or
// sequence. Empty sources report false without touching the directory.
func (a AlertRulesDirAdapter) Install(sourcePath string) (bool, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to read alert rules " + sourcePath).
			WithCause(err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return false, nil
	}
	if err := validateAlertRules(content); err != nil {
		return false, err
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create alert rules directory").
			WithCause(err)
	}
	if err := os.WriteFile(a.Path(), []byte(content), 0644); err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write alert rules").
			WithCause(err)
	}
	return true, nil
}

func (a AlertRulesDirAdapter) Read() (string, string, bool, error) {
	path := a.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, "", false, nil
		}
		return path, "", false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read alert rules").
			WithCause(err)
	}
	return path, strings.TrimSpace(string(data)), true, nil
}

func (a AlertRulesDirAdapter) Clear() error {
	if err := os.RemoveAll(a.Dir); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to remove alert rules directory").
			WithCause(err)
	}
	return nil
}

func validateAlertRules(content string) error {
	var parsed any
	if err := yaml.Unmarshal([]byte(content), &parsed); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("alert rules are not valid YAML").
			WithCause(err)
	}
	switch parsed.(type) {
	case map[string]any, []any:
		return nil
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("alert rules must be a YAML mapping or sequence")
	}
}

var _ ports.AlertRulesPort = AlertRulesDirAdapter{}
