package hook

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest declares which built-in hooks to enable at startup. It is read
// from an optional hooks.yaml:
//
//	hooks:
//	  - name: telemetry
//	    enabled: true
//	  - name: audit
//	    enabled: true
type Manifest struct {
	Hooks []ManifestEntry `yaml:"hooks"`
}

// ManifestEntry is one declared hook.
type ManifestEntry struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
}

// LoadManifest parses a hooks manifest file. A missing file is not an
// error; it yields an empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("read hook manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse hook manifest: %w", err)
	}
	return &m, nil
}

// Apply registers the manifest's enabled hooks on the bus. Unknown hook
// names are an error; silently ignoring a policy hook would be worse than
// failing startup. auditDir locates the audit log for the audit hook.
func (m *Manifest) Apply(b *Bus, auditDir string) error {
	for _, entry := range m.Hooks {
		if !entry.Enabled {
			continue
		}
		switch entry.Name {
		case "telemetry":
			RegisterTelemetry(b)
		case "audit":
			RegisterAudit(b, auditDir)
		default:
			return fmt.Errorf("unknown hook %q in manifest", entry.Name)
		}
	}
	return nil
}
