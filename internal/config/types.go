// Package config provides shared configuration helpers for leapstar
// targets. It is decoupled from CLI concerns.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapstar/pkg/adapter"
	"github.com/leapstack-labs/leapstar/pkg/core"
)

// networkTypes are targets reached over the network rather than a file.
var networkTypes = map[string]bool{
	"postgres": true,
	"mysql":    true,
}

// ValidateTarget checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func ValidateTarget(t *core.TargetConfig) error {
	if t == nil {
		return fmt.Errorf("target is required")
	}
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	t.Type = strings.ToLower(t.Type)

	// Use adapter registry as single source of truth
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}

	if networkTypes[t.Type] {
		if t.Database == "" {
			return fmt.Errorf("target.database is required for %s", t.Type)
		}
		if t.Port < 0 || t.Port > 65535 {
			return fmt.Errorf("target.port %d is out of range", t.Port)
		}
	}

	return nil
}
