package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dchoinie/church-membership-app-sub003/modules/core/infrastructure/persistence"
)

// parseTenantRef reports whether raw is a tenant UUID. Anything that
// does not parse is treated as a tenant domain.
func parseTenantRef(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// resolveTenant turns --tenant (UUID or domain) into a tenant ID. The
// ctx must carry a pool for the domain lookup.
func resolveTenant(ctx context.Context, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, withCode(exitUsage, fmt.Errorf("--tenant is required"))
	}
	if id, ok := parseTenantRef(raw); ok {
		return id, nil
	}

	t, err := persistence.NewTenantRepository().GetByDomain(ctx, raw)
	if err != nil {
		if is(err, persistence.ErrTenantNotFound) {
			return uuid.Nil, withCode(exitUsage, fmt.Errorf("unknown tenant %q", raw))
		}
		return uuid.Nil, withCode(exitDB, fmt.Errorf("resolve tenant %q: %w", raw, err))
	}
	return t.ID(), nil
}
