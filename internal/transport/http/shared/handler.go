package shared

import (
	"context"
	"log/slog"
	"net/http"

	"kpireview/internal/domain/entitystore"
	"kpireview/internal/requestctx"
)

// Cache is the entity store surface handlers read from and refresh after writes.
type Cache interface {
	Snapshot() *entitystore.Snapshot
	RefreshCollection(ctx context.Context, c entitystore.Collection) error
}

// Refresh reloads the named collections after a committed write. A failed
// reload keeps the previous snapshot and is only logged.
func Refresh(ctx context.Context, cache Cache, collections ...entitystore.Collection) {
	if cache == nil {
		return
	}
	for _, c := range collections {
		if err := cache.RefreshCollection(ctx, c); err != nil {
			slog.Warn("entity store refresh failed", "collection", c, "err", err)
		}
	}
}

type AuditRecorder interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

// Audit records an event for the calling user; failures are logged only.
func Audit(r *http.Request, rec AuditRecorder, actorID, action, entityType, entityID string, before, after any) {
	if rec == nil {
		return
	}
	requestID := requestctx.GetRequestID(r.Context())
	if err := rec.Record(r.Context(), actorID, action, entityType, entityID, requestID, ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "entityType", entityType, "err", err)
	}
}
