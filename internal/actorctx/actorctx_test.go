package actorctx

import (
	"context"
	"testing"
)

func TestIdentityRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{UserID: 3, Role: "patient"})

	id, ok := IdentityFrom(ctx)
	if !ok || id.UserID != 3 || id.Role != "patient" {
		t.Fatalf("unexpected identity %+v ok=%v", id, ok)
	}
}

func TestIdentityFrom_Anonymous(t *testing.T) {
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatalf("expected no identity on a bare context")
	}

	ctx := WithIdentity(context.Background(), Identity{})
	if _, ok := IdentityFrom(ctx); ok {
		t.Fatalf("expected zero identity to count as anonymous")
	}
}
