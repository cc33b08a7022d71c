// Package identity resolves the calling actor from a bearer token or from
// identity headers set by the gateway.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/slotwise/libs/auth"
	"github.com/md-rashed-zaman/slotwise/libs/httpx"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
)

const (
	HeaderUserID     = "X-User-Id"
	HeaderRole       = "X-Role"
	HeaderBusinessID = "X-Business-Id"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnknownRole     = errors.New("unknown role")
	ErrMissingBusiness = errors.New("merchant without business")
)

type ctxKey struct{}

func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(model.Actor)
	return a, ok
}

// Authenticator builds a model.Actor per request. Headers are only trusted
// when TrustHeaders is set, i.e. behind the gateway.
type Authenticator struct {
	Verifier     auth.Verifier
	TrustHeaders bool
}

func (a Authenticator) Resolve(r *http.Request) (model.Actor, error) {
	if token, ok := bearer(r); ok && a.Verifier.Enabled() {
		claims, err := a.Verifier.Verify(r.Context(), token)
		if err != nil {
			return model.Actor{}, err
		}
		return actor(claims.Subject, claims.Role, claims.BusinessID)
	}
	if a.TrustHeaders {
		if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
			return actor(id, r.Header.Get(HeaderRole), r.Header.Get(HeaderBusinessID))
		}
	}
	return model.Actor{}, ErrUnauthenticated
}

// Require rejects requests without a valid actor with 401.
func (a Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		act, err := a.Resolve(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="booking"`)
			httpx.WriteCodedError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), act)))
	})
}

func actor(id, rawRole, businessID string) (model.Actor, error) {
	role, ok := model.ParseRole(rawRole)
	if !ok {
		return model.Actor{}, ErrUnknownRole
	}
	act := model.Actor{ID: strings.TrimSpace(id), Role: role}
	if act.ID == "" {
		return model.Actor{}, ErrUnauthenticated
	}
	if role == model.RoleMerchant {
		act.BusinessID = strings.TrimSpace(businessID)
		if act.BusinessID == "" {
			return model.Actor{}, ErrMissingBusiness
		}
	}
	return act, nil
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
