package identity

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotwise/libs/auth"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
)

const secret = "test-secret"

func TestResolveBearer(t *testing.T) {
	a := Authenticator{Verifier: auth.Verifier{Secret: secret}}
	token, err := auth.SignHS256(auth.NewClaims("merchant-1", "owner", "biz-1", time.Minute), secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	got, err := a.Resolve(r)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := model.Actor{ID: "merchant-1", Role: model.RoleMerchant, BusinessID: "biz-1"}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestResolveBadToken(t *testing.T) {
	a := Authenticator{Verifier: auth.Verifier{Secret: secret}, TrustHeaders: true}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer not-a-jwt")
	r.Header.Set(HeaderUserID, "client-1")
	r.Header.Set(HeaderRole, "client")

	if _, err := a.Resolve(r); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestResolveHeaders(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		trust   bool
		want    model.Actor
		wantErr error
	}{
		{
			name:    "client",
			headers: map[string]string{HeaderUserID: "c-1", HeaderRole: "customer"},
			trust:   true,
			want:    model.Actor{ID: "c-1", Role: model.RoleClient},
		},
		{
			name:    "client business header ignored",
			headers: map[string]string{HeaderUserID: "c-1", HeaderRole: "client", HeaderBusinessID: "biz-1"},
			trust:   true,
			want:    model.Actor{ID: "c-1", Role: model.RoleClient},
		},
		{
			name:    "merchant",
			headers: map[string]string{HeaderUserID: "m-1", HeaderRole: "staff", HeaderBusinessID: "biz-1"},
			trust:   true,
			want:    model.Actor{ID: "m-1", Role: model.RoleMerchant, BusinessID: "biz-1"},
		},
		{
			name:    "merchant without business",
			headers: map[string]string{HeaderUserID: "m-1", HeaderRole: "merchant"},
			trust:   true,
			wantErr: ErrMissingBusiness,
		},
		{
			name:    "unknown role",
			headers: map[string]string{HeaderUserID: "x", HeaderRole: "superuser"},
			trust:   true,
			wantErr: ErrUnknownRole,
		},
		{
			name:    "headers not trusted",
			headers: map[string]string{HeaderUserID: "c-1", HeaderRole: "client"},
			wantErr: ErrUnauthenticated,
		},
		{
			name:    "nothing",
			trust:   true,
			wantErr: ErrUnauthenticated,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			got, err := Authenticator{TrustHeaders: tc.trust}.Resolve(r)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	a := Authenticator{TrustHeaders: true}
	var seen model.Actor
	h := a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate header")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderUserID, "c-1")
	r.Header.Set(HeaderRole, "client")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if seen.ID != "c-1" || seen.Role != model.RoleClient {
		t.Fatalf("unexpected actor %+v", seen)
	}
}
