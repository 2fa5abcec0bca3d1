package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func requestWithParam(name, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestPathUUID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	got, err := PathUUID(requestWithParam("tenantId", id.String()), "tenantId")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = PathUUID(requestWithParam("tenantId", "not-a-uuid"), "tenantId")
	requireFieldError(t, err, "tenantId")
}

func TestQueryString(t *testing.T) {
	t.Parallel()

	value, err := QueryString(url.Values{"tenantId": {"general"}}, "tenantId")
	require.NoError(t, err)
	require.NotNil(t, value)
	require.Equal(t, "general", *value)

	value, err = QueryString(url.Values{}, "tenantId")
	require.NoError(t, err)
	require.Nil(t, value)
}

func TestOptionalUUID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	cases := []struct {
		name    string
		body    string
		set     bool
		value   *uuid.UUID
		wantErr bool
	}{
		{name: "absent", body: `{}`},
		{name: "null", body: `{"tenantId":null}`, set: true},
		{name: "empty", body: `{"tenantId":""}`, set: true},
		{name: "uuid", body: `{"tenantId":"` + id.String() + `"}`, set: true, value: &id},
		{name: "invalid", body: `{"tenantId":"nope"}`, wantErr: true},
		{name: "wrong type", body: `{"tenantId":42}`, wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var dst struct {
				TenantID OptionalUUID `json:"tenantId"`
			}
			err := json.Unmarshal([]byte(tc.body), &dst)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.set, dst.TenantID.Set)
			require.Equal(t, tc.value, dst.TenantID.Value)
		})
	}
}
