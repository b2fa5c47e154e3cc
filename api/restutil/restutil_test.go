// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restutil_test

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratapool/strata/api/restutil"
	"github.com/stratapool/strata/pool/poolerr"
)

func serve(t *testing.T, h restutil.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	restutil.WrapHandlerFunc(h)(rec, httptest.NewRequest("GET", "/", nil))
	return rec
}

func TestWrapHandlerFunc(t *testing.T) {
	rec := serve(t, func(w http.ResponseWriter, _ *http.Request) error {
		return restutil.WriteJSON(w, restutil.M{"ok": true})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, restutil.JSONContentType, rec.Header().Get("Content-Type"))

	rec = serve(t, func(http.ResponseWriter, *http.Request) error {
		return restutil.BadRequest(errors.New("bad input"))
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad input")

	rec = serve(t, func(http.ResponseWriter, *http.Request) error {
		return restutil.HTTPError(nil, http.StatusTeapot)
	})
	assert.Equal(t, http.StatusTeapot, rec.Code)

	// unclassified errors become internal server errors
	rec = serve(t, func(http.ResponseWriter, *http.Request) error {
		return errors.New("boom")
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDomainError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{poolerr.Validation("zero amount"), http.StatusBadRequest},
		{poolerr.Authorization("lacks role"), http.StatusForbidden},
		{poolerr.External(errors.New("feed down")), http.StatusBadGateway},
		{poolerr.Invariant("underflow"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := serve(t, func(http.ResponseWriter, *http.Request) error {
			return restutil.DomainError(tc.err)
		})
		assert.Equal(t, tc.status, rec.Code, tc.err)
	}
}

func TestParseJSONStrict(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, restutil.ParseJSON(strings.NewReader(`{"name":"a"}`), &v))
	assert.Equal(t, "a", v.Name)

	assert.Error(t, restutil.ParseJSON(strings.NewReader(`{"name":"a","extra":1}`), &v))
}

func TestQuantity(t *testing.T) {
	q := restutil.NewQuantity(big.NewInt(12345))

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Equal(t, `"12345"`, string(data))

	var decoded restutil.Quantity
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Zero(t, decoded.Int().Cmp(big.NewInt(12345)))

	assert.Error(t, json.Unmarshal([]byte(`"12x"`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`12`), &decoded))

	// nil wraps to zero
	assert.Zero(t, restutil.NewQuantity(nil).Int().Sign())
}
