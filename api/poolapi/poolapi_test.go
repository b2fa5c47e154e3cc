// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package poolapi

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratapool/strata/lvldb"
	"github.com/stratapool/strata/pool"
	"github.com/stratapool/strata/pool/extstake"
	"github.com/stratapool/strata/strata"
	"github.com/stratapool/strata/test/datagen"
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), strata.PriceScale)
}

type testServer struct {
	url       string
	pool      *pool.Pool
	depositor strata.Address
	asset     strata.Address
}

func newTestServer(t *testing.T) *testServer {
	db, err := lvldb.NewMem()
	require.NoError(t, err)

	admin := datagen.RandAddress()
	depositor := datagen.RandAddress()
	asset := datagen.RandAddress()

	p := pool.New(db, extstake.NewMemProtocol(), pool.Options{})
	require.NoError(t, p.Bootstrap(&pool.BootstrapConfig{
		Admin: admin,
		Assets: []pool.AssetConfig{
			{Address: asset, Decimals: 18, InitialRate: units(1)},
		},
	}))
	_, err = p.Deposit(depositor, []strata.Address{asset}, []*big.Int{units(100)})
	require.NoError(t, err)

	router := mux.NewRouter()
	New(p).Mount(router, "/pool")
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{
		url:       server.URL,
		pool:      p,
		depositor: depositor,
		asset:     asset,
	}
}

func httpGet(t *testing.T, url string, out any) int {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if out != nil && res.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal(body, out))
	}
	return res.StatusCode
}

func TestGetSummary(t *testing.T) {
	ts := newTestServer(t)

	var summary Summary
	code := httpGet(t, ts.url+"/pool", &summary)
	require.Equal(t, http.StatusOK, code)

	assert.False(t, summary.Paused)
	assert.Equal(t, units(100), summary.TotalAssets.Int())
	assert.Equal(t, units(100), summary.TotalSupply.Int())
	assert.Zero(t, summary.PendingWithdrawalShares.Int().Sign())
	assert.Equal(t, uint64(strata.DefaultMaxNodes), summary.MaxNodes)
}

func TestGetAssets(t *testing.T) {
	ts := newTestServer(t)

	var details []*AssetDetail
	code := httpGet(t, ts.url+"/pool/assets", &details)
	require.Equal(t, http.StatusOK, code)

	require.Len(t, details, 1)
	assert.Equal(t, ts.asset, details[0].Address)
	assert.Equal(t, units(1), details[0].Price.Int())
	assert.Equal(t, units(100), details[0].UnstakedBalance.Int())
	assert.Zero(t, details[0].QueuedBalance.Int().Sign())

	var detail AssetDetail
	code = httpGet(t, ts.url+"/pool/assets/"+ts.asset.String(), &detail)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, ts.asset, detail.Address)
}

func TestGetAssetBadAddress(t *testing.T) {
	ts := newTestServer(t)
	code := httpGet(t, ts.url+"/pool/assets/nonsense", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetUnlistedAsset(t *testing.T) {
	ts := newTestServer(t)
	code := httpGet(t, ts.url+"/pool/assets/"+datagen.RandAddress().String(), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetHolder(t *testing.T) {
	ts := newTestServer(t)

	var balance HolderBalance
	code := httpGet(t, ts.url+"/pool/holders/"+ts.depositor.String(), &balance)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, units(100), balance.Balance.Int())

	// unknown holders read as zero
	code = httpGet(t, ts.url+"/pool/holders/"+datagen.RandAddress().String(), &balance)
	require.Equal(t, http.StatusOK, code)
	assert.Zero(t, balance.Balance.Int().Sign())
}

func TestConvert(t *testing.T) {
	ts := newTestServer(t)

	var conversion Conversion
	code := httpGet(t, ts.url+"/pool/assets/"+ts.asset.String()+"/convert?amount="+units(10).String(), &conversion)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, units(10), conversion.Shares.Int())

	code = httpGet(t, ts.url+"/pool/assets/"+ts.asset.String()+"/convert?shares="+units(10).String(), &conversion)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, units(10), conversion.Amount.Int())
}

func TestConvertParamValidation(t *testing.T) {
	ts := newTestServer(t)
	base := ts.url + "/pool/assets/" + ts.asset.String() + "/convert"

	assert.Equal(t, http.StatusBadRequest, httpGet(t, base, nil))
	assert.Equal(t, http.StatusBadRequest, httpGet(t, base+"?amount=1&shares=1", nil))
	assert.Equal(t, http.StatusBadRequest, httpGet(t, base+"?amount=abc", nil))
	assert.Equal(t, http.StatusBadRequest, httpGet(t, base+"?amount=-5", nil))
}
