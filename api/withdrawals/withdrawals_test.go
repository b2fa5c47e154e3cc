// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package withdrawals

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

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

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	url       string
	handler   *Withdrawals
	pool      *pool.Pool
	clk       *clock
	requester strata.Address
	asset     strata.Address
}

func newTestServer(t *testing.T) *testServer {
	db, err := lvldb.NewMem()
	require.NoError(t, err)

	admin := datagen.RandAddress()
	requester := datagen.RandAddress()
	asset := datagen.RandAddress()
	clk := &clock{now: time.Unix(1700000000, 0)}

	p := pool.New(db, extstake.NewMemProtocol(), pool.Options{Now: clk.Now})
	require.NoError(t, p.Bootstrap(&pool.BootstrapConfig{
		Admin:           admin,
		MaturationDelay: time.Hour,
		Assets: []pool.AssetConfig{
			{Address: asset, Decimals: 18, InitialRate: units(1)},
		},
	}))
	_, err = p.Deposit(requester, []strata.Address{asset}, []*big.Int{units(100)})
	require.NoError(t, err)

	handler := New(p)
	router := mux.NewRouter()
	handler.Mount(router, "/withdrawals")
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{
		url:       server.URL,
		handler:   handler,
		pool:      p,
		clk:       clk,
		requester: requester,
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

func TestGetRequestLifecycle(t *testing.T) {
	ts := newTestServer(t)

	id, err := ts.pool.RequestWithdrawal(ts.requester, []strata.Address{ts.asset}, []*big.Int{units(40)})
	require.NoError(t, err)

	var record Request
	code := httpGet(t, ts.url+"/withdrawals/0", &record)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, ts.requester, record.Requester)
	assert.Equal(t, "pending", record.Status)
	require.Len(t, record.Entries, 1)
	assert.Equal(t, units(40), record.Entries[0].Shares.Int())
	assert.Nil(t, record.Entries[0].Payout)

	ts.clk.Advance(2 * time.Hour)
	_, err = ts.pool.FulfillWithdrawal(ts.requester, id)
	require.NoError(t, err)

	code = httpGet(t, ts.url+"/withdrawals/0", &record)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "fulfilled", record.Status)
	require.NotNil(t, record.Entries[0].Payout)
	assert.Equal(t, units(40), record.Entries[0].Payout.Int())
	assert.NotZero(t, record.FulfilledAt)
}

func TestFulfilledRequestCached(t *testing.T) {
	ts := newTestServer(t)

	id, err := ts.pool.RequestWithdrawal(ts.requester, []strata.Address{ts.asset}, []*big.Int{units(10)})
	require.NoError(t, err)

	// pending records never enter the cache
	code := httpGet(t, ts.url+"/withdrawals/0", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Zero(t, ts.handler.cache.Len())

	ts.clk.Advance(2 * time.Hour)
	_, err = ts.pool.FulfillWithdrawal(ts.requester, id)
	require.NoError(t, err)

	code = httpGet(t, ts.url+"/withdrawals/0", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, ts.handler.cache.Len())

	// second read is served from the cache
	var record Request
	code = httpGet(t, ts.url+"/withdrawals/0", &record)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "fulfilled", record.Status)
}

func TestGetByRequester(t *testing.T) {
	ts := newTestServer(t)

	_, err := ts.pool.RequestWithdrawal(ts.requester, []strata.Address{ts.asset}, []*big.Int{units(10)})
	require.NoError(t, err)
	_, err = ts.pool.RequestWithdrawal(ts.requester, []strata.Address{ts.asset}, []*big.Int{units(20)})
	require.NoError(t, err)

	var records []*Request
	code := httpGet(t, ts.url+"/withdrawals/requester/"+ts.requester.String(), &records)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(0), records[0].ID)
	assert.Equal(t, uint64(1), records[1].ID)

	code = httpGet(t, ts.url+"/withdrawals/requester/"+datagen.RandAddress().String(), &records)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, records)
}

func TestGetCount(t *testing.T) {
	ts := newTestServer(t)

	var out struct {
		Count uint64 `json:"count"`
	}
	code := httpGet(t, ts.url+"/withdrawals", &out)
	require.Equal(t, http.StatusOK, code)
	assert.Zero(t, out.Count)

	_, err := ts.pool.RequestWithdrawal(ts.requester, []strata.Address{ts.asset}, []*big.Int{units(10)})
	require.NoError(t, err)

	code = httpGet(t, ts.url+"/withdrawals", &out)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint64(1), out.Count)
}

func TestGetUnknownRequest(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, httpGet(t, ts.url+"/withdrawals/42", nil))
}
