package assets_test

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/wallet-dashboard/internal/assets"
	"github.com/quantumauth-io/wallet-dashboard/internal/assets/assetstest"
	"github.com/quantumauth-io/wallet-dashboard/internal/chains/chainstest"
)

const (
	daiAddr  = "0x6b175474e89094c44da98b954eedeac495271d0f"
	usdcAddr = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	owner    = "0x00000000000000000000000000000000000000aa"
)

func newManager(t *testing.T) *assets.Manager {
	t.Helper()
	m, err := assets.NewManager(filepath.Join(t.TempDir(), "assets.json"))
	require.NoError(t, err)
	require.NoError(t, m.Load(context.Background()))
	return m
}

func TestManager_AddTokenIsIdempotent(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	added, err := m.AddToken(ctx, "Rinkeby", assets.Asset{Address: daiAddr, Symbol: "DAI", Decimals: 18})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = m.AddToken(ctx, "rinkeby", assets.Asset{Address: common.HexToAddress(daiAddr).Hex(), Symbol: "DAI2"})
	require.NoError(t, err)
	assert.False(t, added)

	list := m.ListForNetwork("RINKEBY")
	require.Len(t, list, 1)
	assert.Equal(t, "DAI", list[0].Symbol)
	assert.Equal(t, common.HexToAddress(daiAddr).Hex(), list[0].Address)
	assert.True(t, m.Contains("rinkeby", "6B175474E89094C44DA98B954EEDEAC495271D0F"))
}

func TestManager_PersistsAndReloads(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	_, err := m.AddToken(ctx, "rinkeby", assets.Asset{Address: usdcAddr, Symbol: "USDC", Decimals: 6})
	require.NoError(t, err)
	_, err = m.AddToken(ctx, "rinkeby", assets.Asset{Address: daiAddr, Symbol: "DAI", Decimals: 18})
	require.NoError(t, err)

	reloaded, err := assets.NewManager(m.Path())
	require.NoError(t, err)
	require.NoError(t, reloaded.Load(ctx))

	list := reloaded.ListForNetwork("rinkeby")
	require.Len(t, list, 2)
	assert.Equal(t, "DAI", list[0].Symbol)
	assert.Equal(t, "USDC", list[1].Symbol)

	require.NoError(t, reloaded.RemoveToken(ctx, "rinkeby", usdcAddr))
	require.NoError(t, reloaded.RemoveToken(ctx, "rinkeby", usdcAddr))
	assert.Len(t, reloaded.ListForNetwork("rinkeby"), 1)
}

func TestManager_LoadSkipsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.json")
	raw := `{"schema":1,"networks":{" Rinkeby ":{"not-an-address":{"symbol":"X"},"` + daiAddr + `":{"symbol":"DAI","decimals":18}}}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	m, err := assets.NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.Load(context.Background()))

	list := m.ListForNetwork("rinkeby")
	require.Len(t, list, 1)
	assert.Equal(t, common.HexToAddress(daiAddr).Hex(), list[0].Address)
}

func TestManager_AddTokenRejectsBadInput(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	_, err := m.AddToken(ctx, "", assets.Asset{Address: daiAddr})
	require.Error(t, err)
	_, err = m.AddToken(ctx, "rinkeby", assets.Asset{Address: "0x123"})
	require.Error(t, err)
}

func TestManager_EnsureDefaults(t *testing.T) {
	m := newManager(t)
	client := chainstest.NewClient("rpc")
	client.SetContract(usdcAddr, assetstest.NewToken("USDC", "USD Coin", 6).Handle)

	require.NoError(t, m.EnsureDefaults(context.Background(), "rinkeby", []string{usdcAddr}, client))
	list := m.ListForNetwork("rinkeby")
	require.Len(t, list, 1)
	assert.Equal(t, assets.Asset{Address: common.HexToAddress(usdcAddr).Hex(), Symbol: "USDC", Decimals: 6, Name: "USD Coin"}, list[0])

	calls := client.Calls()
	require.NoError(t, m.EnsureDefaults(context.Background(), "rinkeby", []string{usdcAddr}, client))
	assert.Equal(t, calls, client.Calls(), "present defaults are not fetched again")

	err := m.EnsureDefaults(context.Background(), "rinkeby", []string{daiAddr}, client)
	require.ErrorIs(t, err, assets.ErrNoContract)
}

func TestBalanceOf(t *testing.T) {
	client := chainstest.NewClient("rpc")
	token := assetstest.NewToken("DAI", "Dai", 18).SetBalance(owner, big.NewInt(42))
	client.SetContract(daiAddr, token.Handle)
	ctx := context.Background()

	bal, err := assets.BalanceOf(ctx, client, common.HexToAddress(daiAddr), common.HexToAddress(owner))
	require.NoError(t, err)
	assert.Equal(t, int64(42), bal.Int64())

	bal, err = assets.BalanceOf(ctx, client, common.HexToAddress(daiAddr), common.Address{})
	require.NoError(t, err)
	assert.Zero(t, bal.Sign())

	_, err = assets.BalanceOf(ctx, client, common.HexToAddress(usdcAddr), common.HexToAddress(owner))
	require.ErrorIs(t, err, assets.ErrNoContract)
}
