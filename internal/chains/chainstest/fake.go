// Package chainstest provides an in-memory chains.Client for tests.
package chainstest

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/quantumauth-io/wallet-dashboard/internal/chains"
)

// CallHandler answers eth_call for one contract.
type CallHandler func(data []byte) ([]byte, error)

type Client struct {
	URL string

	mu        sync.Mutex
	balances  map[common.Address]*big.Int
	contracts map[common.Address]CallHandler
	head      *big.Int
	closed    bool
	calls     int
}

func NewClient(url string) *Client {
	return &Client{
		URL:       url,
		balances:  map[common.Address]*big.Int{},
		contracts: map[common.Address]CallHandler{},
		head:      big.NewInt(1),
	}
}

func (c *Client) SetBalance(addr string, wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[common.HexToAddress(addr)] = new(big.Int).Set(wei)
}

func (c *Client) SetContract(addr string, h CallHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contracts[common.HexToAddress(addr)] = h
}

func (c *Client) SetHead(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = big.NewInt(n)
}

func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Calls counts every RPC served.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *Client) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if b, ok := c.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (c *Client) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	c.calls++
	var h CallHandler
	if call.To != nil {
		h = c.contracts[*call.To]
	}
	c.mu.Unlock()

	if h == nil {
		// no code at address
		return nil, nil
	}
	return h(call.Data)
}

func (c *Client) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &types.Header{Number: new(big.Int).Set(c.head)}, nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Dialer hands out one Client per URL and records them.
type Dialer struct {
	mu      sync.Mutex
	Clients map[string]*Client
	Dials   int
	Fail    map[string]bool
}

func NewDialer() *Dialer {
	return &Dialer{Clients: map[string]*Client{}, Fail: map[string]bool{}}
}

// Client returns (creating if needed) the client for url.
func (d *Dialer) Client(url string) *Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clientLocked(url)
}

func (d *Dialer) clientLocked(url string) *Client {
	c, ok := d.Clients[url]
	if !ok {
		c = NewClient(url)
		d.Clients[url] = c
	}
	return c
}

func (d *Dialer) Dial(_ context.Context, url string) (chains.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Dials++
	if d.Fail[strings.TrimSpace(url)] {
		return nil, errors.Newf("connection refused: %s", url)
	}
	return d.clientLocked(url), nil
}
