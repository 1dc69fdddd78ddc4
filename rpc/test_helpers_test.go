package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lober-org/welovedogs/core"
	"github.com/lober-org/welovedogs/crypto"
	"github.com/lober-org/welovedogs/indexer"
	"github.com/lober-org/welovedogs/storage"
)

const testAuthToken = "rpc-test-token"

type testAccount struct {
	key  *crypto.PrivateKey
	addr [20]byte
}

func newAccount(t testing.TB) testAccount {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return testAccount{key: key, addr: key.PubKey().Address().Raw()}
}

func (a testAccount) String() string { return crypto.AddressFromRaw(a.addr).String() }

type testEnv struct {
	node   *core.Node
	index  *indexer.Indexer
	server *Server
}

func newTestEnv(t testing.TB, cfg Config, withIndex bool) *testEnv {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), core.Config{})
	require.NoError(t, err)
	var ix *indexer.Indexer
	if withIndex {
		db, err := indexer.Open(filepath.Join(t.TempDir(), "index.db"))
		require.NoError(t, err)
		ix, err = indexer.New(db, nil)
		require.NoError(t, err)
		t.Cleanup(ix.Attach(node.Events()))
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = testAuthToken
	}
	return &testEnv{node: node, index: ix, server: NewServer(node, ix, cfg, nil)}
}

type rpcReply struct {
	Status int
	Result json.RawMessage
	Error  *RPCError
}

func (e *testEnv) call(t testing.TB, method string, token string, params ...interface{}) rpcReply {
	t.Helper()
	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		encoded, err := json.Marshal(p)
		require.NoError(t, err)
		raw = append(raw, encoded)
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: raw, ID: 1})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.RemoteAddr = "192.0.2.10:4000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rpcReply{Status: rec.Code, Result: envelope.Result, Error: envelope.Error}
}

func (e *testEnv) signed(t testing.TB, signer testAccount, method string, payload interface{}) *core.SignedCall {
	t.Helper()
	call, err := core.NewSignedCall(method, payload)
	require.NoError(t, err)
	nonce, err := e.node.Nonce(signer.addr)
	require.NoError(t, err)
	call.Nonce = nonce
	require.NoError(t, call.Sign(signer.key, e.node.ChainID()))
	return call
}

func (e *testEnv) donate(t testing.TB, donor, recipient, asset testAccount, amount string) rpcReply {
	t.Helper()
	call := e.signed(t, donor, core.MethodDonate, core.DonatePayload{
		Donor:     donor.String(),
		Recipient: recipient.String(),
		Amount:    amount,
		Asset:     asset.String(),
	})
	return e.call(t, "donation_donate", "", call)
}
