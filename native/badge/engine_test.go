package badge

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"github.com/lober-org/welovedogs/core/events"
	"github.com/lober-org/welovedogs/native/common"
)

type memoryStore struct {
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.data[string(key)] = encoded
	return nil
}

func (m *memoryStore) KVGet(key []byte, out interface{}) (bool, error) {
	encoded, ok := m.data[string(key)]
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(encoded, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *memoryStore) KVGetList(key []byte, out interface{}) error {
	encoded, ok := m.data[string(key)]
	if !ok {
		encoded = []byte{0xc0}
	}
	return rlp.DecodeBytes(encoded, out)
}

type signerSet map[[20]byte]bool

func (s signerSet) Authorized(id [20]byte) bool { return s[id] }

var (
	owner = [20]byte{0x01}
	alice = [20]byte{0x0a}
	bob   = [20]byte{0x0b}
)

func newTestEngine(t *testing.T) (*Engine, signerSet) {
	t.Helper()
	signers := signerSet{owner: true, alice: true, bob: true}
	engine := NewEngine(newMemoryStore())
	engine.SetAuthorizer(signers)
	require.NoError(t, engine.Initialize(owner, "", "", ""))
	return engine, signers
}

func TestInitializeOnce(t *testing.T) {
	engine, _ := newTestEngine(t)
	meta, err := engine.Metadata()
	require.NoError(t, err)
	require.Equal(t, DefaultName, meta.Name)
	require.Equal(t, DefaultSymbol, meta.Symbol)
	require.Equal(t, DefaultBaseURI, meta.BaseURI)
	require.Equal(t, owner, meta.Owner)

	require.ErrorIs(t, engine.Initialize(alice, "x", "y", "z"), ErrAlreadyInitialized)
	require.ErrorIs(t, NewEngine(newMemoryStore()).Initialize([20]byte{}, "", "", ""), ErrInvalidMetadata)
}

func TestUninitializedCollection(t *testing.T) {
	engine := NewEngine(newMemoryStore())
	engine.SetAuthorizer(signerSet{owner: true})
	_, err := engine.Mint(alice, owner)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = engine.TokenURI(0)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestMintSequentialAndOwnerOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	buf := &events.Buffer{}
	engine.SetEmitter(buf)

	first, err := engine.Mint(alice, owner)
	require.NoError(t, err)
	second, err := engine.Mint(alice, owner)
	require.NoError(t, err)
	third, err := engine.Mint(bob, owner)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1, 2}, []uint32{first, second, third})

	_, err = engine.Mint(alice, alice)
	require.ErrorIs(t, err, ErrNotOwner)

	supply, err := engine.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, uint32(3), supply)

	balance, err := engine.BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, uint32(2), balance)

	holder, err := engine.OwnerOf(2)
	require.NoError(t, err)
	require.Equal(t, bob, holder)

	require.Len(t, buf.Events(), 3)
	require.Equal(t, events.TypeBadgeMinted, buf.Events()[0].Type)
}

func TestMintRequiresOwnerSignature(t *testing.T) {
	engine, signers := newTestEngine(t)
	delete(signers, owner)
	_, err := engine.Mint(alice, owner)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestTransferAndBurn(t *testing.T) {
	engine, signers := newTestEngine(t)
	id, err := engine.Mint(alice, owner)
	require.NoError(t, err)

	require.ErrorIs(t, engine.Transfer(bob, alice, id), ErrIncorrectOwner)
	require.NoError(t, engine.Transfer(alice, bob, id))

	holder, err := engine.OwnerOf(id)
	require.NoError(t, err)
	require.Equal(t, bob, holder)

	aliceTokens, err := engine.TokensOf(alice)
	require.NoError(t, err)
	require.Empty(t, aliceTokens)
	bobTokens, err := engine.TokensOf(bob)
	require.NoError(t, err)
	require.Equal(t, []uint32{id}, bobTokens)

	delete(signers, bob)
	require.ErrorIs(t, engine.Burn(bob, id), ErrUnauthorized)
	signers[bob] = true
	require.NoError(t, engine.Burn(bob, id))

	_, err = engine.OwnerOf(id)
	require.ErrorIs(t, err, ErrTokenNotFound)
	supply, err := engine.TotalSupply()
	require.NoError(t, err)
	require.Zero(t, supply)
	require.ErrorIs(t, engine.Burn(bob, id), ErrTokenNotFound)
}

func TestPauseBlocksMutations(t *testing.T) {
	engine, _ := newTestEngine(t)
	id, err := engine.Mint(alice, owner)
	require.NoError(t, err)

	require.ErrorIs(t, engine.Pause(alice), ErrNotOwner)
	require.NoError(t, engine.Pause(owner))
	require.ErrorIs(t, engine.Pause(owner), ErrAlreadyPaused)

	paused, err := engine.Paused()
	require.NoError(t, err)
	require.True(t, paused)
	require.True(t, engine.IsPaused(common.ModuleBadge))
	require.False(t, engine.IsPaused("donation"))

	_, err = engine.Mint(alice, owner)
	require.ErrorIs(t, err, common.ErrModulePaused)
	require.ErrorIs(t, engine.Transfer(alice, bob, id), common.ErrModulePaused)
	require.ErrorIs(t, engine.Burn(alice, id), common.ErrModulePaused)

	require.NoError(t, engine.Unpause(owner))
	require.ErrorIs(t, engine.Unpause(owner), ErrNotPaused)
	require.NoError(t, engine.Transfer(alice, bob, id))
}

func TestTokenURI(t *testing.T) {
	engine, _ := newTestEngine(t)
	id, err := engine.Mint(alice, owner)
	require.NoError(t, err)

	uri, err := engine.TokenURI(id)
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURI+"/0", uri)

	_, err = engine.TokenURI(7)
	require.ErrorIs(t, err, ErrTokenNotFound)

	require.ErrorIs(t, engine.SetTokenURI(id, "ipfs://x", alice), ErrNotOwner)
	require.ErrorIs(t, engine.SetTokenURI(id, "  ", owner), ErrInvalidMetadata)
	require.NoError(t, engine.SetTokenURI(id, "ipfs://badge-0", owner))

	uri, err = engine.TokenURI(id)
	require.NoError(t, err)
	require.Equal(t, "ipfs://badge-0", uri)
}

func TestTransferOwnership(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.ErrorIs(t, engine.TransferOwnership(alice, bob), ErrNotOwner)
	require.NoError(t, engine.TransferOwnership(alice, owner))

	current, err := engine.Owner()
	require.NoError(t, err)
	require.Equal(t, alice, current)

	_, err = engine.Mint(bob, owner)
	require.True(t, errors.Is(err, ErrNotOwner))
	_, err = engine.Mint(bob, alice)
	require.NoError(t, err)
}
