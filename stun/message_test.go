package stun

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildParseRoundTrip(t *testing.T) {
	txID, err := NewTransactionID()
	require.NoError(t, err)

	b := NewBuilder(Type{Class: ClassRequest, Method: MethodBinding}, txID)
	b.AddUint32(AttrPriority, 0x6e7ffeff)
	b.AddAttr(AttrUsername, []byte("remoteFrag:localFrag"))
	raw := b.Build([]byte("remote-password"))

	m, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, ClassRequest, m.Type.Class)
	require.Equal(t, MethodBinding, m.Type.Method)
	require.Equal(t, txID, m.TransactionID)

	require.NoError(t, VerifyFingerprint(m))
	require.NoError(t, VerifyIntegrity(m, []byte("remote-password")))

	attr, ok := m.Get(AttrPriority)
	require.True(t, ok)
	require.Len(t, attr.Value, 4)
}

func TestXORMappedAddressRoundTrip(t *testing.T) {
	txID, err := NewTransactionID()
	require.NoError(t, err)

	addr := XORMappedAddress{IP: []byte{192, 168, 1, 42}, Port: 54321}
	enc := addr.Encode(txID)
	dec, err := DecodeXORMappedAddress(enc, txID)
	require.NoError(t, err)
	require.Equal(t, addr.Port, dec.Port)
	require.True(t, addr.IP.Equal(dec.IP))
}

func TestVerifyIntegrityRejectsTamperedMessage(t *testing.T) {
	txID, err := NewTransactionID()
	require.NoError(t, err)
	b := NewBuilder(Type{Class: ClassRequest, Method: MethodBinding}, txID)
	raw := b.Build([]byte("pwd"))
	raw[len(raw)-9] ^= 0xff // flip the last byte of the MESSAGE-INTEGRITY value

	m, err := Parse(raw)
	require.NoError(t, err)
	require.Error(t, VerifyIntegrity(m, []byte("pwd")))
}
