package ice

import "github.com/pion/rtcstack/stun"

func newRandTxID() ([12]byte, error) {
	return stun.NewTransactionID()
}

// buildBindingRequestNoAuth builds an unauthenticated Binding Request, as
// used during gathering-phase srflx discovery where no ICE credentials
// exist yet.
func buildBindingRequestNoAuth(txID [12]byte) []byte {
	b := stun.NewBuilder(stun.Type{Class: stun.ClassRequest, Method: stun.MethodBinding}, txID)
	return b.Build(nil)
}

func parseXORMappedFromRaw(buf []byte, txID [12]byte) (stun.XORMappedAddress, error) {
	m, err := stun.Parse(buf)
	if err != nil {
		return stun.XORMappedAddress{}, err
	}
	attr, ok := m.Get(stun.AttrXORMappedAddress)
	if !ok {
		return stun.XORMappedAddress{}, stun.ErrTruncatedAttr
	}
	return stun.DecodeXORMappedAddress(attr.Value, txID)
}
