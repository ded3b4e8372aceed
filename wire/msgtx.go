// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/JoseSK999/floresta/chainhash"
)

const (
	// MaxTxInSequenceNum is the maximum sequence number an input can have that
	// does not opt in for BIP68 relative locktime semantics.
	MaxTxInSequenceNum uint32 = 0xffffffff

	// SequenceLockTimeDisabled denotes a bit in an input's sequence that, when
	// set, disables BIP68 relative locktime semantics for that input.
	SequenceLockTimeDisabled = 1 << 31

	// SequenceLockTimeIsSeconds denotes a bit in an input's sequence that,
	// when set, interprets the relative locktime as units of 512 seconds
	// rather than blocks.
	SequenceLockTimeIsSeconds = 1 << 22

	// SequenceLockTimeMask extracts the relative locktime value from a
	// sequence number once the disable bit has been checked.
	SequenceLockTimeMask = 0x0000ffff

	// witnessMarker and witnessFlag are the two bytes, following the version
	// field, that mark a transaction as carrying a witness.
	witnessMarker = 0x00
	witnessFlag   = 0x01

	// maxTxInPerMessage / maxTxOutPerMessage bound the number of ReadVarInt-
	// driven allocations a peer-supplied transaction can request.
	maxTxInPerMessage  = 1_000_000
	maxTxOutPerMessage = 1_000_000

	// maxWitnessItemsPerInput / maxWitnessItemSize bound witness deserialization
	// the same way.
	maxWitnessItemsPerInput = 500_000
	maxWitnessItemSize      = 11_000_000
)

// OutPoint identifies a previously created transaction output.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new OutPoint.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *hash, Index: index}
}

// IsNull reports whether the outpoint is the all-zero, max-index outpoint
// used by a coinbase's synthetic input.
func (o *OutPoint) IsNull() bool {
	return o.Index == MaxTxInSequenceNum && o.Hash == (chainhash.Hash{})
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Witness          [][]byte
	Sequence         uint32
}

// TxOut defines a transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// MsgTx implements the canonical Bitcoin transaction wire encoding, including
// the BIP144 segregated witness extension.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// HasWitness reports whether any input carries witness data.
func (msg *MsgTx) HasWitness() bool {
	for _, txIn := range msg.TxIn {
		if len(txIn.Witness) > 0 {
			return true
		}
	}
	return false
}

// Copy returns a deep copy, used where a caller must not observe mutation of
// the original (e.g. the accumulator's leaf hasher never mutates its input).
func (msg *MsgTx) Copy() *MsgTx {
	newTx := MsgTx{
		Version:  msg.Version,
		LockTime: msg.LockTime,
		TxIn:     make([]*TxIn, len(msg.TxIn)),
		TxOut:    make([]*TxOut, len(msg.TxOut)),
	}
	for i, oldTxIn := range msg.TxIn {
		newTxIn := *oldTxIn
		newTxIn.SignatureScript = append([]byte(nil), oldTxIn.SignatureScript...)
		if oldTxIn.Witness != nil {
			newTxIn.Witness = make([][]byte, len(oldTxIn.Witness))
			for j, w := range oldTxIn.Witness {
				newTxIn.Witness[j] = append([]byte(nil), w...)
			}
		}
		newTx.TxIn[i] = &newTxIn
	}
	for i, oldTxOut := range msg.TxOut {
		newTxOut := *oldTxOut
		newTxOut.PkScript = append([]byte(nil), oldTxOut.PkScript...)
		newTx.TxOut[i] = &newTxOut
	}
	return &newTx
}

// BtcDecode reads a transaction from r using the canonical wire format,
// transparently handling the BIP144 witness serialization.
func (msg *MsgTx) BtcDecode(r io.Reader) error {
	if err := readElement(r, &msg.Version); err != nil {
		return err
	}

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}

	var flag [1]byte
	hasWitness := false
	if count == 0 {
		// Possible segwit marker: a zero-input count is otherwise invalid,
		// so treat it as the witness marker and re-read the real input count.
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return err
		}
		if flag[0] != witnessFlag {
			return errNonCanonicalVarInt
		}
		hasWitness = true
		count, err = ReadVarInt(r)
		if err != nil {
			return err
		}
	}
	if count > maxTxInPerMessage {
		return errTooManyElements("tx inputs", count, maxTxInPerMessage)
	}

	msg.TxIn = make([]*TxIn, count)
	for i := range msg.TxIn {
		ti := new(TxIn)
		if err := readTxIn(r, ti); err != nil {
			return err
		}
		msg.TxIn[i] = ti
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if outCount > maxTxOutPerMessage {
		return errTooManyElements("tx outputs", outCount, maxTxOutPerMessage)
	}
	msg.TxOut = make([]*TxOut, outCount)
	for i := range msg.TxOut {
		to := new(TxOut)
		if err := readTxOut(r, to); err != nil {
			return err
		}
		msg.TxOut[i] = to
	}

	if hasWitness {
		for _, ti := range msg.TxIn {
			w, err := readWitness(r)
			if err != nil {
				return err
			}
			ti.Witness = w
		}
	}

	return readElement(r, &msg.LockTime)
}

// BtcEncode writes the transaction to w.  If includeWitness is false, the
// legacy (non-segwit) encoding used for computing the legacy txid is
// produced even when the transaction carries witness data.
func (msg *MsgTx) BtcEncode(w io.Writer, includeWitness bool) error {
	if err := writeElement(w, msg.Version); err != nil {
		return err
	}

	useWitness := includeWitness && msg.HasWitness()
	if useWitness {
		if _, err := w.Write([]byte{witnessMarker, witnessFlag}); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := writeTxIn(w, ti); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := writeTxOut(w, to); err != nil {
			return err
		}
	}

	if useWitness {
		for _, ti := range msg.TxIn {
			if err := writeWitness(w, ti.Witness); err != nil {
				return err
			}
		}
	}

	return writeElement(w, msg.LockTime)
}

// Serialize returns the canonical (witness-included when present) wire
// encoding of the transaction.
func (msg *MsgTx) Serialize() []byte {
	var buf bytes.Buffer
	_ = msg.BtcEncode(&buf, true)
	return buf.Bytes()
}

// SerializeNoWitness returns the legacy encoding, used for computing the
// txid that the Merkle root commits to.
func (msg *MsgTx) SerializeNoWitness() []byte {
	var buf bytes.Buffer
	_ = msg.BtcEncode(&buf, false)
	return buf.Bytes()
}

// SerializeSize returns the number of bytes the witness-included encoding
// occupies; weight accounting needs both this and SerializeSizeNoWitness.
func (msg *MsgTx) SerializeSize() int {
	return len(msg.Serialize())
}

// SerializeSizeNoWitness returns the number of bytes the legacy encoding
// occupies.
func (msg *MsgTx) SerializeSizeNoWitness() int {
	return len(msg.SerializeNoWitness())
}

// TxHash returns the double-SHA-256 of the legacy (witness-stripped)
// encoding, which is Bitcoin's txid.
func (msg *MsgTx) TxHash() chainhash.Hash {
	return chainhash.HashH(msg.SerializeNoWitness())
}

// WitnessHash returns the double-SHA-256 of the full, witness-included
// encoding, Bitcoin's wtxid, used by the witness commitment.
func (msg *MsgTx) WitnessHash() chainhash.Hash {
	if !msg.HasWitness() {
		return msg.TxHash()
	}
	return chainhash.HashH(msg.Serialize())
}

// IsCoinBase reports whether msg has the single null-outpoint input that
// marks a block's first transaction.
func (msg *MsgTx) IsCoinBase() bool {
	return len(msg.TxIn) == 1 && msg.TxIn[0].PreviousOutPoint.IsNull()
}

func readTxIn(r io.Reader, ti *TxIn) error {
	if err := readElement(r, &ti.PreviousOutPoint.Hash); err != nil {
		return err
	}
	if err := readElement(r, &ti.PreviousOutPoint.Index); err != nil {
		return err
	}
	sigScript, err := ReadVarBytes(r, maxWitnessItemSize, "signature script")
	if err != nil {
		return err
	}
	ti.SignatureScript = sigScript
	return readElement(r, &ti.Sequence)
}

func writeTxIn(w io.Writer, ti *TxIn) error {
	if err := writeElement(w, ti.PreviousOutPoint.Hash); err != nil {
		return err
	}
	if err := writeElement(w, ti.PreviousOutPoint.Index); err != nil {
		return err
	}
	if err := WriteVarBytes(w, ti.SignatureScript); err != nil {
		return err
	}
	return writeElement(w, ti.Sequence)
}

func readTxOut(r io.Reader, to *TxOut) error {
	if err := readElement(r, &to.Value); err != nil {
		return err
	}
	pkScript, err := ReadVarBytes(r, maxWitnessItemSize, "pk script")
	if err != nil {
		return err
	}
	to.PkScript = pkScript
	return nil
}

func writeTxOut(w io.Writer, to *TxOut) error {
	if err := writeElement(w, to.Value); err != nil {
		return err
	}
	return WriteVarBytes(w, to.PkScript)
}

func readWitness(r io.Reader) ([][]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxWitnessItemsPerInput {
		return nil, errTooManyElements("witness items", count, maxWitnessItemsPerInput)
	}
	items := make([][]byte, count)
	for i := range items {
		item, err := ReadVarBytes(r, maxWitnessItemSize, "witness item")
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

func writeWitness(w io.Writer, witness [][]byte) error {
	if err := WriteVarInt(w, uint64(len(witness))); err != nil {
		return err
	}
	for _, item := range witness {
		if err := WriteVarBytes(w, item); err != nil {
			return err
		}
	}
	return nil
}

func errTooManyElements(what string, got, max uint64) error {
	return &messageError{what: what, got: got, max: max}
}

type messageError struct {
	what string
	got  uint64
	max  uint64
}

func (e *messageError) Error() string {
	return e.what + " count exceeds max allowed"
}
