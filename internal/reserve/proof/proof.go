// Package proof computes the proof-of-reserves commitment: a BLAKE3 keyed Merkle
// tree over reserve entries sorted by tx id, bound to the ledger totals and the
// outstanding token supply.
package proof

import (
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/zeebo/blake3"

	"custody/internal/reserve/models"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

type domainKey [32]byte

// Domain keys are ASCII names zero-padded to 32 bytes. Changing one invalidates
// every published proof.
var (
	leafKey = domainKey{
		'c', 'u', 's', 't', 'o', 'd', 'y', '.', 'r', 'e', 's', 'e', 'r', 'v', 'e', '.',
		'l', 'e', 'a', 'f', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	nodeKey = domainKey{
		'c', 'u', 's', 't', 'o', 'd', 'y', '.', 'r', 'e', 's', 'e', 'r', 'v', 'e', '.',
		'n', 'o', 'd', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Key is the commitment key, derived from a published label so that verifiers can
// recompute it. Rotating the label versions every proof issued afterwards.
type Key domainKey

// NewKey derives the commitment key for label.
func NewKey(label string) Key {
	return Key(blake3.Sum256([]byte(label)))
}

func keyedHash(key domainKey, data []byte) Hash {
	h, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("proof: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = h.Write(data)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Leaf hashes the fields of an entry that the proof commits to. The pending-mint
// flag is operational state and is not committed.
func Leaf(e models.Entry) Hash {
	buf := make([]byte, 0, len(e.TxID)+len(e.Direction)+2+16)
	buf = append(buf, e.TxID...)
	buf = append(buf, 0)
	buf = append(buf, e.Direction...)
	buf = append(buf, 0)
	buf = binary.BigEndian.AppendUint64(buf, uint64(e.Amount))
	buf = binary.BigEndian.AppendUint64(buf, uint64(e.Confirmations))
	return keyedHash(leafKey, buf)
}

// MerkleRoot returns the root over entries sorted by tx id. Odd nodes are promoted
// without rehashing. An empty ledger has the leaf-domain hash of no input.
func MerkleRoot(entries []models.Entry) Hash {
	if len(entries) == 0 {
		return keyedHash(leafKey, nil)
	}

	sorted := make([]models.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TxID < sorted[j].TxID })

	level := make([]Hash, len(sorted))
	for i, e := range sorted {
		level[i] = Leaf(e)
	}

	var pair [64]byte
	for len(level) > 1 {
		next := make([]Hash, (len(level)+1)/2)
		for i := 0; i < len(level)-1; i += 2 {
			copy(pair[:32], level[i][:])
			copy(pair[32:], level[i+1][:])
			next[i/2] = keyedHash(nodeKey, pair[:])
		}
		if len(level)%2 == 1 {
			next[len(next)-1] = level[len(level)-1]
		}
		level = next
	}
	return level[0]
}

// Commit binds the root to the totals and supply under key.
func Commit(key Key, root Hash, totals models.Totals, supply int64) Hash {
	buf := make([]byte, 0, 32+8*4)
	buf = append(buf, root[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(totals.Deposits))
	buf = binary.BigEndian.AppendUint64(buf, uint64(totals.Withdrawals))
	buf = binary.BigEndian.AppendUint64(buf, uint64(totals.Entries))
	buf = binary.BigEndian.AppendUint64(buf, uint64(supply))
	return keyedHash(domainKey(key), buf)
}

// TotalsOf sums entries by direction.
func TotalsOf(entries []models.Entry) models.Totals {
	var t models.Totals
	for _, e := range entries {
		switch e.Direction {
		case models.DirectionDeposit:
			t.Deposits += e.Amount
		case models.DirectionWithdrawal:
			t.Withdrawals += e.Amount
		}
		t.Entries++
	}
	return t
}

// Verify recomputes snapshot fields from entries and the supply it claims.
func Verify(key Key, snapshot *models.ProofSnapshot, entries []models.Entry) bool {
	if snapshot == nil {
		return false
	}
	totals := TotalsOf(entries)
	if totals.Deposits != snapshot.TotalDeposits ||
		totals.Withdrawals != snapshot.TotalWithdrawals ||
		totals.Entries != snapshot.EntryCount ||
		totals.Available() != snapshot.Reserves {
		return false
	}
	root := MerkleRoot(entries)
	if root.String() != snapshot.Root {
		return false
	}
	return Commit(key, root, totals, snapshot.TokenSupply).String() == snapshot.Commitment
}
