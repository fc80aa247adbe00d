// Package swapdb implements the durable replay store:
// bbolt-backed (request, accept, decline) persistence keyed by swap id, plus
// a swaps index bucket of (swap_id, role, counterparty_peer_id). The core
// treats this as opaque key/value storage; on restart it needs exactly
// (swap_id, role, request, accept) to reconstruct SwapState(Accepted).
//
// Grounded on submarine/submarine.go's saveSubmarineData/getSubmarineData
// (netID-byte-prefix + fixed-width fields + variable-length payload packed
// into one bbolt value) and channeldb/channel.go's bucket-per-concern
// layout. Library: github.com/coreos/bbolt, a teacher dependency.
package swapdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	bolt "github.com/coreos/bbolt"
	"github.com/google/uuid"

	"github.com/breez/swapd/asset"
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swap"
)

var (
	requestsBucket = []byte("requests")
	acceptsBucket  = []byte("accepts")
	declinesBucket = []byte("declines")
	swapsBucket    = []byte("swaps")
)

// Record is what the engine needs on restart for one swap (the design:
// "(swap_id, role, request, accept) — nothing more").
type Record struct {
	SwapID             uuid.UUID
	Role               swap.Role
	CounterpartyPeerID string
	Request            swap.Request
	Accept             *swap.Accept
	Decline            *swap.Decline
}

// Store is the bbolt-backed durable store.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the bbolt database at path and
// ensures the fixed bucket layout exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("swapdb: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{requestsBucket, acceptsBucket, declinesBucket, swapsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("swapdb: init buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutRequest persists req and indexes it under (swap_id, role,
// counterparty_peer_id) — called once, when a Proposed communication is
// first recorded.
func (s *Store) PutRequest(role swap.Role, counterpartyPeerID string, req swap.Request) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(requestsBucket).Put(req.SwapID[:], encodeRequest(req)); err != nil {
			return err
		}
		return tx.Bucket(swapsBucket).Put(req.SwapID[:], encodeIndex(role, counterpartyPeerID))
	})
}

// PutAccept persists the Accept half of an Accepted communication.
func (s *Store) PutAccept(a swap.Accept) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(acceptsBucket).Put(a.SwapID[:], encodeAccept(a))
	})
}

// PutDecline persists the Decline half of a Declined communication.
func (s *Store) PutDecline(d swap.Decline) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(declinesBucket).Put(d.SwapID[:], encodeDecline(d))
	})
}

// errNotFound mirrors submarine.go's "Not found" sentinel for a missing
// bbolt key.
var errNotFound = fmt.Errorf("swapdb: not found")

// ErrNotFound is returned when a lookup finds no record.
func ErrNotFound() error { return errNotFound }

// All enumerates every (request, accept|decline) pair in the store, for
// daemon/replay.go to reconstruct SwapState(Accepted) on startup.
func (s *Store) All() ([]Record, error) {
	var records []Record

	err := s.db.View(func(tx *bolt.Tx) error {
		reqBucket := tx.Bucket(requestsBucket)
		idxBucket := tx.Bucket(swapsBucket)
		acptBucket := tx.Bucket(acceptsBucket)
		declBucket := tx.Bucket(declinesBucket)

		return reqBucket.ForEach(func(k, v []byte) error {
			req, err := decodeRequest(v)
			if err != nil {
				return fmt.Errorf("swapdb: decode request %x: %w", k, err)
			}

			role, peerID, err := decodeIndex(idxBucket.Get(k))
			if err != nil {
				return fmt.Errorf("swapdb: decode index %x: %w", k, err)
			}

			rec := Record{
				SwapID:             req.SwapID,
				Role:               role,
				CounterpartyPeerID: peerID,
				Request:            req,
			}

			if raw := acptBucket.Get(k); raw != nil {
				a, err := decodeAccept(raw)
				if err != nil {
					return fmt.Errorf("swapdb: decode accept %x: %w", k, err)
				}
				rec.Accept = &a
			}
			if raw := declBucket.Get(k); raw != nil {
				d, err := decodeDecline(raw)
				if err != nil {
					return fmt.Errorf("swapdb: decode decline %x: %w", k, err)
				}
				rec.Decline = &d
			}

			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

func encodeIndex(role swap.Role, peerID string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(role))
	buf.WriteString(peerID)
	return buf.Bytes()
}

func decodeIndex(b []byte) (swap.Role, string, error) {
	if len(b) < 1 {
		return swap.RoleInvalid, "", fmt.Errorf("swapdb: bad index record")
	}
	return swap.Role(b[0]), string(b[1:]), nil
}

func encodeRequest(r swap.Request) []byte {
	var buf bytes.Buffer
	buf.Write(r.SwapID[:])
	buf.Write(ledger.EncodeKind(r.AlphaLedger))
	buf.Write(ledger.EncodeKind(r.BetaLedger))
	writeLenPrefixed(&buf, asset.Encode(r.AlphaAsset))
	writeLenPrefixed(&buf, asset.Encode(r.BetaAsset))
	writeTime(&buf, r.AlphaExpiry)
	writeTime(&buf, r.BetaExpiry)
	buf.Write(r.SecretHash[:])
	writeLenPrefixed(&buf, ledger.EncodeIdentity(r.AlphaRefundIdentity))
	writeLenPrefixed(&buf, ledger.EncodeIdentity(r.BetaRedeemIdentity))
	return buf.Bytes()
}

func decodeRequest(b []byte) (swap.Request, error) {
	r := bytes.NewReader(b)
	var req swap.Request

	if _, err := readFull(r, req.SwapID[:]); err != nil {
		return req, err
	}

	kindBuf := make([]byte, 10)
	if _, err := readFull(r, kindBuf); err != nil {
		return req, err
	}
	alphaLedger, err := ledger.DecodeKind(kindBuf)
	if err != nil {
		return req, err
	}
	req.AlphaLedger = alphaLedger

	if _, err := readFull(r, kindBuf); err != nil {
		return req, err
	}
	betaLedger, err := ledger.DecodeKind(kindBuf)
	if err != nil {
		return req, err
	}
	req.BetaLedger = betaLedger

	alphaAssetBytes, err := readLenPrefixed(r)
	if err != nil {
		return req, err
	}
	req.AlphaAsset, err = asset.Decode(alphaAssetBytes)
	if err != nil {
		return req, err
	}

	betaAssetBytes, err := readLenPrefixed(r)
	if err != nil {
		return req, err
	}
	req.BetaAsset, err = asset.Decode(betaAssetBytes)
	if err != nil {
		return req, err
	}

	req.AlphaExpiry, err = readTime(r)
	if err != nil {
		return req, err
	}
	req.BetaExpiry, err = readTime(r)
	if err != nil {
		return req, err
	}

	if _, err := readFull(r, req.SecretHash[:]); err != nil {
		return req, err
	}

	alphaRefundBytes, err := readLenPrefixed(r)
	if err != nil {
		return req, err
	}
	req.AlphaRefundIdentity, err = ledger.DecodeIdentity(alphaRefundBytes)
	if err != nil {
		return req, err
	}

	betaRedeemBytes, err := readLenPrefixed(r)
	if err != nil {
		return req, err
	}
	req.BetaRedeemIdentity, err = ledger.DecodeIdentity(betaRedeemBytes)
	if err != nil {
		return req, err
	}

	return req, nil
}

func encodeAccept(a swap.Accept) []byte {
	var buf bytes.Buffer
	buf.Write(a.SwapID[:])
	writeLenPrefixed(&buf, ledger.EncodeIdentity(a.AlphaRedeemIdentity))
	writeLenPrefixed(&buf, ledger.EncodeIdentity(a.BetaRefundIdentity))
	return buf.Bytes()
}

func decodeAccept(b []byte) (swap.Accept, error) {
	r := bytes.NewReader(b)
	var a swap.Accept

	if _, err := readFull(r, a.SwapID[:]); err != nil {
		return a, err
	}

	alphaRedeemBytes, err := readLenPrefixed(r)
	if err != nil {
		return a, err
	}
	a.AlphaRedeemIdentity, err = ledger.DecodeIdentity(alphaRedeemBytes)
	if err != nil {
		return a, err
	}

	betaRefundBytes, err := readLenPrefixed(r)
	if err != nil {
		return a, err
	}
	a.BetaRefundIdentity, err = ledger.DecodeIdentity(betaRefundBytes)
	if err != nil {
		return a, err
	}

	return a, nil
}

func encodeDecline(d swap.Decline) []byte {
	var buf bytes.Buffer
	buf.Write(d.SwapID[:])
	buf.WriteString(d.Reason)
	return buf.Bytes()
}

func decodeDecline(b []byte) (swap.Decline, error) {
	if len(b) < 16 {
		return swap.Decline{}, fmt.Errorf("swapdb: bad decline record")
	}
	var d swap.Decline
	copy(d.SwapID[:], b[:16])
	d.Reason = string(b[16:])
	return d, nil
}

func writeLenPrefixed(buf *bytes.Buffer, v []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
	buf.Write(lenBuf[:])
	buf.Write(v)
}

func readLenPrefixed(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := readFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	out := make([]byte, n)
	if _, err := readFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeTime(buf *bytes.Buffer, t time.Time) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(t.Unix()))
	buf.Write(b[:])
}

func readTime(r *bytes.Reader) (time.Time, error) {
	var b [8]byte
	if _, err := readFull(r, b[:]); err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(binary.BigEndian.Uint64(b[:])), 0).UTC(), nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	n, err := r.Read(b)
	if err != nil {
		return n, err
	}
	if n != len(b) {
		return n, fmt.Errorf("swapdb: short read: got %d want %d", n, len(b))
	}
	return n, nil
}
