// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package db

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"xrplink.org/xrplink/xrp"
)

// log is the db logger, disabled by default.
var log = xrp.Disabled

// UseLogger sets the logger for the db package.
func UseLogger(logger xrp.Logger) {
	log = logger
}

var (
	// txsBucket holds one sub-bucket per account, keyed by address.
	txsBucket = []byte("txs")
	// byteOrder is used for the time-ordered record keys.
	byteOrder = binary.BigEndian
)

// TxRecord is one locally recorded transaction.
type TxRecord struct {
	Hash         string    `json:"hash"`
	Type         string    `json:"type"`
	Account      string    `json:"account"`
	Destination  string    `json:"destination"`
	Amount       string    `json:"amount"`
	EngineResult string    `json:"engineResult"`
	Success      bool      `json:"success"`
	Stamp        time.Time `json:"stamp"`
}

// DB is a bbolt-backed store of submitted transactions, for local history
// display. It is not a wallet and holds no key material.
type DB struct {
	*bbolt.DB
}

// Open opens the database at path, creating it as needed.
func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(txsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Debugf("opened history db at %s", path)
	return &DB{DB: db}, nil
}

// acctBucket returns the account's sub-bucket, creating it if create is
// set.
func acctBucket(tx *bbolt.Tx, account string, create bool) (*bbolt.Bucket, error) {
	master := tx.Bucket(txsBucket)
	if master == nil {
		return nil, fmt.Errorf("no %s bucket", string(txsBucket))
	}
	if create {
		return master.CreateBucketIfNotExists([]byte(account))
	}
	return master.Bucket([]byte(account)), nil
}

// StoreTx records a transaction. Records are keyed by timestamp then hash,
// so iteration order is submission order.
func (db *DB) StoreTx(rec *TxRecord) error {
	if rec.Account == "" || rec.Hash == "" {
		return fmt.Errorf("incomplete tx record %+v", rec)
	}
	if rec.Stamp.IsZero() {
		rec.Stamp = time.Now()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := make([]byte, 8+len(rec.Hash))
	byteOrder.PutUint64(key[:8], uint64(rec.Stamp.UnixMilli()))
	copy(key[8:], rec.Hash)
	return db.Update(func(tx *bbolt.Tx) error {
		bkt, err := acctBucket(tx, rec.Account, true)
		if err != nil {
			return err
		}
		return bkt.Put(key, b)
	})
}

// Txs returns up to n of the account's most recent records, newest first.
// n <= 0 means no limit.
func (db *DB) Txs(account string, n int) ([]*TxRecord, error) {
	var recs []*TxRecord
	err := db.View(func(tx *bbolt.Tx) error {
		bkt, err := acctBucket(tx, account, false)
		if err != nil {
			return err
		}
		if bkt == nil {
			return nil
		}
		c := bkt.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if n > 0 && len(recs) >= n {
				break
			}
			rec := new(TxRecord)
			if err := json.Unmarshal(v, rec); err != nil {
				log.Errorf("corrupt tx record under %s: %v", account, err)
				continue
			}
			recs = append(recs, rec)
		}
		return nil
	})
	return recs, err
}
