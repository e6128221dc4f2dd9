// Package leveldb keeps users and claims in an embedded LevelDB database for
// single node deployments.
package leveldb

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.mongodb.org/mongo-driver/bson"
)

// Key prefixes
const (
	claimPrefix = "claim_"
	userPrefix  = "user_"
	emailPrefix = "email_"
)

// Open opens or creates the database directory at path
func Open(path string) (*leveldb.DB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return db, nil
}

func getDoc(db *leveldb.DB, key string, v any) error {
	data, err := db.Get([]byte(key), nil)
	if err != nil {
		return err
	}
	return bson.Unmarshal(data, v)
}

func putDoc(batch *leveldb.Batch, key string, v any) error {
	data, err := bson.Marshal(v)
	if err != nil {
		return err
	}
	batch.Put([]byte(key), data)
	return nil
}

// scan decodes every value under prefix
func scan[T any](db *leveldb.DB, prefix string) ([]*T, error) {
	iter := db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	out := []*T{}
	for iter.Next() {
		var v T
		if err := bson.Unmarshal(iter.Value(), &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		out = append(out, &v)
	}
	return out, iter.Error()
}

func isNotFound(err error) bool {
	return errors.Is(err, leveldb.ErrNotFound)
}
