package storage

import (
	"github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"
	"os"
)

type BadgerBackendConfig struct {
	// Dir is the parent directory for a scratch database. Empty keeps
	// everything in memory.
	Dir    string
	Logger badger.Logger
}

// BadgerBackend keeps pages in a scratch badger database that lives only as
// long as the run; Close removes any on-disk files.
type BadgerBackend struct {
	db      *badger.DB
	scratch string
}

func OpenBadgerBackend(config BadgerBackendConfig) (*BadgerBackend, error) {
	var options badger.Options
	scratch := ""
	if config.Dir == "" {
		options = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir, err := os.MkdirTemp(config.Dir, "tracestats-")
		if err != nil {
			return nil, errors.Wrap(err, "create spill directory")
		}
		scratch = dir
		options = badger.DefaultOptions(dir).WithSyncWrites(false)
	}
	options = options.WithLogger(config.Logger)

	db, err := badger.Open(options)
	if err != nil {
		if scratch != "" {
			_ = os.RemoveAll(scratch)
		}
		return nil, errors.Wrap(err, "open badger spill store")
	}
	return &BadgerBackend{db: db, scratch: scratch}, nil
}

func (backend *BadgerBackend) Close() error {
	err := backend.db.Close()
	if backend.scratch != "" {
		if rmErr := os.RemoveAll(backend.scratch); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

func (backend *BadgerBackend) txnGet(key []byte) ([]byte, error) {
	var pageBytes []byte
	err := backend.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		pageBytes, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrPageNotFound
	}
	return pageBytes, err
}

func (backend *BadgerBackend) txnPut(key, buf []byte) error {
	err := backend.db.Update(func(txn *badger.Txn) error {
		err := txn.Set(key, buf)
		return err
	})
	return err
}

func (backend *BadgerBackend) txnDelete(key []byte) error {
	err := backend.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		return err
	})
	return err
}

func (backend *BadgerBackend) Get(ownerID, pageID uint64) ([]byte, error) {
	return backend.txnGet(GetKey(ownerID, pageID))
}

func (backend *BadgerBackend) Put(ownerID, pageID uint64, buf []byte) error {
	return backend.txnPut(GetKey(ownerID, pageID), buf)
}

func (backend *BadgerBackend) Delete(ownerID, pageID uint64) error {
	return backend.txnDelete(GetKey(ownerID, pageID))
}

func (backend *BadgerBackend) DeleteOwner(ownerID uint64) error {
	batch := backend.db.NewWriteBatch()
	err := backend.IterateIndex(ownerID, func(pageID uint64) error {
		return batch.Delete(GetKey(ownerID, pageID))
	})
	if err != nil {
		batch.Cancel()
		return err
	}
	return batch.Flush()
}

func (backend *BadgerBackend) IterateIndex(ownerID uint64, lambda func(uint64) error) error {
	prefix := GetKeyPrefix(ownerID)
	iterOpts := badger.DefaultIteratorOptions
	iterOpts.PrefetchValues = false
	iterOpts.Prefix = prefix
	return backend.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(iterOpts)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			err := lambda(GetPageIDFromKey(iter.Item().Key()))
			if err != nil {
				return err
			}
		}
		return nil
	})
}
