package core

import (
	"github.com/dgraph-io/badger/v2"
	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
	"tracestats/storage"
)

// SampleStore holds spilled interval pages, with a ristretto cache in front of
// the backend so that repeated report passes do not decode pages twice.
type SampleStore struct {
	backend      storage.Backend
	cacheEnabled bool
	pageCache    *ristretto.Cache
}

func NewSampleStore(backend storage.Backend, cacheEnabled bool) (*SampleStore, error) {
	store := &SampleStore{
		backend:      backend,
		cacheEnabled: cacheEnabled,
	}
	if cacheEnabled {
		pageCache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e5,
			MaxCost:     1 << 26,
			BufferItems: 64,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create page cache")
		}
		store.pageCache = pageCache
	}
	return store, nil
}

// OpenSampleStore opens the spill store a Config asks for. It returns nil
// when the truncation policy never spills.
func OpenSampleStore(config *Config, logger badger.Logger) (*SampleStore, error) {
	if config.TruncationPolicy != TruncateSpill {
		return nil, nil
	}
	backend, err := storage.OpenBadgerBackend(storage.BadgerBackendConfig{
		Dir:    config.SpillDir,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	store, err := NewSampleStore(backend, config.CacheEnabled)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return store, nil
}

func (store *SampleStore) PutPage(ownerID, pageID uint64, samples []uint64) error {
	buf, err := SamplePageToBytes(samples)
	if err != nil {
		return errors.Wrapf(err, "encode page %d of owner %d", pageID, ownerID)
	}
	if err := store.backend.Put(ownerID, pageID, buf); err != nil {
		return errors.Wrapf(err, "spill page %d of owner %d", pageID, ownerID)
	}
	if store.cacheEnabled {
		store.pageCache.Set(storage.GetKey(ownerID, pageID), samples, int64(8*len(samples)))
	}
	return nil
}

func (store *SampleStore) GetPage(ownerID, pageID uint64) ([]uint64, error) {
	if store.cacheEnabled {
		page, found := store.pageCache.Get(storage.GetKey(ownerID, pageID))
		if found {
			return page.([]uint64), nil
		}
	}
	buf, err := store.backend.Get(ownerID, pageID)
	if err != nil {
		return nil, errors.Wrapf(err, "load page %d of owner %d", pageID, ownerID)
	}
	samples, err := BytesToSamplePage(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "load page %d of owner %d", pageID, ownerID)
	}
	if store.cacheEnabled {
		store.pageCache.Set(storage.GetKey(ownerID, pageID), samples, int64(8*len(samples)))
	}
	return samples, nil
}

// Pages loads every page of an owner in page order.
func (store *SampleStore) Pages(ownerID uint64) ([][]uint64, error) {
	pages := make([][]uint64, 0)
	err := store.backend.IterateIndex(ownerID, func(pageID uint64) error {
		page, err := store.GetPage(ownerID, pageID)
		if err != nil {
			return err
		}
		pages = append(pages, page)
		return nil
	})
	return pages, err
}

func (store *SampleStore) DeleteOwner(ownerID uint64) error {
	if store.cacheEnabled {
		err := store.backend.IterateIndex(ownerID, func(pageID uint64) error {
			store.pageCache.Del(storage.GetKey(ownerID, pageID))
			return nil
		})
		if err != nil {
			return err
		}
	}
	return store.backend.DeleteOwner(ownerID)
}

func (store *SampleStore) Close() error {
	if store.cacheEnabled {
		store.pageCache.Close()
	}
	return store.backend.Close()
}
