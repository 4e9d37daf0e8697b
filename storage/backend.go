package storage

import (
	"encoding/binary"
	"github.com/pkg/errors"
	"sort"
	"sync"
)

var ErrPageNotFound = errors.New("page not found")

const keySize = 16

// GetKey lays out <8 bytes owner ID> <8 bytes page ID>, big endian so that a
// prefix scan visits the pages of one owner in page order.
func GetKey(ownerID, pageID uint64) []byte {
	buf := make([]byte, keySize)
	binary.BigEndian.PutUint64(buf[:8], ownerID)
	binary.BigEndian.PutUint64(buf[8:], pageID)
	return buf
}

func GetKeyPrefix(ownerID uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, ownerID)
	return buf
}

func GetOwnerIDFromKey(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf[:8])
}

func GetPageIDFromKey(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf[8:])
}

// Backend stores opaque pages grouped by owner.
type Backend interface {
	Get(ownerID, pageID uint64) ([]byte, error)
	Put(ownerID, pageID uint64, buf []byte) error
	Delete(ownerID, pageID uint64) error
	DeleteOwner(ownerID uint64) error

	// IterateIndex visits the page IDs of one owner in ascending order.
	IterateIndex(ownerID uint64, lambda func(pageID uint64) error) error

	Close() error
}

type InMemoryBackend struct {
	pages      map[string][]byte
	pagesMutex sync.Mutex
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		pages: make(map[string][]byte),
	}
}

func (backend *InMemoryBackend) Get(ownerID, pageID uint64) ([]byte, error) {
	backend.pagesMutex.Lock()
	defer backend.pagesMutex.Unlock()
	buf, ok := backend.pages[string(GetKey(ownerID, pageID))]
	if !ok {
		return nil, ErrPageNotFound
	}
	return buf, nil
}

func (backend *InMemoryBackend) Put(ownerID, pageID uint64, buf []byte) error {
	backend.pagesMutex.Lock()
	defer backend.pagesMutex.Unlock()
	backend.pages[string(GetKey(ownerID, pageID))] = buf
	return nil
}

func (backend *InMemoryBackend) Delete(ownerID, pageID uint64) error {
	backend.pagesMutex.Lock()
	defer backend.pagesMutex.Unlock()
	delete(backend.pages, string(GetKey(ownerID, pageID)))
	return nil
}

func (backend *InMemoryBackend) DeleteOwner(ownerID uint64) error {
	backend.pagesMutex.Lock()
	defer backend.pagesMutex.Unlock()
	for k := range backend.pages {
		if GetOwnerIDFromKey([]byte(k)) == ownerID {
			delete(backend.pages, k)
		}
	}
	return nil
}

func (backend *InMemoryBackend) IterateIndex(ownerID uint64, lambda func(uint64) error) error {
	backend.pagesMutex.Lock()
	pageIDs := make([]uint64, 0)
	for k := range backend.pages {
		buf := []byte(k)
		if GetOwnerIDFromKey(buf) != ownerID {
			continue
		}
		pageIDs = append(pageIDs, GetPageIDFromKey(buf))
	}
	backend.pagesMutex.Unlock()

	sort.Slice(pageIDs, func(i, j int) bool { return pageIDs[i] < pageIDs[j] })
	for _, pageID := range pageIDs {
		if err := lambda(pageID); err != nil {
			return err
		}
	}
	return nil
}

func (backend *InMemoryBackend) Close() error {
	backend.pagesMutex.Lock()
	defer backend.pagesMutex.Unlock()
	backend.pages = nil
	return nil
}
