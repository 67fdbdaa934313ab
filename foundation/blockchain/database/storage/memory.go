package storage

import (
	"errors"
	"io/fs"
	"sync"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
)

// Memory represents the serialization implementation for storing blocks
// in memory. Handy for testing and ephemeral nodes. This implements the
// database.Serializer interface.
type Memory struct {
	mu     sync.RWMutex
	blocks []database.BlockData
}

// NewMemory constructs a Memory value for use.
func NewMemory() (*Memory, error) {
	return &Memory{}, nil
}

// Close in this implementation has nothing to do.
func (m *Memory) Close() error {
	return nil
}

// Write appends the block to the in-memory chain. Blocks must arrive in
// chain order.
func (m *Memory) Write(blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if blockData.Header.Number != uint64(len(m.blocks)) {
		return errors.New("block out of sequence")
	}

	m.blocks = append(m.blocks, blockData)
	return nil
}

// GetBlock retrieves the contents of the specified block by number.
func (m *Memory) GetBlock(num uint64) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if num >= uint64(len(m.blocks)) {
		return database.BlockData{}, fs.ErrNotExist
	}

	return m.blocks[num], nil
}

// ForEach returns an iterator to walk through all the blocks starting with
// the genesis block.
func (m *Memory) ForEach() database.Iterator {
	return &MemoryIterator{memory: m, current: ^uint64(0)}
}

// Reset clears the in-memory chain.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = nil
	return nil
}

// =============================================================================

// MemoryIterator represents the iteration implementation for walking
// through the in-memory blocks. This implements the database.Iterator
// interface.
type MemoryIterator struct {
	memory  *Memory
	current uint64
	eoc     bool
}

// Next retrieves the next block from memory.
func (mi *MemoryIterator) Next() (database.BlockData, error) {
	if mi.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	mi.current++
	blockData, err := mi.memory.GetBlock(mi.current)
	if errors.Is(err, fs.ErrNotExist) {
		mi.eoc = true
	}

	return blockData, err
}

// Done returns the end of chain value.
func (mi *MemoryIterator) Done() bool {
	return mi.eoc
}
