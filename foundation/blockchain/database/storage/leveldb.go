package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB represents the serialization implementation for storing blocks
// inside a leveldb key/value store keyed by block number. A Put is atomic,
// so a block is either fully durable or not visible at all. This implements
// the database.Serializer interface.
type LevelDB struct {
	dbPath string
	db     *leveldb.DB
}

// NewLevelDB constructs a LevelDB value for use.
func NewLevelDB(dbPath string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, err
	}

	return &LevelDB{dbPath: dbPath, db: db}, nil
}

// Close releases the underlying leveldb handle.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Write stores the block under its number with a synchronous, atomic put.
func (l *LevelDB) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return l.db.Put(blockKey(blockData.Header.Number), data, nil)
}

// GetBlock retrieves the contents of the specified block by number.
func (l *LevelDB) GetBlock(num uint64) (database.BlockData, error) {
	data, err := l.db.Get(blockKey(num), nil)
	if err != nil {
		return database.BlockData{}, err
	}

	var blockData database.BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks starting with
// the genesis block.
func (l *LevelDB) ForEach() database.Iterator {
	return &LevelDBIterator{ldb: l, current: ^uint64(0)}
}

// Reset removes every block from the store.
func (l *LevelDB) Reset() error {
	iter := l.db.NewIterator(&util.Range{}, nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return err
	}

	return l.db.Write(batch, nil)
}

// blockKey forms the big-endian key for the specified block number so keys
// iterate in chain order.
func blockKey(num uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, num)
	return key
}

// =============================================================================

// LevelDBIterator walks the blocks stored in leveldb in chain order. This
// implements the database.Iterator interface.
type LevelDBIterator struct {
	ldb     *LevelDB
	current uint64
	eoc     bool
}

// Next retrieves the next block from the store.
func (li *LevelDBIterator) Next() (database.BlockData, error) {
	if li.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	li.current++
	blockData, err := li.ldb.GetBlock(li.current)
	if errors.Is(err, leveldb.ErrNotFound) {
		li.eoc = true
	}

	return blockData, err
}

// Done returns the end of chain value.
func (li *LevelDBIterator) Done() bool {
	return li.eoc
}
