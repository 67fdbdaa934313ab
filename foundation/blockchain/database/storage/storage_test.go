package storage_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/database/storage"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// mkBlockData fabricates a minimal stored block for the specified position.
func mkBlockData(num uint64) database.BlockData {
	return database.BlockData{
		Hash: fmt.Sprintf("0x%064d", num),
		Header: database.BlockHeader{
			Number: num,
		},
	}
}

func TestSerializers(t *testing.T) {
	type table struct {
		name string
		strg database.Serializer
	}

	memory, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("\t%s\tShould open memory storage: %v", failed, err)
	}

	disk, err := storage.NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("\t%s\tShould open disk storage: %v", failed, err)
	}

	ldb, err := storage.NewLevelDB(filepath.Join(t.TempDir(), "blocks"))
	if err != nil {
		t.Fatalf("\t%s\tShould open leveldb storage: %v", failed, err)
	}
	defer ldb.Close()

	tt := []table{
		{name: "memory", strg: memory},
		{name: "disk", strg: disk},
		{name: "leveldb", strg: ldb},
	}

	t.Log("Given the need to persist blocks across storage backends.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen using the %s backend.", testID, tst.name)
			{
				for num := uint64(0); num < 3; num++ {
					if err := tst.strg.Write(mkBlockData(num)); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould write block %d: %v", failed, testID, num, err)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould write 3 blocks.", success, testID)

				blockData, err := tst.strg.GetBlock(1)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould read block 1: %v", failed, testID, err)
				}
				if blockData.Hash != mkBlockData(1).Hash {
					t.Fatalf("\t%s\tTest %d:\tShould read back the identical block, got %q.", failed, testID, blockData.Hash)
				}
				t.Logf("\t%s\tTest %d:\tShould read back the identical block.", success, testID)

				if _, err := tst.strg.GetBlock(99); err == nil {
					t.Fatalf("\t%s\tTest %d:\tShould fail reading a missing block.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould fail reading a missing block.", success, testID)

				var count uint64
				iter := tst.strg.ForEach()
				for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould iterate without error: %v", failed, testID, err)
					}
					if blockData.Header.Number != count {
						t.Fatalf("\t%s\tTest %d:\tShould iterate in chain order, got %d, exp %d.", failed, testID, blockData.Header.Number, count)
					}
					count++
				}
				if count != 3 {
					t.Fatalf("\t%s\tTest %d:\tShould iterate 3 blocks, got %d.", failed, testID, count)
				}
				t.Logf("\t%s\tTest %d:\tShould iterate 3 blocks in chain order.", success, testID)

				if err := tst.strg.Reset(); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould reset the store: %v", failed, testID, err)
				}

				iter = tst.strg.ForEach()
				count = 0
				for iter.Next(); !iter.Done(); iter.Next() {
					count++
				}
				if count != 0 {
					t.Fatalf("\t%s\tTest %d:\tShould be empty after reset, got %d blocks.", failed, testID, count)
				}
				t.Logf("\t%s\tTest %d:\tShould be empty after reset.", success, testID)
			}
		}
	}
}

func TestDiskPersistence(t *testing.T) {
	dbPath := t.TempDir()

	t.Log("Given the need for blocks to survive a process restart.")
	{
		t.Logf("\tTest 0:\tWhen reopening disk storage.")
		{
			strg, err := storage.NewDisk(dbPath)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould open disk storage: %v", failed, err)
			}
			for num := uint64(0); num < 2; num++ {
				if err := strg.Write(mkBlockData(num)); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould write block %d: %v", failed, num, err)
				}
			}
			strg.Close()

			reopened, err := storage.NewDisk(dbPath)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould reopen disk storage: %v", failed, err)
			}
			defer reopened.Close()

			blockData, err := reopened.GetBlock(1)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould read block 1 after reopen: %v", failed, err)
			}
			if blockData.Hash != mkBlockData(1).Hash {
				t.Fatalf("\t%s\tTest 0:\tShould keep the block content, got %q.", failed, blockData.Hash)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the blocks across a reopen.", success)
		}
	}
}

func TestLevelDBPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "blocks")

	t.Log("Given the need for leveldb blocks to survive a process restart.")
	{
		t.Logf("\tTest 0:\tWhen reopening the leveldb store.")
		{
			strg, err := storage.NewLevelDB(dbPath)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould open leveldb storage: %v", failed, err)
			}
			for num := uint64(0); num < 2; num++ {
				if err := strg.Write(mkBlockData(num)); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould write block %d: %v", failed, num, err)
				}
			}
			strg.Close()

			reopened, err := storage.NewLevelDB(dbPath)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould reopen leveldb storage: %v", failed, err)
			}
			defer reopened.Close()

			blockData, err := reopened.GetBlock(1)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould read block 1 after reopen: %v", failed, err)
			}
			if blockData.Hash != mkBlockData(1).Hash {
				t.Fatalf("\t%s\tTest 0:\tShould keep the block content, got %q.", failed, blockData.Hash)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the blocks across a reopen.", success)
		}
	}
}
