package database

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/genesis"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/signature"
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64    `json:"number"`          // Block number in the chain, zero for genesis.
	PrevBlockHash string    `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64    `json:"timestamp"`       // Time the block was mined.
	Nonce         uint64    `json:"nonce"`           // Value identified to solve the hash solution.
	BeneficiaryID AccountID `json:"beneficiary"`     // The account receiving the mining reward.
	Difficulty    uint16    `json:"difficulty"`      // Number of leading zero hex digits needed to solve the hash solution.
	TransRoot     string    `json:"trans_root"`      // Hash over the ordered transaction ids in this block.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  []BlockTx
}

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	BeneficiaryID AccountID
	Difficulty    uint16
	MiningReward  currency.Units
	ChainID       uint16
	PrevBlock     Block
	Trans         []BlockTx
	EvHandler     func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The mining reward transaction is
// synthesized here and prepended; it never enters through the mempool.
func POW(ctx context.Context, args POWArgs) (Block, error) {

	// Credit the beneficiary with the fixed mining reward.
	reward := NewSystemTx(args.ChainID, TxMiningReward, args.BeneficiaryID, args.MiningReward)
	trans := append([]BlockTx{reward}, args.Trans...)

	// Construct the block to be mined.
	nb := Block{
		Header: BlockHeader{
			Number:        args.PrevBlock.Header.Number + 1,
			PrevBlockHash: args.PrevBlock.Hash(),
			TimeStamp:     uint64(time.Now().UTC().Unix()),
			Nonce:         0, // Will be identified by the POW algorithm.
			BeneficiaryID: args.BeneficiaryID,
			Difficulty:    args.Difficulty,
			TransRoot:     TransRoot(trans),
		},
		Trans: trans,
	}

	// Perform the proof of work mining operation.
	if err := nb.performPOW(ctx, args.EvHandler); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// NewGenesisBlock constructs the fixed first block of the chain. It carries
// no transactions, links to a zero hash and is never revalidated against a
// prior block.
func NewGenesisBlock(gen genesis.Genesis) Block {
	return Block{
		Header: BlockHeader{
			Number:        0,
			PrevBlockHash: signature.ZeroHash,
			TimeStamp:     uint64(gen.Date.UTC().Unix()),
			Difficulty:    gen.Difficulty,
			TransRoot:     TransRoot(nil),
		},
	}
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("database: performPOW: MINING: started: difficulty[%d]", b.Header.Difficulty)
	defer ev("database: performPOW: MINING: completed")

	for _, tx := range b.Trans {
		ev("database: performPOW: MINING: tx[%s]", tx)
	}

	// Choose a random starting point for the nonce. After this, the nonce
	// will be incremented by 1 until a solution is found.
	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return err
	}
	b.Header.Nonce = nBig.Uint64()

	// Loop until a solution is found or the operation is cancelled. The
	// context is checked every attempt so cancellation latency is bounded
	// by a single hash computation.
	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: performPOW: MINING: attempts[%d]", attempts)
		}

		if ctx.Err() != nil {
			ev("database: performPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.Hash()
		if !isHashSolved(b.Header.Difficulty, hash) {
			b.Header.Nonce++
			continue
		}

		ev("database: performPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.PrevBlockHash, hash)
		ev("database: performPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}

// Hash returns the unique hash for the Block. Hashing only the header keeps
// the chain checkable from headers alone; the header commits to the
// transactions through the TransRoot field.
func (b Block) Hash() string {
	return signature.Hash(b.Header)
}

// ValidateBlock takes a block and validates it to be included into the chain
// after the specified previous block.
func (b Block) ValidateBlock(previousBlock Block, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Header.Number)

	nextNumber := previousBlock.Header.Number + 1
	if b.Header.Number != nextNumber {
		return fmt.Errorf("this block is not the next number, got %d, exp %d", b.Header.Number, nextNumber)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Header.Number)

	if b.Header.PrevBlockHash != previousBlock.Hash() {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.Header.PrevBlockHash, previousBlock.Hash())
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Header.Number)

	hash := b.Hash()
	if !isHashSolved(b.Header.Difficulty, hash) {
		return fmt.Errorf("%s invalid block hash for difficulty %d", hash, b.Header.Difficulty)
	}

	if previousBlock.Header.TimeStamp > 0 {
		evHandler("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is greater than parent block's timestamp", b.Header.Number)

		parentTime := time.Unix(int64(previousBlock.Header.TimeStamp), 0)
		blockTime := time.Unix(int64(b.Header.TimeStamp), 0)
		if blockTime.Before(parentTime) {
			return fmt.Errorf("block timestamp is before parent block, parent %s, block %s", parentTime, blockTime)
		}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: transaction root does match transactions", b.Header.Number)

	if b.Header.TransRoot != TransRoot(b.Trans) {
		return fmt.Errorf("transaction root does not match transactions, got %s, exp %s", TransRoot(b.Trans), b.Header.TransRoot)
	}

	for _, tx := range b.Trans {
		if err := tx.VerifyID(); err != nil {
			return err
		}
	}

	return nil
}

// TransRoot computes the hash that commits the block header to its ordered
// sequence of transactions.
func TransRoot(trans []BlockTx) string {
	ids := make([]string, len(trans))
	for i, tx := range trans {
		ids[i] = tx.ID
	}

	return signature.Hash(ids)
}

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint16, hash string) bool {
	const match = "0x00000000000000000"

	if len(hash) != 66 {
		return false
	}

	return hash[2:2+difficulty] == match[2:2+difficulty]
}

// =============================================================================

// BlockData represents what is written to and read from the block store.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []BlockTx   `json:"trans"`
}

// NewBlockData constructs the value to serialize to the block store.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans,
	}
}

// ToBlock converts a stored BlockData into a Block.
func ToBlock(blockData BlockData) Block {
	return Block{
		Header: blockData.Header,
		Trans:  blockData.Trans,
	}
}
