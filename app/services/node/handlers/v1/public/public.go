// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/datacoinlabs/datacoin/business/sys/validate"
	v1 "github.com/datacoinlabs/datacoin/business/web/v1"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/state"
	"github.com/datacoinlabs/datacoin/foundation/dataengine"
	"github.com/datacoinlabs/datacoin/foundation/events"
	"github.com/datacoinlabs/datacoin/foundation/wallet"
	"github.com/datacoinlabs/datacoin/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Wallet *wallet.Wallet
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// CreateWallet generates a fresh named key pair and returns its address.
// The private key stays encrypted inside the node's keystore.
func (h Handlers) CreateWallet(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nw newWallet
	if err := web.Decode(r, &nw); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}
	if err := validate.Check(nw); err != nil {
		return err
	}

	accountID, err := h.Wallet.Create(nw.Name, nw.Passphrase)
	if err != nil {
		return v1.NewRequestError(err, http.StatusConflict)
	}

	resp := struct {
		Name    string             `json:"name"`
		Account database.AccountID `json:"account"`
	}{
		Name:    nw.Name,
		Account: accountID,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// SubmitWalletTransaction adds a new user transaction to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var signedTx database.SignedTx
	if err := web.Decode(r, &signedTx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.Log.Infow("add user tran", "traceid", v.TraceID, "tx", signedTx, "to", signedTx.ToID, "value", signedTx.Value)

	txID, err := h.State.SubmitWalletTransaction(signedTx)
	if err != nil {
		return submissionError(err)
	}

	resp := struct {
		Status string `json:"status"`
		TxID   string `json:"tx_id"`
	}{
		Status: "transaction added to mempool",
		TxID:   txID,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mine runs a mining operation for the caller and commits the block. The
// request context cancels the nonce search.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blk, err := h.State.MineNewBlock(ctx)
	if err != nil {
		switch {
		case errors.Is(err, state.ErrMiningBusy):
			return v1.NewRequestError(err, http.StatusConflict)
		case errors.Is(err, state.ErrStaleBlock):
			return v1.NewRequestError(err, http.StatusConflict)
		case ctx.Err() != nil:
			return v1.NewRequestError(errors.New("mining cancelled"), http.StatusRequestTimeout)
		}
		return err
	}

	resp := mineResponse{
		BlockNumber: blk.Header.Number,
		BlockHash:   blk.Hash(),
		Reward:      h.State.Genesis().MiningReward.String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SignalMining asks the background worker to start a mining operation.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.State.Worker.SignalStartMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ConvertData values collected data and queues a transaction crediting the
// requesting account.
func (h Handlers) ConvertData(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var cr convertRequest
	if err := web.Decode(r, &cr); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}
	if err := validate.Check(cr); err != nil {
		return err
	}

	accountID, err := database.ToAccountID(cr.Account)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	metrics := dataengine.Metrics{
		ContentSizeMMB: cr.ContentSizeMMB,
		ResponseTimeMS: cr.ResponseTimeMS,
		LinksCount:     cr.LinksCount,
		ImagesCount:    cr.ImagesCount,
		DataPoints:     cr.DataPoints,
	}

	tran, err := h.State.ConvertData(accountID, cr.SourceID, cr.SizeMMB, metrics)
	if err != nil {
		return submissionError(err)
	}

	resp := convertResponse{
		TxID:    tran.ID,
		Account: cr.Account,
		Value:   tran.Value.String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BuyShares accepts a signed share purchase transaction and reports the
// resulting holdings.
func (h Handlers) BuyShares(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var signedTx database.SignedTx
	if err := web.Decode(r, &signedTx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if signedTx.Type != database.TxSharePurchase {
		return v1.NewRequestError(errors.New("transaction is not a share purchase"), http.StatusBadRequest)
	}

	txID, err := h.State.SubmitWalletTransaction(signedTx)
	if err != nil {
		return submissionError(err)
	}

	committed := h.State.QuerySharesOf(signedTx.FromID, signedTx.Company)

	resp := sharesResponse{
		TxID:            txID,
		Company:         signedTx.Company,
		CommittedShares: committed,
		PendingShares:   committed + signedTx.Shares,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// AdjustDifficulty recomputes the mining difficulty from committed share
// ownership.
func (h Handlers) AdjustDifficulty(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	oldD, newD := h.State.AdjustDifficulty()

	resp := difficultyResponse{
		OldDifficulty: oldD,
		NewDifficulty: newD,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Stats returns the observable node statistics.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryStats(), http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Balance returns the committed and pending-inclusive balance for an
// account.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	view := h.State.QueryBalance(accountID)

	resp := balance{
		Account:   view.AccountID,
		Committed: view.Committed.String(),
		Pending:   view.Pending.String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// History returns the committed transactions touching an account in chain
// order.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	trans, err := h.State.QueryHistory(accountID)
	if err != nil {
		return err
	}

	out := make([]tx, len(trans))
	for i, tran := range trans {
		out[i] = h.toTx(tran)
	}

	return web.Respond(ctx, w, out, http.StatusOK)
}

// Accounts returns the current balances and holdings for all accounts.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	dbAccounts := h.State.QueryAccounts()

	acts := make([]info, 0, len(dbAccounts))
	for accountID, act := range dbAccounts {
		acts = append(acts, info{
			Account: accountID,
			Name:    h.Wallet.Name(accountID),
			Balance: act.Balance.String(),
			Shares:  act.Shares,
		})
	}

	ai := actInfo{
		LatestBlock: h.State.LatestBlock().Hash(),
		Uncommitted: h.State.MempoolLength(),
		Accounts:    acts,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pool := h.State.Mempool()

	trans := make([]tx, len(pool))
	for i, tran := range pool {
		trans[i] = h.toTx(tran)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// BlocksByNumber returns the blocks in the requested range with their
// transactions.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := strconv.ParseUint(web.Param(r, "from"), 10, 64)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}
	to, err := strconv.ParseUint(web.Param(r, "to"), 10, 64)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	dbBlocks, err := h.State.QueryBlocksByNumber(from, to)
	if err != nil {
		return err
	}
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block, len(dbBlocks))
	for i, blk := range dbBlocks {
		trans := make([]tx, len(blk.Trans))
		for j, tran := range blk.Trans {
			trans[j] = h.toTx(tran)
		}

		blocks[i] = block{
			Number:        blk.Header.Number,
			PrevBlockHash: blk.Header.PrevBlockHash,
			Hash:          blk.Hash(),
			TimeStamp:     blk.Header.TimeStamp,
			Nonce:         blk.Header.Nonce,
			Beneficiary:   blk.Header.BeneficiaryID,
			Difficulty:    blk.Header.Difficulty,
			TransRoot:     blk.Header.TransRoot,
			Trans:         trans,
		}
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Sources returns the registered data sources.
func (h Handlers) Sources(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.DataEngine().Sources(), http.StatusOK)
}

// AddSource registers an external data source for valuation.
func (h Handlers) AddSource(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var sr sourceRequest
	if err := web.Decode(r, &sr); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}
	if err := validate.Check(sr); err != nil {
		return err
	}

	ds := dataengine.DataSource{
		ID:       sr.ID,
		Type:     sr.Type,
		URL:      sr.URL,
		WeightBP: sr.WeightBP,
	}
	if err := h.State.DataEngine().AddSource(ds); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, ds, http.StatusCreated)
}

// RemoveSource drops a data source from the registry.
func (h Handlers) RemoveSource(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.DataEngine().RemoveSource(web.Param(r, "id")); err != nil {
		if errors.Is(err, dataengine.ErrSourceNotFound) {
			return v1.NewRequestError(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// =============================================================================

// submissionError maps the state submission sentinels to trusted request
// errors with the right status codes.
func submissionError(err error) error {
	switch {
	case errors.Is(err, state.ErrInsufficientBalance):
		return v1.NewRequestError(err, http.StatusBadRequest)
	case errors.Is(err, state.ErrInvalidSignature):
		return v1.NewRequestError(err, http.StatusBadRequest)
	case errors.Is(err, state.ErrMalformedTransaction):
		return v1.NewRequestError(err, http.StatusBadRequest)
	case errors.Is(err, state.ErrUnknownCompany):
		return v1.NewRequestError(err, http.StatusBadRequest)
	case errors.Is(err, state.ErrDuplicateTransaction):
		return v1.NewRequestError(err, http.StatusConflict)
	}
	return err
}
