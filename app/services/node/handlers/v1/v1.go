// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/datacoinlabs/datacoin/app/services/node/handlers/v1/public"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/state"
	"github.com/datacoinlabs/datacoin/foundation/events"
	"github.com/datacoinlabs/datacoin/foundation/wallet"
	"github.com/datacoinlabs/datacoin/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Wallet *wallet.Wallet
	Evts   *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:    cfg.Log,
		State:  cfg.State,
		Wallet: cfg.Wallet,
		Evts:   cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/stats", pbl.Stats)
	app.Handle(http.MethodGet, version, "/accounts/list", pbl.Accounts)
	app.Handle(http.MethodGet, version, "/balance/:account", pbl.Balance)
	app.Handle(http.MethodGet, version, "/history/:account", pbl.History)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", pbl.BlocksByNumber)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitWalletTransaction)
	app.Handle(http.MethodPost, version, "/wallet/create", pbl.CreateWallet)
	app.Handle(http.MethodPost, version, "/mine", pbl.Mine)
	app.Handle(http.MethodGet, version, "/mining/signal", pbl.SignalMining)
	app.Handle(http.MethodPost, version, "/data/convert", pbl.ConvertData)
	app.Handle(http.MethodGet, version, "/data/sources", pbl.Sources)
	app.Handle(http.MethodPost, version, "/data/sources", pbl.AddSource)
	app.Handle(http.MethodDelete, version, "/data/sources/:id", pbl.RemoveSource)
	app.Handle(http.MethodPost, version, "/shares/buy", pbl.BuyShares)
	app.Handle(http.MethodPost, version, "/difficulty/adjust", pbl.AdjustDifficulty)
}
