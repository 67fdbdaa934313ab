package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/datacoinlabs/datacoin/app/services/node/handlers"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/database/storage"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/genesis"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/state"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/worker"
	"github.com/datacoinlabs/datacoin/foundation/dataengine"
	"github.com/datacoinlabs/datacoin/foundation/events"
	"github.com/datacoinlabs/datacoin/foundation/logger"
	"github.com/datacoinlabs/datacoin/foundation/wallet"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:120s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		State struct {
			BeneficiaryName       string `conf:"default:miner1"`
			BeneficiaryPassphrase string `conf:"default:datacoin,mask"`
			GenesisPath           string `conf:"default:zblock/genesis.json"`
			Storage               string `conf:"default:disk"`
			DBPath                string `conf:"default:zblock/blocks"`
			WalletPath            string `conf:"default:zblock/wallet"`
			SourcesPath           string `conf:"default:zblock/sources.json"`
			SelectStrategy        string `conf:"default:fifo"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "data backed proof of work ledger node",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	fmt.Println(`  ____    _  _____  _    ____ ___ ___ _   _ `)
	fmt.Println(` |  _ \  / \|_   _|/ \  / ___/ _ \_ _| \ | |`)
	fmt.Println(` | | | |/ _ \ | | / _ \| |  | | | | ||  \| |`)
	fmt.Println(` | |_| / ___ \| |/ ___ \ |__| |_| | || |\  |`)
	fmt.Println(` |____/_/   \_\_/_/   \_\____\___/___|_| \_|`)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Wallet Support

	// The wallet keeps the encrypted keys for locally managed accounts,
	// including the account that receives this node's mining rewards.
	wlt, err := wallet.New(cfg.State.WalletPath)
	if err != nil {
		return fmt.Errorf("unable to open wallet: %w", err)
	}

	beneficiaryID, err := wlt.Lookup(cfg.State.BeneficiaryName)
	if err != nil {
		if !errors.Is(err, wallet.ErrNotFound) {
			return fmt.Errorf("unable to resolve beneficiary: %w", err)
		}

		log.Infow("startup", "status", "creating beneficiary wallet", "name", cfg.State.BeneficiaryName)
		beneficiaryID, err = wlt.Create(cfg.State.BeneficiaryName, cfg.State.BeneficiaryPassphrase)
		if err != nil {
			return fmt.Errorf("unable to create beneficiary wallet: %w", err)
		}
	}

	log.Infow("startup", "status", "beneficiary resolved", "name", cfg.State.BeneficiaryName, "account", beneficiaryID)

	// =========================================================================
	// Ledger Support

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	// The ledger packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	var strg database.Serializer
	switch cfg.State.Storage {
	case "leveldb":
		strg, err = storage.NewLevelDB(cfg.State.DBPath)
	case "memory":
		strg, err = storage.NewMemory()
	default:
		strg, err = storage.NewDisk(cfg.State.DBPath)
	}
	if err != nil {
		return fmt.Errorf("unable to open block storage: %w", err)
	}

	dataEng, err := dataengine.New(cfg.State.SourcesPath, ev)
	if err != nil {
		return fmt.Errorf("unable to open data engine: %w", err)
	}

	st, err := state.New(state.Config{
		BeneficiaryID:  beneficiaryID,
		Genesis:        gen,
		Storage:        strg,
		DataEngine:     dataEng,
		SelectStrategy: cfg.State.SelectStrategy,
		EvHandler:      ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// The worker implements the background mining workflow and registers
	// itself with the state.
	worker.Run(st, ev)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log)

	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Start Public Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	log.Infow("startup", "status", "initializing V1 public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Wallet:   wlt,
		Evts:     evts,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
