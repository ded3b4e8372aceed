// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command florestad runs a Utreexo full-validation Bitcoin node: it loads
// or initializes a chain state against a LevelDB-backed store and serves
// it to whatever P2P/RPC collaborator is wired in at build time. Network
// transport and the script interpreter are external collaborators this
// binary does not itself provide; run with -noscriptverify to make that
// explicit in structural-only (assume-valid) mode.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jrick/logrotate/rotator"

	"github.com/JoseSK999/floresta/blockchain"
	"github.com/JoseSK999/floresta/chaincfg"
	"github.com/JoseSK999/floresta/chainhash"
	"github.com/JoseSK999/floresta/log"
	"github.com/JoseSK999/floresta/storage/leveldb"
	"github.com/JoseSK999/floresta/txscript"
)

// initLogRotator opens (creating its directory if necessary) a rotating
// log file at logFile and makes it the log package's second writer,
// alongside stdout. The rotator caps individual files at 10 MiB and keeps
// up to 3 old files around, the same defaults the btcsuite/dcrd family
// ships.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("creating log rotator: %w", err)
	}
	log.InitLogWriter(r)
	return nil
}

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func realMain() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
		return err
	}

	params := chaincfg.MainNetParams()
	switch {
	case cfg.TestNet:
		params = chaincfg.TestNetParams()
	case cfg.RegTest:
		params = chaincfg.RegTestParams()
	}
	if cfg.AssumeValid != "" {
		hash, err := chainhash.NewHashFromStr(cfg.AssumeValid)
		if err != nil {
			return fmt.Errorf("parsing -assumevalid: %w", err)
		}
		params.AssumeValidHash = hash
	}

	log.CFGN.Infof("starting florestad on %s", params.Name)

	store, err := leveldb.Open(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		return fmt.Errorf("opening chain database: %w", err)
	}
	defer store.Close()

	var verifier txscript.ScriptVerifier
	if cfg.NoScriptVerify {
		log.CFGN.Warnf("running in structural-only validation mode: no script interpreter is wired in")
	}

	sigCache, err := txscript.NewSigCache(cfg.MaxSigCacheSize)
	if err != nil {
		return fmt.Errorf("initializing signature cache: %w", err)
	}

	chainState := blockchain.New(store, params, verifier, sigCache)
	if err := chainState.Init(); err != nil {
		return fmt.Errorf("initializing chain state: %w", err)
	}

	height, hash := chainState.GetBestBlock()
	log.CHST.Infof("chain state ready at height %d, tip %s", height, hash)

	// No p2p.BlockSource or rpcsurface server is wired in here: both are
	// external collaborators (see p2p and rpcsurface), selected at deploy
	// time by whatever embeds this chain state.

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.CFGN.Info("shutdown requested, flushing chain state")
	chainState.Shutdown()
	return nil
}
