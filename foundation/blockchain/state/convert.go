package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/datacoinlabs/datacoin/foundation/dataengine"
)

// ConvertData values a quantity of collected data and queues a system
// transaction crediting the specified account. The transaction travels the
// normal pool and mining path, the credit only exists once a block carries
// it. The returned transaction reports the value that will be credited.
func (s *State) ConvertData(toID database.AccountID, sourceID string, sizeMMB uint64, metrics dataengine.Metrics) (database.BlockTx, error) {
	s.evHandler("state: ConvertData: started: account[%s] source[%s] size[%d]", toID, sourceID, sizeMMB)

	if !toID.IsAccountID() {
		return database.BlockTx{}, fmt.Errorf("%w: invalid account for credit", ErrMalformedTransaction)
	}
	if sizeMMB == 0 {
		return database.BlockTx{}, fmt.Errorf("%w: no data to convert", ErrMalformedTransaction)
	}

	// An unregistered source values like a plain, unweighted web page.
	var ds dataengine.DataSource
	if sourceID != "" {
		var err error
		ds, err = s.dataEngine.Source(sourceID)
		if err != nil && !errors.Is(err, dataengine.ErrSourceNotFound) {
			return database.BlockTx{}, err
		}
	}

	now := time.Now()
	value := dataengine.Valuate(s.genesis.BaseRate, sizeMMB, metrics, ds, now)
	if value == 0 {
		return database.BlockTx{}, fmt.Errorf("%w: conversion produced no value", ErrMalformedTransaction)
	}

	tx := database.NewBlockTx(database.SignedTx{
		Tx: database.Tx{
			ChainID:     s.genesis.ChainID,
			Type:        database.TxDataConversion,
			ToID:        toID,
			Value:       value,
			DataSizeMMB: sizeMMB,
			TimeStamp:   uint64(now.UTC().UnixMilli()),
		},
	})

	s.mu.Lock()
	_, err := s.admitTransaction(tx)
	s.mu.Unlock()
	if err != nil {
		return database.BlockTx{}, err
	}

	if ds.ID != "" {
		if err := s.dataEngine.MarkCollected(ds.ID, sizeMMB, now); err != nil {
			s.evHandler("state: ConvertData: WARNING: mark collected: %s", err)
		}
	}

	return tx, nil
}

// DataEngine exposes the data source registry backing the conversions.
func (s *State) DataEngine() *dataengine.Engine {
	return s.dataEngine
}
