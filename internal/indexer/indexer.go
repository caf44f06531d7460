// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package indexer drives the sync loop: it walks confirmed blocks from the
// cursor to the chain tip, processes each block's transactions in order
// against a fresh overlay, and commits the overlay atomically before
// advancing. Blocks are committed strictly in height order.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/GaloisField2718/simplicity-dev/internal/bitcoin"
	"github.com/GaloisField2718/simplicity-dev/internal/config"
	"github.com/GaloisField2718/simplicity-dev/internal/logging"
	"github.com/GaloisField2718/simplicity-dev/internal/processor"
	"github.com/GaloisField2718/simplicity-dev/internal/state"
	"github.com/GaloisField2718/simplicity-dev/internal/storage"
)

const (
	syncStatusLogInterval = 30 * time.Second
)

// BlockSource yields confirmed blocks with fully decoded transactions
type BlockSource interface {
	GetBlockCount(ctx context.Context) (int64, error)
	GetBlockHash(ctx context.Context, height int64) (string, error)
	GetBlock(ctx context.Context, hash string) (*bitcoin.Block, error)
}

type Indexer struct {
	source       BlockSource
	store        *storage.Storage
	processor    *processor.Processor
	cursorHeight int64
	cursorHash   string
	tipHeight    int64
	tipReached   bool
	syncLogTimer *time.Timer
}

func New(
	source BlockSource,
	store *storage.Storage,
	proc *processor.Processor,
) *Indexer {
	return &Indexer{
		source:    source,
		store:     store,
		processor: proc,
	}
}

// Run syncs from the stored cursor (or the configured start height) to the
// chain tip, then polls for new blocks until the context is canceled. A
// cancellation between blocks discards nothing; a cancellation mid-block
// discards that block's overlay.
func (i *Indexer) Run(ctx context.Context) error {
	cfg := config.GetConfig()
	logger := logging.GetLogger()
	cursorHeight, cursorHash, err := i.store.GetCursor()
	if err != nil {
		return err
	}
	nextHeight := cfg.Indexer.StartHeight
	if cursorHeight > 0 {
		logger.Info(
			"found previous chainsync cursor",
			"height", cursorHeight,
			"blockHash", cursorHash,
		)
		i.cursorHeight = cursorHeight
		i.cursorHash = cursorHash
		nextHeight = cursorHeight + 1
	}
	// Schedule periodic catch-up sync log messages
	i.scheduleSyncStatusLog()
	defer func() {
		if i.syncLogTimer != nil {
			i.syncLogTimer.Stop()
		}
	}()
	for {
		tipHeight, err := i.source.GetBlockCount(ctx)
		if err != nil {
			return err
		}
		i.tipHeight = tipHeight
		for nextHeight <= tipHeight {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := i.processBlock(ctx, nextHeight); err != nil {
				return fmt.Errorf("failed to process block %d: %w", nextHeight, err)
			}
			nextHeight++
		}
		if !i.tipReached {
			i.tipReached = true
			if i.syncLogTimer != nil {
				i.syncLogTimer.Stop()
			}
			logger.Info(
				"chain tip reached",
				"height", i.cursorHeight,
				"blockHash", i.cursorHash,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Indexer.PollInterval):
		}
	}
}

// processBlock processes every transaction of one block against a fresh
// overlay and commits the overlay atomically
func (i *Indexer) processBlock(ctx context.Context, height int64) error {
	logger := logging.GetLogger()
	processed, err := i.store.IsBlockProcessed(height)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}
	hash, err := i.source.GetBlockHash(ctx, height)
	if err != nil {
		return err
	}
	block, err := i.source.GetBlock(ctx, hash)
	if err != nil {
		return err
	}
	timestamp := time.Unix(block.Time, 0).UTC()
	overlay := state.New(i.store)
	var found, valid, invalid int
	for txIndex := range block.Tx {
		result, err := i.processor.ProcessTransaction(
			ctx,
			&block.Tx[txIndex],
			height,
			txIndex,
			timestamp,
			hash,
			overlay,
		)
		if err != nil {
			return err
		}
		if result.OperationFound {
			found++
			if result.IsValid {
				valid++
			} else {
				invalid++
			}
		}
	}
	if err := i.store.CommitBlock(height, hash, overlay); err != nil {
		return err
	}
	i.cursorHeight = height
	i.cursorHash = hash
	if found > 0 {
		logger.Info(
			"committed block",
			"height", height,
			"blockHash", hash,
			"operations", found,
			"valid", valid,
			"invalid", invalid,
		)
	}
	return nil
}

func (i *Indexer) scheduleSyncStatusLog() {
	i.syncLogTimer = time.AfterFunc(syncStatusLogInterval, i.syncStatusLog)
}

func (i *Indexer) syncStatusLog() {
	logger := logging.GetLogger()
	logger.Info(fmt.Sprintf(
		"catch-up sync in progress: at %d.%s (current tip height is %d)",
		i.cursorHeight,
		i.cursorHash,
		i.tipHeight),
	)
	i.scheduleSyncStatusLog()
}
