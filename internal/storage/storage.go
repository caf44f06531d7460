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

// Package storage persists indexer state in Badger: deploys, balances,
// cumulative mint totals, the operation log, processed-block markers, and
// the sync cursor. A block's overlay commits in a single Badger update
// transaction, so partial block state is never visible.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/GaloisField2718/simplicity-dev/internal/common"
	"github.com/GaloisField2718/simplicity-dev/internal/config"
	"github.com/GaloisField2718/simplicity-dev/internal/state"

	"github.com/dgraph-io/badger/v4"
)

const (
	chainsyncCursorKey = "chainsync_cursor"

	deployKeyPrefix         = "deploy_"
	balanceKeyPrefix        = "balance_"
	mintedKeyPrefix         = "minted_"
	operationKeyPrefix      = "op_"
	processedBlockKeyPrefix = "processed_block_"
)

type Storage struct {
	db *badger.DB
}

var globalStorage = &Storage{}

func (s *Storage) Load() error {
	cfg := config.GetConfig()
	badgerOpts := badger.DefaultOptions(cfg.Storage.Directory).
		WithLogger(NewBadgerLogger()).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

// GetStorage returns the global storage instance
func GetStorage() *Storage {
	return globalStorage
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) UpdateCursor(height int64, blockHash string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		val := fmt.Sprintf("%d,%s", height, blockHash)
		return txn.Set([]byte(chainsyncCursorKey), []byte(val))
	})
	return err
}

func (s *Storage) GetCursor() (int64, string, error) {
	var height int64
	var blockHash string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(chainsyncCursorKey))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			var err error
			cursorParts := strings.SplitN(string(v), ",", 2)
			height, err = strconv.ParseInt(cursorParts[0], 10, 64)
			if err != nil {
				return err
			}
			blockHash = cursorParts[1]
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, "", nil
	}
	return height, blockHash, err
}

// GetDeploy returns the deploy record for a normalized ticker, or nil when
// the ticker has no deploy
func (s *Storage) GetDeploy(ticker string) (*common.Deploy, error) {
	var deploy *common.Deploy
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(deployKeyPrefix + ticker))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			var tmp common.Deploy
			if err := json.Unmarshal(v, &tmp); err != nil {
				return fmt.Errorf("failed to unmarshal deploy: %w", err)
			}
			deploy = &tmp
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return deploy, err
}

// GetBalance returns the balance for (address, normalized ticker). Missing
// rows read as "0".
func (s *Storage) GetBalance(address string, ticker string) (string, error) {
	balance := "0"
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(balanceKey(address, ticker)))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			balance = string(v)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "0", nil
	}
	return balance, err
}

// GetTotalMinted returns the cumulative minted amount for a normalized
// ticker. Missing rows read as "0".
func (s *Storage) GetTotalMinted(ticker string) (string, error) {
	minted := "0"
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(mintedKeyPrefix + ticker))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			minted = string(v)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "0", nil
	}
	return minted, err
}

// IsBlockProcessed reports whether a height has already been committed
func (s *Storage) IsBlockProcessed(height int64) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(processedBlockKey(height)))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// processedBlock is the stored marker for a committed block
type processedBlock struct {
	Hash        string    `json:"hash"`
	ProcessedAt time.Time `json:"processedAt"`
}

// CommitBlock atomically writes a block's overlay: staged deploys,
// balances, mint totals, and operation log entries, plus the
// processed-block marker and the sync cursor
func (s *Storage) CommitBlock(
	height int64,
	blockHash string,
	overlay *state.Overlay,
) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for ticker, deploy := range overlay.Deploys() {
			data, err := json.Marshal(deploy)
			if err != nil {
				return fmt.Errorf("failed to marshal deploy: %w", err)
			}
			if err := txn.Set([]byte(deployKeyPrefix+ticker), data); err != nil {
				return err
			}
		}
		for key, balance := range overlay.Balances() {
			err := txn.Set(
				[]byte(balanceKey(key.Address, key.Ticker)),
				[]byte(balance),
			)
			if err != nil {
				return err
			}
		}
		for ticker, minted := range overlay.Minted() {
			err := txn.Set(
				[]byte(mintedKeyPrefix+ticker),
				[]byte(minted),
			)
			if err != nil {
				return err
			}
		}
		for _, op := range overlay.Operations() {
			data, err := json.Marshal(op)
			if err != nil {
				return fmt.Errorf("failed to marshal operation: %w", err)
			}
			if err := txn.Set([]byte(operationKey(op)), data); err != nil {
				return err
			}
		}
		marker, err := json.Marshal(processedBlock{
			Hash:        blockHash,
			ProcessedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		err = txn.Set([]byte(processedBlockKey(height)), marker)
		if err != nil {
			return err
		}
		cursor := fmt.Sprintf("%d,%s", height, blockHash)
		return txn.Set([]byte(chainsyncCursorKey), []byte(cursor))
	})
	if err != nil {
		return fmt.Errorf("failed to commit block %d: %w", height, err)
	}
	return nil
}

// GetOperationsByHeight returns the operation log entries committed for a
// block, in replay order
func (s *Storage) GetOperationsByHeight(height int64) ([]common.OperationLog, error) {
	var ops []common.OperationLog
	prefix := []byte(fmt.Sprintf("%s%010d_", operationKeyPrefix, height))
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var op common.OperationLog
				if err := json.Unmarshal(v, &op); err != nil {
					return fmt.Errorf("failed to unmarshal operation: %w", err)
				}
				ops = append(ops, op)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ops, nil
}

func balanceKey(address string, ticker string) string {
	return fmt.Sprintf("%s%s_%s", balanceKeyPrefix, address, ticker)
}

func processedBlockKey(height int64) string {
	return fmt.Sprintf("%s%010d", processedBlockKeyPrefix, height)
}

// operationKey orders log entries by (height, txIndex, voutIndex, step),
// which is replay order
func operationKey(op common.OperationLog) string {
	step := 0
	if op.MultiTransferStep != nil {
		step = *op.MultiTransferStep
	}
	return fmt.Sprintf(
		"%s%010d_%06d_%04d_%04d",
		operationKeyPrefix,
		op.BlockHeight,
		op.TxIndex,
		op.VoutIndex,
		step,
	)
}
