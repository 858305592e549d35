package rawdb

import "github.com/ethereum/go-ethereum/metrics"

var (
	rawdbGetAccountTimer   = metrics.NewRegisteredTimer("rawdb/get/account/time", nil)
	rawdbGetStorageTimer   = metrics.NewRegisteredTimer("rawdb/get/storage/time", nil)
	rawdbGetCodeTimer      = metrics.NewRegisteredTimer("rawdb/get/code/time", nil)
	rawdbGetBlockHashTimer = metrics.NewRegisteredTimer("rawdb/get/blockhash/time", nil)
)
