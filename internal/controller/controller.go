package controller

import (
	"github.com/safewallet/walletkit/internal/config"
)

// WalletCtl the wallet controller
var WalletCtl *WalletController

// InitAPI init the api controller
func InitAPI(cfg *config.Config, reader ChainReader) {
	WalletCtl = NewWalletController(cfg, reader)
}
