package config

import (
	"os"

	"github.com/schemadrift/schemadrift/internal/errors"
)

// Ledger credential environment variables. The names are part of the
// backend contract and read once at backend initialization.
const (
	EnvLedgerAccountID  = "LEDGER_ACCOUNT_ID"
	EnvLedgerPrivateKey = "LEDGER_PRIVATE_KEY"
	EnvLedgerTopicID    = "LEDGER_TOPIC_ID"
	EnvLedgerNetwork    = "LEDGER_NETWORK"
)

// LedgerCredentials holds connection settings for the ledger proof backend
type LedgerCredentials struct {
	AccountID  string
	PrivateKey string
	TopicID    string
	Network    string // "testnet" or "mainnet"
}

// LedgerCredentialsFromEnv reads ledger credentials from the environment.
// Every variable is required; the returned error names the first missing one.
func LedgerCredentialsFromEnv() (*LedgerCredentials, error) {
	creds := &LedgerCredentials{
		AccountID:  os.Getenv(EnvLedgerAccountID),
		PrivateKey: os.Getenv(EnvLedgerPrivateKey),
		TopicID:    os.Getenv(EnvLedgerTopicID),
		Network:    os.Getenv(EnvLedgerNetwork),
	}

	for _, v := range []struct {
		name  string
		value string
	}{
		{EnvLedgerAccountID, creds.AccountID},
		{EnvLedgerPrivateKey, creds.PrivateKey},
		{EnvLedgerTopicID, creds.TopicID},
		{EnvLedgerNetwork, creds.Network},
	} {
		if v.value == "" {
			return nil, errors.ConfigErrorf("ledger backend requires %s to be set", v.name)
		}
	}

	if creds.Network != "testnet" && creds.Network != "mainnet" {
		return nil, errors.ConfigErrorf("%s must be testnet or mainnet, got %q", EnvLedgerNetwork, creds.Network)
	}

	return creds, nil
}
