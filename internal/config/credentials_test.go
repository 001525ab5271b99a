package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setAllLedgerVars(t *testing.T) {
	t.Helper()
	t.Setenv(EnvLedgerAccountID, "0.0.1001")
	t.Setenv(EnvLedgerPrivateKey, "302e020100300506032b657004220420")
	t.Setenv(EnvLedgerTopicID, "0.0.2002")
	t.Setenv(EnvLedgerNetwork, "testnet")
}

func TestLedgerCredentialsFromEnv(t *testing.T) {
	setAllLedgerVars(t)

	creds, err := LedgerCredentialsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "0.0.1001", creds.AccountID)
	assert.Equal(t, "0.0.2002", creds.TopicID)
	assert.Equal(t, "testnet", creds.Network)
}

func TestLedgerCredentialsMissingVariableIsNamed(t *testing.T) {
	for _, missing := range []string{
		EnvLedgerAccountID, EnvLedgerPrivateKey, EnvLedgerTopicID, EnvLedgerNetwork,
	} {
		t.Run(missing, func(t *testing.T) {
			setAllLedgerVars(t)
			t.Setenv(missing, "")

			_, err := LedgerCredentialsFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), missing)
		})
	}
}

func TestLedgerCredentialsNetworkValidation(t *testing.T) {
	setAllLedgerVars(t)
	t.Setenv(EnvLedgerNetwork, "devnet")

	_, err := LedgerCredentialsFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "devnet")

	t.Setenv(EnvLedgerNetwork, "mainnet")
	creds, err := LedgerCredentialsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "mainnet", creds.Network)
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "none", cfg.Proof.Backend)
	assert.NotEmpty(t, cfg.Crawl.Patterns)
	assert.Contains(t, cfg.Crawl.Exclude, "node_modules")
	assert.Greater(t, cfg.Crawl.Concurrency, 0)
}
