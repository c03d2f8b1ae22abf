package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePolicyConfig(t *testing.T) {
	assert.NoError(t, validatePolicyConfig(DefaultPolicyConfig()))

	bad := DefaultPolicyConfig()
	bad.TicketEarnRate = 1.5
	assert.Error(t, validatePolicyConfig(bad))

	bad = DefaultPolicyConfig()
	bad.HistoryDefaultLimit = 0
	assert.Error(t, validatePolicyConfig(bad))

	bad = DefaultPolicyConfig()
	bad.HistoryMaxLimit = bad.HistoryDefaultLimit - 1
	assert.Error(t, validatePolicyConfig(bad))

	bad = DefaultPolicyConfig()
	bad.DashboardRecentSize = -1
	assert.Error(t, validatePolicyConfig(bad))
}

func TestNewPolicyHolderPartialFileMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "policy.yml"),
		[]byte("rewards:\n  ticketEarnRate: 0.01\n"),
		0o644,
	))

	holder, err := newPolicyHolder(dir)
	require.NoError(t, err)

	defaults := DefaultPolicyConfig()
	cfg := holder.Get()
	assert.Equal(t, 0.01, cfg.TicketEarnRate)
	assert.Equal(t, defaults.HistoryDefaultLimit, cfg.HistoryDefaultLimit)
	assert.Equal(t, defaults.HistoryMaxLimit, cfg.HistoryMaxLimit)
	assert.Equal(t, defaults.DashboardRecentSize, cfg.DashboardRecentSize)
}

func TestNewPolicyHolderMissingFileUsesDefaults(t *testing.T) {
	holder, err := newPolicyHolder(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultPolicyConfig(), holder.Get())
}

func TestNewPolicyHolderRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "policy.yml"),
		[]byte("rewards:\n  ticketEarnRate: 2.0\n"),
		0o644,
	))

	_, err := newPolicyHolder(dir)
	assert.Error(t, err)
}

func TestStaticPolicyHolder(t *testing.T) {
	cfg := DefaultPolicyConfig()
	cfg.TicketEarnRate = 0.01

	holder := NewStaticPolicyHolder(cfg)
	assert.Equal(t, 0.01, holder.Get().TicketEarnRate)
}
