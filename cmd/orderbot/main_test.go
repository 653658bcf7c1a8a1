package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersOperations(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"serve"},
		{"outbox", "replay"},
		{"counter", "next"},
		{"catalog", "seed"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		require.Equal(t, path[len(path)-1], cmd.Name())
	}
	require.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestCleanupInterval(t *testing.T) {
	require.Equal(t, time.Minute, cleanupInterval(time.Minute))
	require.Equal(t, 7*time.Minute+30*time.Second, cleanupInterval(30*time.Minute))
	require.Equal(t, 15*time.Minute, cleanupInterval(24*time.Hour))
}

func TestLoadDatasetDefaultsToSample(t *testing.T) {
	ds, err := loadDataset("")
	require.NoError(t, err)
	require.NotEmpty(t, ds)

	_, err = loadDataset(t.TempDir() + "/missing.yaml")
	require.Error(t, err)
}
