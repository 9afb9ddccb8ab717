package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/settings"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/users"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func memoryBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{users: users.NewMemoryRepository(), settings: settings.NewMemoryRepository()}
	prev := openBackend
	openBackend = func(context.Context) (*backend, error) { return b, nil }
	t.Cleanup(func() { openBackend = prev })
	return b
}

func TestParseAnswers(t *testing.T) {
	got, err := parseAnswers("1=5, 2=3,,")
	require.NoError(t, err)
	require.Equal(t, map[int]int{1: 5, 2: 3}, got)

	for _, bad := range []string{"", "1", "x=2", "1=y"} {
		_, err := parseAnswers(bad)
		require.Error(t, err, bad)
	}
}

func TestDiscScore(t *testing.T) {
	out, err := run(t, "disc", "score", "--answers", "3=5,4=5")
	require.NoError(t, err)
	var res struct {
		Dominance   int    `json:"dominance"`
		PrimaryType string `json:"primaryType"`
		Answered    int    `json:"answered"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, 100, res.Dominance)
	require.Equal(t, "D", res.PrimaryType)
	require.Equal(t, 2, res.Answered)

	_, err = run(t, "disc", "score", "--answers", "3=9")
	require.Error(t, err)
}

func TestSearchScore(t *testing.T) {
	file := filepath.Join(t.TempDir(), "vas.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
		{"id":"a","name":"Ana","bio":"I manage calendars and inboxes"},
		{"id":"b","name":"Ben","bio":"Shopify store setup, Shopify themes and Shopify apps"}
	]`), 0o600))

	out, err := run(t, "search", "score", "--query", "shopify", "--file", file)
	require.NoError(t, err)
	var res struct {
		Mode    string     `json:"mode"`
		Results []scoredVA `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, "fallback", res.Mode)
	require.Len(t, res.Results, 2)
	require.Equal(t, "b", res.Results[0].ID)
	require.Greater(t, res.Results[0].Score, res.Results[1].Score)
}

func TestSearchScore_RejectsNullEntry(t *testing.T) {
	file := filepath.Join(t.TempDir(), "vas.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"id":"a","name":"Ana","bio":"Shopify"}, null]`), 0o600))

	_, err := run(t, "search", "score", "--query", "shopify", "--file", file)
	require.Error(t, err)
	require.Contains(t, err.Error(), "entry 1")
}

func TestProfileCompletion(t *testing.T) {
	file := filepath.Join(t.TempDir(), "biz.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"company":"Acme"}`), 0o600))

	out, err := run(t, "profile", "completion", "--kind", "business", "--file", file)
	require.NoError(t, err)
	require.Contains(t, out, `"canMessage": false`)

	_, err = run(t, "profile", "completion", "--kind", "robot", "--file", file)
	require.Error(t, err)
}

func TestSettingsSeedAndAdminCreate(t *testing.T) {
	b := memoryBackend(t)

	out, err := run(t, "settings", "seed")
	require.NoError(t, err)
	require.Contains(t, out, "seeded "+settings.KeyProfileGateThreshold)
	out, err = run(t, "settings", "seed")
	require.NoError(t, err)
	require.Contains(t, out, "already seeded")

	out, err = run(t, "admin", "create", "--email", "root@example.com", "--password", "secret1", "--name", "Root")
	require.NoError(t, err)
	require.Contains(t, out, "created admin root@example.com")
	has, err := users.NewService(b.users).HasAdmin(context.Background())
	require.NoError(t, err)
	require.True(t, has)

	_, err = run(t, "admin", "create", "--email", "other@example.com", "--password", "secret1")
	require.ErrorIs(t, err, users.ErrAdminExists)
}
