package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"leaseflow/internal/config"
	"leaseflow/internal/middleware"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "devtoken-test-secret"

func stubConfig(env, driver string) func() (*config.Config, error) {
	return func() (*config.Config, error) {
		cfg := &config.Config{}
		cfg.App.Environment = env
		cfg.Store.Driver = driver
		cfg.Auth.JWTSecret = testSecret
		return cfg, nil
	}
}

func execute(load func() (*config.Config, error), args ...string) (string, error) {
	cmd := newRootCmd(load)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDevtokenSignsForUser(t *testing.T) {
	userID := uuid.New()
	out, err := execute(stubConfig("development", config.StoreDriverMemory), "--user", userID.String(), "--ttl", "10m")
	require.NoError(t, err)

	got, err := middleware.NewAuth(testSecret, nil, nil).ParseToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestDevtokenFlagErrors(t *testing.T) {
	loadCalled := false
	load := func() (*config.Config, error) {
		loadCalled = true
		return nil, errors.New("config should not be loaded")
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"neither user nor email", nil, "[user email]"},
		{"both user and email", []string{"--user", uuid.NewString(), "--email", "a@example.com"}, "[user email]"},
		{"bad user id", []string{"--user", "not-a-uuid"}, "invalid --user"},
		{"zero ttl", []string{"--user", uuid.NewString(), "--ttl", "0s"}, "--ttl must be positive"},
		{"bad ttl", []string{"--user", uuid.NewString(), "--ttl", "soon"}, "invalid argument"},
		{"positional args", []string{"--user", uuid.NewString(), "extra"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(load, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.False(t, loadCalled)
}

func TestDevtokenRefusesProduction(t *testing.T) {
	_, err := execute(stubConfig("production", config.StoreDriverMemory), "--user", uuid.NewString())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "production")
}

func TestDevtokenEmailNeedsPostgres(t *testing.T) {
	_, err := execute(stubConfig("development", config.StoreDriverMemory), "--email", "admin@example.com", "--ttl", time.Hour.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres store")
}
