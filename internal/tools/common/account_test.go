package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teemow/inboxassist/internal/server"
)

func TestGetAccountFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		args     map[string]any
		expected string
	}{
		{"no account specified", context.Background(), map[string]any{}, "default"},
		{"explicit account", context.Background(), map[string]any{"account": "work"}, "work"},
		{"empty account", context.Background(), map[string]any{"account": ""}, "default"},
		{"nil args", context.Background(), nil, "default"},
		{"non-string account", context.Background(), map[string]any{"account": 123}, "default"},
		{"context wins over argument", server.WithAccount(context.Background(), "personal"), map[string]any{"account": "work"}, "personal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetAccountFromArgs(tt.ctx, tt.args))
		})
	}
}
