package mesh

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/log"
)

func TestContextLogger(t *testing.T) {
	bg := context.Background()
	assert.Equal(t, DefaultLogger, GetLogger(bg))

	var buf bytes.Buffer
	logger := log.NewTMLogger(&buf)
	ctx := WithLogger(bg, logger)
	assert.Equal(t, logger, GetLogger(ctx))

	tagged := WithLogInfo(ctx, "registry", "abc")
	assert.NotEqual(t, GetLogger(ctx), GetLogger(tagged))
	GetLogger(tagged).Info("hello")
	assert.Contains(t, buf.String(), "registry=abc")
}

func TestContextRequest(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), log.NewTMLogger(&buf))
	assert.Equal(t, "", GetRequest(ctx))

	ctx = WithRequest(ctx, "approve")
	assert.Equal(t, "approve", GetRequest(ctx))
	GetLogger(ctx).Info("done")
	require.True(t, strings.Contains(buf.String(), "request=approve"), buf.String())
}

func TestContextChainID(t *testing.T) {
	bg := context.Background()
	assert.Equal(t, "", GetChainID(bg))

	ctx := WithChainID(bg, "mesh-local")
	assert.Equal(t, "mesh-local", GetChainID(ctx))
	assert.Panics(t, func() { WithChainID(ctx, "mesh-local") }, "chain id is immutable")
	assert.Panics(t, func() { WithChainID(bg, "bad") }, "too short")
}

func TestIsValidChainID(t *testing.T) {
	valid := []string{"mesh-1", "wish-YOU-88", "under_score"}
	invalid := []string{"", "mesh", "invalid;;chars", "this-chain-id-is-way-too-long"}

	for _, id := range valid {
		assert.True(t, IsValidChainID(id), id)
	}
	for _, id := range invalid {
		assert.False(t, IsValidChainID(id), id)
	}
}
