package mesh

import (
	"context"
	"regexp"

	"github.com/tendermint/tendermint/libs/log"
)

// Context carries the request scoped values of a registry call: the logger,
// the chain id signatures are bound to and the request name.
type Context = context.Context

type ctxKey uint8

const (
	loggerKey ctxKey = iota + 1
	chainIDKey
	requestKey
)

var (
	// DefaultLogger is returned when no logger was attached.
	DefaultLogger = log.NewNopLogger()

	// IsValidChainID reports whether id may name a registry instance.
	IsValidChainID = regexp.MustCompile(`^[a-zA-Z0-9_\-]{6,20}$`).MatchString
)

// WithLogger attaches logger to ctx.
func WithLogger(ctx Context, logger log.Logger) Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithLogInfo returns a context whose logger carries keyvals on every line.
func WithLogInfo(ctx Context, keyvals ...interface{}) Context {
	return WithLogger(ctx, GetLogger(ctx).With(keyvals...))
}

// GetLogger returns the attached logger or DefaultLogger.
func GetLogger(ctx Context) log.Logger {
	if l, ok := ctx.Value(loggerKey).(log.Logger); ok {
		return l
	}
	return DefaultLogger
}

// WithChainID binds ctx to a chain id. The id is immutable once set, so
// a second call panics, as does an invalid id.
func WithChainID(ctx Context, chainID string) Context {
	if _, ok := ctx.Value(chainIDKey).(string); ok {
		panic("chain id already set")
	}
	if !IsValidChainID(chainID) {
		panic("invalid chain id: " + chainID)
	}
	return context.WithValue(ctx, chainIDKey, chainID)
}

// GetChainID returns the bound chain id, or "" when none is set.
func GetChainID(ctx Context) string {
	id, _ := ctx.Value(chainIDKey).(string)
	return id
}

// WithRequest names the registry operation served by ctx and tags the
// logger with it.
func WithRequest(ctx Context, name string) Context {
	ctx = WithLogInfo(ctx, "request", name)
	return context.WithValue(ctx, requestKey, name)
}

// GetRequest returns the operation name set by WithRequest.
func GetRequest(ctx Context) string {
	name, _ := ctx.Value(requestKey).(string)
	return name
}
