package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLReturnsContextLogger(t *testing.T) {
	logger := L(context.Background()).Named("request")

	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, L(ctx))
}

func TestLFallsBackToGlobal(t *testing.T) {
	assert.NotNil(t, L(context.Background()))
}
