package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	base := New("debug")
	ctx := IntoContext(context.Background(), base)
	require.Same(t, base, FromContext(ctx))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	require.NotNil(t, FromContext(context.Background()))
}

func TestWithExtendsContextLogger(t *testing.T) {
	base := New("info")
	ctx := IntoContext(context.Background(), base)

	l := With(ctx, "request_id", "abc")
	require.NotNil(t, l)
	require.NotSame(t, base, l)
}
