package s3fm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	public := ObjectRecord{
		FileName:    "logo.png",
		StorageKey:  "images/logo.png",
		AccessToken: "public-token",
	}
	protected := ObjectRecord{
		FileName:     "report.pdf",
		StorageKey:   "docs/report.pdf",
		AccessToken:  "protected-token",
		AuthRequired: true,
	}

	t.Run("public record resolves for anyone", func(t *testing.T) {
		t.Parallel()

		resolver := NewResolver(newMemCatalog(public, protected), &fakePresigner{})

		target, err := resolver.Resolve(context.Background(), "public-token", false)

		require.NoError(t, err)
		assert.Equal(t, "https://bucket.example.com/images/logo.png?expires=300", target)
	})

	t.Run("protected record requires authentication", func(t *testing.T) {
		t.Parallel()

		resolver := NewResolver(newMemCatalog(public, protected), &fakePresigner{})

		_, err := resolver.Resolve(context.Background(), "protected-token", false)

		require.ErrorIs(t, err, ErrAuthRequired)
	})

	t.Run("protected record resolves for authenticated callers", func(t *testing.T) {
		t.Parallel()

		resolver := NewResolver(newMemCatalog(public, protected), &fakePresigner{})

		target, err := resolver.Resolve(context.Background(), "protected-token", true)

		require.NoError(t, err)
		assert.Equal(t, "https://bucket.example.com/docs/report.pdf?expires=300", target)
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()

		resolver := NewResolver(newMemCatalog(public), &fakePresigner{})

		_, err := resolver.Resolve(context.Background(), "no-such-token", true)

		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("presigner failure surfaces", func(t *testing.T) {
		t.Parallel()

		resolver := NewResolver(
			newMemCatalog(public),
			&fakePresigner{err: errors.New("not configured")},
		)

		_, err := resolver.Resolve(context.Background(), "public-token", false)

		require.ErrorContains(t, err, "not configured")
	})
}
