package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anish1206/green-tech/internal/domain/identity"
)

func TestStaticVerifier(t *testing.T) {
	v := NewStaticVerifier(map[string]string{
		"tok-alice": "alice",
		" tok-bob ": " bob ",
		"":          "nobody",
		"tok-empty": "",
	})
	ctx := context.Background()

	id, err := v.Verify(ctx, "tok-alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Subject)
	assert.True(t, id.Verified())

	id, err = v.Verify(ctx, " tok-bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", id.Subject)

	for _, tok := range []string{"", "   ", "tok-alic", "tok-alice2", "tok-empty"} {
		_, err := v.Verify(ctx, tok)
		assert.ErrorIs(t, err, identity.ErrInvalidToken, tok)
	}
}
