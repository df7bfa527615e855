package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAutoAlwaysConfirms verifies the assume-yes confirmer approves everything.
func TestAutoAlwaysConfirms(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewAuto().Confirm(context.Background(), "Do you want to continue?"))
}

// TestConfirmerFunc verifies the function adapter passes questions through.
func TestConfirmerFunc(t *testing.T) {
	t.Parallel()

	var asked string

	c := ConfirmerFunc(func(_ context.Context, question string) error {
		asked = question

		return ErrDeclined
	})

	err := c.Confirm(context.Background(), "Load it?")
	require.ErrorIs(t, err, ErrDeclined)
	require.Equal(t, "Load it?", asked)
}
