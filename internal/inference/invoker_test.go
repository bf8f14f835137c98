package inference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulated(t *testing.T) {
	got, err := Simulated().Invoke(context.Background(), "What is the refund policy?", "Answer briefly.")
	require.NoError(t, err)
	assert.Equal(t,
		`AI Response to: "What is the refund policy?" based on instructions: "Answer briefly."`,
		got)
}

func TestInvokerFunc(t *testing.T) {
	inv := InvokerFunc(func(_ context.Context, userInput, _ string) (string, error) {
		return "echo:" + userInput, nil
	})

	got, err := inv.Invoke(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", got)
}
