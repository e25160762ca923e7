package cartcookie

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec() *Codec {
	return New([]byte("cookie-secret"), "hp_cart", false)
}

func TestCodecRoundTrip(t *testing.T) {
	c := testCodec()
	items := []Item{
		{VariantID: "v1", Qty: 2},
		{VariantID: "v2", Qty: 1},
	}

	v, err := c.Encode(items)
	require.NoError(t, err)

	got, err := c.Decode(v)
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestCodecRejectsTamperedPayload(t *testing.T) {
	c := testCodec()
	v, err := c.Encode([]Item{{VariantID: "v1", Qty: 1}})
	require.NoError(t, err)

	parts := strings.SplitN(v, ".", 2)
	require.Len(t, parts, 2)

	// re-encode different items, keep the old signature
	forged, err := c.Encode([]Item{{VariantID: "v1", Qty: 99}})
	require.NoError(t, err)
	forgedPayload := strings.SplitN(forged, ".", 2)[0]

	_, err = c.Decode(forgedPayload + "." + parts[1])
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCodecRejectsWrongSecret(t *testing.T) {
	v, err := testCodec().Encode([]Item{{VariantID: "v1", Qty: 1}})
	require.NoError(t, err)

	other := New([]byte("different-secret"), "hp_cart", false)
	_, err = other.Decode(v)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCodecRejectsGarbage(t *testing.T) {
	c := testCodec()
	for _, v := range []string{
		"",
		"no-dot",
		".",
		"a.b.c",
		"!!!.???",
	} {
		_, err := c.Decode(v)
		assert.Error(t, err, "value %q", v)
	}
}

func TestCodecDropsInvalidItems(t *testing.T) {
	c := testCodec()
	v, err := c.Encode([]Item{
		{VariantID: "v1", Qty: 2},
		{VariantID: "", Qty: 5},
		{VariantID: "v2", Qty: 0},
		{VariantID: "v3", Qty: -1},
	})
	require.NoError(t, err)

	got, err := c.Decode(v)
	require.NoError(t, err)
	assert.Equal(t, []Item{{VariantID: "v1", Qty: 2}}, got)
}

func TestCodecCapsItemCount(t *testing.T) {
	c := testCodec()
	items := make([]Item, 150)
	for i := range items {
		items[i] = Item{VariantID: "v", Qty: 1}
	}

	v, err := c.Encode(items)
	require.NoError(t, err)

	got, err := c.Decode(v)
	require.NoError(t, err)
	assert.Len(t, got, 100)
}
