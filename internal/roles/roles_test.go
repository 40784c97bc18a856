package roles

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	set := Parse("USER,DEALER")
	require.True(t, set.Has(User))
	require.True(t, set.Has(Dealer))
	require.False(t, set.Has(Admin))
}

func TestParseNormalizes(t *testing.T) {
	set := Parse(" user , Admin ,dealer")
	require.True(t, set.Has(User))
	require.True(t, set.Has(Admin))
	require.True(t, set.Has(Dealer))
}

func TestParseDropsUnknown(t *testing.T) {
	set := Parse("USER,SUPERUSER,")
	require.Len(t, set, 1)
	require.True(t, set.Has(User))

	require.Empty(t, Parse(""))
}

func TestStringStableOrder(t *testing.T) {
	require.Equal(t, "ADMIN,USER,DEALER", Parse("DEALER,USER,ADMIN").String())
	require.Equal(t, "USER", Parse("USER").String())
}

func TestAddRemove(t *testing.T) {
	set := Parse("USER")
	set.Add(Dealer)
	require.Equal(t, "USER,DEALER", set.String())
	set.Remove(Dealer)
	require.Equal(t, "USER", set.String())
}

func TestRoundTrip(t *testing.T) {
	require.Equal(t, "ADMIN,DEALER", Parse(Parse("dealer,admin").String()).String())
}
