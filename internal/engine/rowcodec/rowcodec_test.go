package rowcodec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"godb/internal/catalog"
)

func TestSetFieldZeroPadsShortString(t *testing.T) {
	col := catalog.Column{Name: "name", Type: catalog.ColFixedString, Size: 8, Offset: 4}
	row := make([]byte, 12)
	require.NoError(t, SetField(row, col, "Bob"))
	require.Equal(t, "Bob\x00\x00\x00\x00\x00", string(row[4:12]))
	require.Equal(t, "Bob", ReadField(row, col))
}

func TestSetFieldTruncatesAndForcesTrailingNull(t *testing.T) {
	col := catalog.Column{Name: "name", Type: catalog.ColFixedString, Size: 4, Offset: 0}
	row := make([]byte, 4)
	require.NoError(t, SetField(row, col, "Alexander"))
	require.Equal(t, byte(0), row[3])
	require.Equal(t, "Ale", ReadField(row, col))
}

func TestReadStringToleratesFullyFilledFieldWithNoTerminator(t *testing.T) {
	col := catalog.Column{Name: "name", Type: catalog.ColFixedString, Size: 4, Offset: 0}
	row := []byte("abcd")
	require.Equal(t, "abcd", ReadField(row, col))
}

func TestSetFieldAndReadInt32RoundTrip(t *testing.T) {
	col := catalog.Column{Name: "id", Type: catalog.ColInt32, Size: 4, Offset: 0}
	row := make([]byte, 4)
	require.NoError(t, SetField(row, col, "12345"))
	require.Equal(t, "12345", ReadField(row, col))
	require.EqualValues(t, 12345, ReadInt32(row, col))
}

func TestSetFieldRejectsNonIntegerForIntColumn(t *testing.T) {
	col := catalog.Column{Name: "id", Type: catalog.ColInt32, Size: 4, Offset: 0}
	row := make([]byte, 4)
	require.Error(t, SetField(row, col, "not-a-number"))
}

func TestMatchesFilter(t *testing.T) {
	priceCol := catalog.Column{Name: "price", Type: catalog.ColInt32, Size: 4, Offset: 0}
	row := make([]byte, 4)
	SetInt32(row, priceCol, 20)

	ok, err := MatchesFilter(row, priceCol, "20")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = MatchesFilter(row, priceCol, "21")
	require.NoError(t, err)
	require.False(t, ok)
}
