package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStandardTime(t *testing.T) {
	tm := NewStandardTime(nil)
	require.Equal(t, CST, tm.Location())

	_, offset := tm.Now().Zone()
	require.Equal(t, 8*60*60, offset)
}

func TestFixedTime(t *testing.T) {
	at := time.Date(2025, 9, 20, 23, 30, 0, 0, CST)
	tm := FixedTime{At: at}
	require.Equal(t, at, tm.Now())
	require.Equal(t, CST, tm.Location())
}
