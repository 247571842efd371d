package pgn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const livePGN = `[Event "Live Chess"]
[Site "Chess.com"]
[Date "2021.10.06"]
[White "alice"]
[Black "bob"]
[Result "1-0"]
[ECO "B20"]
[UTCDate "2021.10.06"]
[UTCTime "17:26:31"]
[TimeControl "180"]
[EndDate "2021.10.06"]
[EndTime "17:31:25"]

1. e4 {[%clk 0:02:58.1]} 1... c5 {[%clk 0:02:59]} 2. Nf3 {[%clk 0:02:57.2]} 2... d6 {[%clk 0:02:56.5]} 3. Bb5+ {[%clk 0:02:55]} 3... Bd7 {[%clk 0:02:50.1]} 1-0`

func TestExtract_LiveGame(t *testing.T) {
	d := Extract(livePGN, 180, 0)

	require.Len(t, d.Moves, 6)
	require.Len(t, d.Clocks, 6)
	require.Len(t, d.SecondsSpent, 6)
	assert.Equal(t, 6, d.PlyCount)
	assert.Equal(t, 3, d.MoveCount)

	assert.Equal(t, []string{"e4", "c5", "Nf3", "d6", "Bb5+", "Bd7"}, d.Moves)

	assert.InDelta(t, 178.1, d.Clocks[0], 0.001)
	assert.InDelta(t, 179.0, d.Clocks[1], 0.001)
	assert.InDelta(t, 170.1, d.Clocks[5], 0.001)

	// White: 180 -> 178.1 -> 177.2 -> 175; black: 180 -> 179 -> 176.5 -> 170.1
	assert.InDelta(t, 1.9, d.SecondsSpent[0], 0.001)
	assert.InDelta(t, 1.0, d.SecondsSpent[1], 0.001)
	assert.InDelta(t, 0.9, d.SecondsSpent[2], 0.001)
	assert.InDelta(t, 2.5, d.SecondsSpent[3], 0.001)
	assert.InDelta(t, 2.2, d.SecondsSpent[4], 0.001)
	assert.InDelta(t, 6.4, d.SecondsSpent[5], 0.001)

	require.NotNil(t, d.DurationSeconds)
	assert.InDelta(t, 294.0, *d.DurationSeconds, 0.001)
	assert.Equal(t, "B20", d.ECO)
}

func TestExtract_IncrementAddsToSpent(t *testing.T) {
	text := "1. e4 {[%clk 0:03:00]} 1... e5 {[%clk 0:03:01]} 2. Nf3 {[%clk 0:02:59]}"

	d := Extract(text, 180, 2)
	require.Len(t, d.SecondsSpent, 3)
	// White used 0s of clock plus the 2s increment.
	assert.InDelta(t, 2.0, d.SecondsSpent[0], 0.001)
	// Black's clock went up by 1s with a 2s increment: 1s spent.
	assert.InDelta(t, 1.0, d.SecondsSpent[1], 0.001)
	// White: 180 -> 179 with increment 2: 3s spent.
	assert.InDelta(t, 3.0, d.SecondsSpent[2], 0.001)
}

func TestExtract_ClampsInstantMoves(t *testing.T) {
	// A premove can report a clock above the previous reading; the
	// platform never reports a move under 0.1s.
	text := "1. e4 {[%clk 0:03:05]} 1... e5 {[%clk 0:03:00]}"

	d := Extract(text, 180, 0)
	require.Len(t, d.SecondsSpent, 2)
	assert.InDelta(t, 0.1, d.SecondsSpent[0], 0.001)
}

func TestExtract_CastlingAndPromotion(t *testing.T) {
	text := "1. O-O {[%clk 0:01:00]} 1... O-O-O {[%clk 0:01:00]} 2. exd8=Q+ {[%clk 0:00:59]}"

	d := Extract(text, 60, 0)
	assert.Equal(t, []string{"O-O", "O-O-O", "exd8=Q+"}, d.Moves)
	assert.Equal(t, 3, d.PlyCount)
	assert.Equal(t, 2, d.MoveCount)
}

func TestExtract_NoClockAnnotations(t *testing.T) {
	text := `[Event "Daily Chess"]
[White "alice"]
[Black "bob"]

1. d4 d5 2. c4 e6 3. Nc3 Nf6 1/2-1/2`

	d := Extract(text, 0, 0)
	assert.Empty(t, d.Moves)
	assert.Empty(t, d.Clocks)
	assert.Empty(t, d.SecondsSpent)
	assert.Equal(t, 6, d.PlyCount)
	assert.Equal(t, 3, d.MoveCount)
	assert.Nil(t, d.DurationSeconds)
}

func TestExtract_EmptyText(t *testing.T) {
	d := Extract("", 180, 0)
	assert.Empty(t, d.Moves)
	assert.Zero(t, d.PlyCount)
	assert.Nil(t, d.DurationSeconds)
}

func TestExtract_MissingEndTags(t *testing.T) {
	text := `[UTCDate "2021.10.06"]
[UTCTime "17:26:31"]

1. e4 e5`

	d := Extract(text, 180, 0)
	assert.Nil(t, d.DurationSeconds)
	assert.Equal(t, 2, d.PlyCount)
}

func TestExtract_ParallelSequenceLengths(t *testing.T) {
	d := Extract(livePGN, 180, 0)
	n := len(d.Moves)
	assert.Equal(t, n, len(d.Clocks))
	assert.Equal(t, n, len(d.SecondsSpent))
	assert.Equal(t, n, d.PlyCount)
	assert.Equal(t, (n+1)/2, d.MoveCount)
}
