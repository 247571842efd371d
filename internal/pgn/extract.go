// Package pgn derives per-move timing analytics from archive PGN text.
//
// The platform embeds a clock annotation after every move in live games:
//
//	1. e4 {[%clk 0:02:59.9]} 1... c5 {[%clk 0:02:58.8]} 2. Nf3 ...
//
// Extraction is a regex scan over (SAN token, clock comment) pairs; no move
// legality is checked.
package pgn

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Derivation holds the analytics extracted from one game's move text. The
// Moves, Clocks and SecondsSpent slices are parallel, one entry per
// clock-annotated ply. PlyCount is computed independently of the clock
// annotations so it survives PGNs without them.
type Derivation struct {
	Moves           []string
	Clocks          []float64
	SecondsSpent    []float64
	PlyCount        int
	MoveCount       int
	DurationSeconds *float64
	ECO             string
}

// minMoveSeconds is the platform floor: no move is ever reported faster.
const minMoveSeconds = 0.1

var (
	tagRe = regexp.MustCompile(`\[(\w+)\s+"([^"]*)"\]`)

	// SAN move followed by a bracketed clock comment.
	moveClockRe = regexp.MustCompile(
		`((?:O-O-O|O-O|[KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](?:=[QRBN])?)[+#]?)\s*\{\[%clk\s+(\d+):(\d+):(\d+(?:\.\d+)?)\]\}`)

	// Bare SAN token, used for the independent ply count.
	moveTokenRe = regexp.MustCompile(
		`^(?:O-O-O|O-O|[KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](?:=[QRBN])?)[+#]?$`)

	commentRe    = regexp.MustCompile(`\{[^}]*\}`)
	moveNumberRe = regexp.MustCompile(`^\d+\.{1,3}$`)
)

// Extract parses a game's PGN blob into move timing analytics. Base time
// and increment come from the game's time control. Malformed or
// annotation-free text degrades to empty sequences; Extract never fails.
func Extract(moveText string, baseSeconds, incrementSeconds int) *Derivation {
	d := &Derivation{}
	if moveText == "" {
		return d
	}

	tags := parseTags(moveText)
	d.ECO = tags["ECO"]
	d.DurationSeconds = gameDuration(tags)

	body := movetextSection(moveText)
	if body == "" {
		return d
	}

	d.PlyCount = countPlies(body)
	d.MoveCount = int(math.Ceil(float64(d.PlyCount) / 2))

	matches := moveClockRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return d
	}

	d.Moves = make([]string, 0, len(matches))
	d.Clocks = make([]float64, 0, len(matches))
	d.SecondsSpent = make([]float64, 0, len(matches))

	// Remaining clock per side, white first. Both start from base time;
	// attribution alternates in move order.
	remaining := [2]float64{float64(baseSeconds), float64(baseSeconds)}

	for i, m := range matches {
		clock := clockSeconds(m[2], m[3], m[4])
		side := i % 2

		spent := remaining[side] - clock + float64(incrementSeconds)
		if spent < minMoveSeconds {
			spent = minMoveSeconds
		}
		remaining[side] = clock

		d.Moves = append(d.Moves, m[1])
		d.Clocks = append(d.Clocks, clock)
		d.SecondsSpent = append(d.SecondsSpent, spent)
	}

	return d
}

// parseTags collects the PGN tag pairs from the header block.
func parseTags(pgn string) map[string]string {
	tags := make(map[string]string)
	for _, m := range tagRe.FindAllStringSubmatch(pgn, -1) {
		tags[m[1]] = m[2]
	}
	return tags
}

// movetextSection returns the text following the tag-pair header block.
func movetextSection(pgn string) string {
	if idx := strings.Index(pgn, "\n\n"); idx >= 0 {
		return strings.TrimSpace(pgn[idx+2:])
	}
	// No header block present; treat the whole text as movetext unless it
	// is only tag pairs.
	if strings.HasPrefix(strings.TrimSpace(pgn), "[") {
		return ""
	}
	return strings.TrimSpace(pgn)
}

// countPlies counts SAN tokens without requiring clock annotations.
func countPlies(body string) int {
	stripped := commentRe.ReplaceAllString(body, " ")
	count := 0
	for _, field := range strings.Fields(stripped) {
		if moveNumberRe.MatchString(field) {
			continue
		}
		if moveTokenRe.MatchString(field) {
			count++
		}
	}
	return count
}

// clockSeconds converts an H:MM:SS[.d] reading to total seconds.
// Non-numeric components default to 0.
func clockSeconds(h, m, s string) float64 {
	hours, err := strconv.Atoi(h)
	if err != nil {
		hours = 0
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		minutes = 0
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		seconds = 0
	}
	return float64(hours)*3600 + float64(minutes)*60 + seconds
}

const pgnTimeLayout = "2006.01.02 15:04:05"

// gameDuration computes wall-clock duration from the paired UTC start and
// end tags. Missing or unparseable tags yield nil, not zero.
func gameDuration(tags map[string]string) *float64 {
	start, ok := parseTagTime(tags, "UTCDate", "UTCTime")
	if !ok {
		start, ok = parseTagTime(tags, "Date", "StartTime")
		if !ok {
			return nil
		}
	}
	end, ok := parseTagTime(tags, "EndDate", "EndTime")
	if !ok {
		return nil
	}

	seconds := end.Sub(start).Seconds()
	if seconds < 0 {
		return nil
	}
	return &seconds
}

func parseTagTime(tags map[string]string, dateTag, timeTag string) (time.Time, bool) {
	date, okD := tags[dateTag]
	clock, okT := tags[timeTag]
	if !okD || !okT {
		return time.Time{}, false
	}
	t, err := time.Parse(pgnTimeLayout, date+" "+clock)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
