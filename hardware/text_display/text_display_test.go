package text_display

import (
	"strings"
	"testing"

	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Parallel()

	const width uint32 = 16
	spaces := strings.Repeat(" ", MaxWidth*2)
	canonical := func(input string, tick uint32) string {
		gap := width / 2
		length := uint32(len(input))
		if length <= width {
			return (input + spaces)[:width]
		}
		help := input + spaces[:gap] + input
		offset := tick % (length + gap)
		return help[offset : offset+width]
	}

	type Case struct {
		name  string
		input string
	}
	cases := []Case{
		{"short", "T#042"},
		{"full", "HB9GL-15 TLM 3.7"},
		{"long1", "UPTIME 23:59 RADIO OK"},
		{"long2", "too-much-very-long-line1;too-much-very-long-line2"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			for tick := uint32(0); tick < uint32(len(c.input)*3); tick++ {
				var buf [width]byte
				scrollWrap(buf[:], []byte(c.input), tick)
				expect := canonical(c.input, tick)
				result := string(buf[:])
				if result != expect {
					t.Errorf("input=(%d)'%s' tick=%d expected=(%d)'%s' actual=(%d)'%s'",
						len(c.input), c.input, tick, len(expect), expect, len(result), result)
				}
			}
		})
	}
}

func TestSetLines(t *testing.T) {
	t.Parallel()

	d, dev := NewMockTextDisplay(log2.NewTest(t, log2.LDebug), Config{Width: 8})
	d.SetLines("T 21.5C", "cursor\x00")
	assert.Equal(t, "T 21.5C \ncursor", dev.String())

	d.SetLines("seq 042 voltage", "")
	assert.Equal(t, "seq 042 \n        ", dev.String())
	d.Tick()
	assert.Equal(t, "eq 042 v\n        ", dev.String())
}

func TestTickUnchanged(t *testing.T) {
	t.Parallel()

	d, dev := NewMockTextDisplay(log2.NewTest(t, log2.LDebug), Config{Width: 8})
	d.SetLines("short", "line")
	writes := dev.WriteCount()
	d.Tick()
	d.Tick()
	assert.Equal(t, writes, dev.WriteCount(), "short lines do not scroll")

	d.SetLines("short", "line")
	assert.Equal(t, writes, dev.WriteCount(), "same text")

	d.Clear()
	assert.Equal(t, 1, dev.Clears)
	d.SetLines("short", "line")
	assert.Equal(t, "short   \nline    ", dev.String())
	assert.Greater(t, dev.WriteCount(), writes)
}

func TestWidth(t *testing.T) {
	t.Parallel()

	_, err := NewTextDisplay(nil, Config{Width: MaxWidth + 1})
	assert.True(t, errors.IsNotValid(err))
	d, err := NewTextDisplay(nil, Config{})
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultWidth), d.Width())
}

func TestCodepage(t *testing.T) {
	t.Parallel()

	_, err := NewTextDisplay(nil, Config{Codepage: "no-such-codepage"})
	assert.Error(t, err)
}

func TestJustCenter(t *testing.T) {
	t.Parallel()

	d, err := NewTextDisplay(nil, Config{Width: 8})
	require.NoError(t, err)
	assert.Equal(t, []byte("longlong"), d.JustCenter([]byte("longlong")))
	assert.Equal(t, []byte("longlon"), d.JustCenter([]byte("longlon")))
	assert.Equal(t, []byte("  fail  "), d.JustCenter([]byte("fail")))
	assert.Equal(t, []byte("   1    "), d.JustCenter([]byte("1")))
}
