package persist

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/hb9gl/tlmbeacon/log2"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/extremofile"
)

func TestCounterRoundtrip(t *testing.T) {
	t.Parallel()

	dir, err := ioutil.TempDir("", "tlmbeacon-persist-")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	log := log2.NewTest(t, log2.LDebug)

	c, err := NewCounter(dir, log)
	require.NoError(t, err)
	b, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, byte(0), b, "fresh storage")
	require.NoError(t, c.Store(231))

	c2, err := NewCounter(dir, log)
	require.NoError(t, err)
	b, err = c2.Load()
	require.NoError(t, err)
	assert.Equal(t, byte(231), b)
}

func TestCounterDisabled(t *testing.T) {
	t.Parallel()

	c, err := NewCounter("", log2.NewTest(t, log2.LDebug))
	require.NoError(t, err)
	require.NoError(t, c.Store(9))
	b, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, byte(9), b, "memory only")
}

func TestCounterCorrupt(t *testing.T) {
	t.Parallel()

	dir, err := ioutil.TempDir("", "tlmbeacon-persist-")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	type Case struct {
		name string
		data []byte
	}
	cases := []Case{
		{"long", []byte{1, 2}},
		{"empty", []byte{}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			root := filepath.Join(dir, c.name)
			f := extremofile.New(extremofile.Config{Dir: filepath.Join(root, CounterTag)})
			_, err := f.Write(c.data)
			require.NoError(t, err)

			counter, err := NewCounter(root, log2.NewTest(t, log2.LDebug))
			require.NoError(t, err)
			_, err = counter.Load()
			assert.True(t, errors.IsNotValid(err), errors.ErrorStack(err))
		})
	}
}

func TestCounterDamagedMain(t *testing.T) {
	t.Parallel()

	dir, err := ioutil.TempDir("", "tlmbeacon-persist-")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	log := log2.NewTest(t, log2.LDebug)

	c, err := NewCounter(dir, log)
	require.NoError(t, err)
	require.NoError(t, c.Store(42))
	mainPath := filepath.Join(dir, CounterTag, extremofile.DefaultFilePrefix+"v1.main")
	require.NoError(t, ioutil.WriteFile(mainPath, []byte("garbage"), 0644))

	c2, err := NewCounter(dir, log)
	require.NoError(t, err)
	b, err := c2.Load()
	require.NoError(t, err, "backup copy")
	assert.Equal(t, byte(42), b)
}
