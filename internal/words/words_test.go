package words

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	l, err := Load(Config{Salt: "test"})
	require.NoError(t, err)

	answers, allowed := l.Stats()
	assert.Greater(t, answers, 100)
	assert.Greater(t, allowed, answers)
	assert.True(t, l.IsAnswer("crane"))
	assert.True(t, l.IsAllowed("CRANE"))
	assert.True(t, l.IsAllowed("blimp"))
	assert.False(t, l.IsAnswer("blimp"))
	assert.False(t, l.IsAllowed("zzzzz"))
}

func TestLoad_Files(t *testing.T) {
	dir := t.TempDir()
	ans := filepath.Join(dir, "answers.txt")
	all := filepath.Join(dir, "allowed.txt")
	require.NoError(t, os.WriteFile(ans, []byte("Crane\nslate\nbad\n  TRACE \ncrane\n"), 0o644))
	require.NoError(t, os.WriteFile(all, []byte("blimp\nn0pe!\n"), 0o644))

	l, err := Load(Config{AnswersFile: ans, AllowedFile: all})
	require.NoError(t, err)
	a, g := l.Stats()
	assert.Equal(t, 3, a, "invalid and duplicate lines dropped")
	assert.Equal(t, 4, g)
	assert.True(t, l.IsAllowed("blimp"))

	l, err = Load(Config{AllowedFile: all})
	require.NoError(t, err)
	assert.True(t, l.IsAnswer("blimp"))

	_, err = Load(Config{AnswersFile: filepath.Join(dir, "missing.txt"), AllowedFile: all})
	assert.Error(t, err)
}

func TestNew_Empty(t *testing.T) {
	_, err := New([]string{"toolong", "x"}, nil, "")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestDailyTarget_Deterministic(t *testing.T) {
	l, err := New([]string{"crane", "slate", "trace", "adieu", "about"}, nil, "salt")
	require.NoError(t, err)

	morning := time.Date(2025, 6, 1, 0, 5, 0, 0, time.UTC)
	evening := time.Date(2025, 6, 1, 23, 55, 0, 0, time.UTC)
	assert.Equal(t, l.DailyTarget(morning), l.DailyTarget(evening))
	assert.True(t, l.IsAnswer(l.DailyTarget(morning)))

	other, err := New([]string{"crane", "slate", "trace", "adieu", "about"}, nil, "salt")
	require.NoError(t, err)
	assert.Equal(t, l.DailyTarget(morning), other.DailyTarget(morning))
}

func TestWordIndex(t *testing.T) {
	d := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, WordIndex(d, "salt", 0))
	for n := 1; n < 50; n++ {
		i := WordIndex(d, "salt", n)
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, n)
	}
	assert.Equal(t, WordIndex(d, "salt", 1000), WordIndex(d.Add(3*time.Hour), "salt", 1000))
}

func TestDateKey(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	assert.Equal(t, "2025-05-31", DateKey(time.Date(2025, 6, 1, 5, 0, 0, 0, loc)))
}

func TestNextReset(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	got := NextReset(time.Date(2025, 12, 31, 22, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), NextReset(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
}
