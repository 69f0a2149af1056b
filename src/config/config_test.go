package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "blindbase.yaml")
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
	assert.FileExists(t, path)

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestLoad_PartialFileKeepsDefaultsAndClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blindbase.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine_lines_count: 42\ngames_per_page: 1\nshow_chessboard: false\n"), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, s.EngineLinesCount)
	assert.Equal(t, 5, s.GamesPerPage)
	assert.False(t, s.ShowChessboard)
	assert.Equal(t, 5, s.LichessMovesCount)
	assert.Equal(t, "games.pgn", s.DefaultPGNFilename)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blindbase.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine_lines_count: [\n"), 0644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse settings")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BLINDBASE_ENGINE_PATH", "/opt/sf")
	t.Setenv("BLINDBASE_PGN_DIR", "/data/pgn")

	s, err := Load(filepath.Join(t.TempDir(), "blindbase.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/opt/sf", s.EnginePath)
	assert.Equal(t, filepath.Join("/data/pgn", "games.pgn"), s.PGNPath())
}

func TestSet(t *testing.T) {
	s := Default()
	require.NoError(t, s.Set("lichess_moves_count", "0"))
	assert.Equal(t, 0, s.LichessMovesCount)

	require.NoError(t, s.Set("analysis_block_padding", "9"))
	assert.Equal(t, 5, s.AnalysisBlockPadding)

	require.NoError(t, s.Set("show_chessboard", "false"))
	v, err := s.Get("show_chessboard")
	require.NoError(t, err)
	assert.Equal(t, "false", v)

	assert.Error(t, s.Set("engine_lines_count", "many"))
	assert.Error(t, s.Set("engine_path", " "))
	assert.Error(t, s.Set("colour", "blue"))

	for _, k := range Keys() {
		_, err := s.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestTimeouts(t *testing.T) {
	s := Default()
	assert.Equal(t, 5*time.Second, s.GetRequestTimeout())
	s.AnalysisJoinTimeout = "soon"
	assert.Equal(t, 3*time.Second, s.GetAnalysisJoinTimeout())
	s.AnalysisJoinTimeout = "250ms"
	assert.Equal(t, 250*time.Millisecond, s.GetAnalysisJoinTimeout())
}
