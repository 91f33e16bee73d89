package state_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/yabu/internal/adapters/state"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func sampleState() *domain.State {
	return &domain.State{
		Algo: domain.TsCksum,
		Targets: []domain.TargetRecord{
			{Name: "a.o", Cfg: "+debug", RuleID: 0xdeadbeef, Sources: []domain.SourceRecord{
				{Name: "a.c", Time: domain.Ftime{Sec: 0x65000000, Nsec: 0x1f}},
				{Name: "a.h", Time: domain.Ftime{Sec: 0x65000001}},
			}},
			{Name: "odd\tname\n", RuleID: 1, Sources: []domain.SourceRecord{
				{Name: `back\slash`, Time: domain.Ftime{Sec: 2}},
			}},
			{Name: "prog", RuleID: 0x10},
		},
	}
}

func TestStore_SaveGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.DefaultStateFile)
	s := state.NewStore(nil)
	require.NoError(t, s.Save(path, sampleState()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	g := goldie.New(t)
	g.Assert(t, "state", data)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(domain.FilePerm), info.Mode().Perm())
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.DefaultStateFile)
	s := state.NewStore(nil)
	require.NoError(t, s.Save(path, sampleState()))

	got, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestStore_DefaultAlgorithmIsWrittenAsMtime(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.DefaultStateFile)
	s := state.NewStore(nil)
	require.NoError(t, s.Save(path, &domain.State{}))

	got, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.TsMtime, got.Algo)
	assert.Empty(t, got.Targets)
}

func TestStore_LoadMissing(t *testing.T) {
	got, err := state.NewStore(nil).Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Equal(t, &domain.State{}, got)
}

func TestStore_LoadInvalidHeader(t *testing.T) {
	for name, content := range map[string]string{
		"empty":        "",
		"wrong tool":   "make 3\n",
		"old version":  "yabu 2\ntsa\t1\n",
		"no separator": "yabu3\n",
	} {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			path := filepath.Join(t.TempDir(), domain.DefaultStateFile)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			log := mocks.NewMockLogger(ctrl)
			log.EXPECT().Warn(gomock.Any()).Times(1)

			got, err := state.NewStore(log).Load(path)
			require.NoError(t, err)
			assert.Equal(t, &domain.State{}, got)
			assert.NoFileExists(t, path)
		})
	}
}

func TestStore_LoadSkipsMalformedRecords(t *testing.T) {
	content := "yabu 3\n" +
		"tsa\t9\n" +
		"target\ta.o\t\tzz\n" +
		"target\tb.o\n" +
		"target\tc.o\t\t2\ta.c\n" +
		"target\td.o\t\t3\td.c\tnot-a-time\n" +
		"future\tignored\n" +
		"target\tok\t-x\t4\tok.c\t1.2\n"
	path := filepath.Join(t.TempDir(), domain.DefaultStateFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := state.NewStore(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.TsDefault, got.Algo, "unknown algorithm ignored")
	assert.Equal(t, []domain.TargetRecord{{
		Name: "ok", Cfg: "-x", RuleID: 4,
		Sources: []domain.SourceRecord{{Name: "ok.c", Time: domain.Ftime{Sec: 1, Nsec: 2}}},
	}}, got.Targets)
}

func TestStore_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.DefaultStateFile)
	s := state.NewStore(nil)
	require.NoError(t, s.Remove(path))

	require.NoError(t, s.Save(path, sampleState()))
	require.NoError(t, s.Remove(path))
	assert.NoFileExists(t, path)
}

func TestStore_SaveFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", domain.DefaultStateFile)
	err := state.NewStore(nil).Save(path, sampleState())
	require.ErrorContains(t, err, domain.ErrStateWriteFailed.Error())
}
