package storage

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ctmc/internal/markov"
)

func sampleRun() *Run {
	return &Run{
		Generator:     "cyclic",
		States:        3,
		Chains:        2,
		Seed:          1<<63 + 5,
		MaxRate:       1,
		Params:        map[string]float64{"sigma": 1},
		NESS:          markov.Batch{{0.2, 0.3, 0.5}, {0.1, 0.1, 0.8}},
		NESSConverged: true,
		MEPS:          markov.Batch{{0.25, 0.25, 0.5}, {0.2, 0.2, 0.6}},
		MEPSConverged: false,
		Iterations:    3,
		EPR:           [][]float64{{0.9, 1.2}, {0.7, 1.1}, {0.6, 1.05}},
		Metrics:       map[string]float64{"epr_drop": 0.3},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	in := sampleRun()
	id, err := st.Save(in)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	out, err := st.Load(id)
	require.NoError(t, err)

	assert.Equal(t, id, out.ID)
	assert.Equal(t, in.Generator, out.Generator)
	assert.Equal(t, in.Seed, out.Seed)
	assert.Equal(t, in.NESS, out.NESS)
	assert.Equal(t, in.MEPS, out.MEPS)
	assert.True(t, out.NESSConverged)
	assert.False(t, out.MEPSConverged)
	assert.Equal(t, in.EPR, out.EPR)
	assert.Equal(t, 0.3, out.Metrics["epr_drop"])
	assert.WithinDuration(t, time.Now(), out.CreatedAt, time.Minute)
}

func TestStoreList(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	older := sampleRun()
	older.CreatedAt = time.Now().Add(-time.Hour)
	older.Generator = "uniform"
	_, err = st.Save(older)
	require.NoError(t, err)
	_, err = st.Save(sampleRun())
	require.NoError(t, err)

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "cyclic", runs[0].Generator)
	assert.Equal(t, "uniform", runs[1].Generator)
	assert.Nil(t, runs[0].EPR)
}

func TestStoreLoadMissing(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Load("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreExport(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	id, err := st.Save(sampleRun())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.WriteCSV(id, &buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"iteration", "epr0", "epr1"}, records[0])
	assert.Equal(t, []string{"2", "0.6", "1.05"}, records[3])

	buf.Reset()
	require.NoError(t, st.WriteJSON(id, &buf))
	var decoded Run
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, id, decoded.ID)
	assert.Len(t, decoded.EPR, 3)
}

func TestStoreLargeHistory(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	r := sampleRun()
	r.EPR = make([][]float64, 800)
	for i := range r.EPR {
		r.EPR[i] = []float64{float64(i), float64(-i)}
	}
	id, err := st.Save(r)
	require.NoError(t, err)

	eprs, err := st.LoadEPR(id)
	require.NoError(t, err)
	require.Len(t, eprs, 800)
	assert.Equal(t, []float64{799, -799}, eprs[799])
}
