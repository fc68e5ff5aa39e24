package result

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var remote = Provenance{Mode: "remote", Origin: "http://test.com"}

func TestNormalize(t *testing.T) {
	t.Run("frequency table", func(t *testing.T) {
		r, err := Normalize([]byte(`{"00": 1, "01": 9, "10": 80, "11": 10}`), remote)
		require.NoError(t, err)
		assert.Equal(t, 10, r.Counts["11"])
		assert.Equal(t, 100, r.Shots())
		assert.Equal(t, []int{0, 1}, r.Mapping)
		assert.Empty(t, r.Measurements)
		assert.Equal(t, "remote", r.Mode)
		assert.Equal(t, "http://test.com", r.Origin)
		assert.NotZero(t, r.Timestamp)
	})

	t.Run("per-shot array", func(t *testing.T) {
		r, err := Normalize([]byte(`[[0,0,0],[0,0,0],[1,0,1]]`), remote)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"000": 2, "101": 1}, r.Counts)
		assert.Equal(t, []int{0, 1, 2}, r.Mapping)
		assert.Len(t, r.Measurements, 3)
	})

	t.Run("rich shape keeps backend provenance", func(t *testing.T) {
		body := `{"mapping":[1,0],"measurements":[[1,0],[1,1]],"mode":"random source","timestamp":42,"origin":"mock"}`
		r, err := Normalize([]byte(body), remote)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 0}, r.Mapping)
		assert.Equal(t, map[string]int{"10": 1, "11": 1}, r.Counts)
		assert.Equal(t, "random source", r.Mode)
		assert.Equal(t, int64(42), r.Timestamp)
		assert.Equal(t, "mock", r.Origin)
	})

	t.Run("rich shape with missing keys is completed", func(t *testing.T) {
		r, err := Normalize([]byte(`{"counts":{"0":4,"1":6}}`), remote)
		require.NoError(t, err)
		assert.Equal(t, []int{0}, r.Mapping)
		assert.Equal(t, "remote", r.Mode)
		assert.Equal(t, "http://test.com", r.Origin)
		assert.NotNil(t, r.Measurements)
	})

	t.Run("mapping without data is not a result", func(t *testing.T) {
		r, err := Normalize([]byte(`{"mapping":[0,1]}`), remote)
		assert.ErrorIs(t, err, ErrNoData)
		assert.True(t, r.IsEmpty())
		assert.Empty(t, r.Mode)
	})

	t.Run("register keyed table", func(t *testing.T) {
		r, err := Normalize([]byte(`{"c":{"0":50,"1":50}}`), remote)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"0": 50, "1": 50}, r.Counts)
		assert.Equal(t, 100, r.Shots())
		assert.Equal(t, []int{0}, r.Mapping)
		assert.Equal(t, "remote", r.Mode)
	})

	t.Run("register keyed table keeps one register", func(t *testing.T) {
		r, err := Normalize([]byte(`{"meas":{"00":3,"11":7},"anc":{"0":10}}`), remote)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"0": 10}, r.Counts, "registers are sampled independently")
		assert.Equal(t, 10, r.Shots())

		r, err = Normalize([]byte(`{"anc":{"0":10},"c":{"00":3,"11":7}}`), remote)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"00": 3, "11": 7}, r.Counts)
	})

	t.Run("register keyed table with bad keys", func(t *testing.T) {
		_, err := Normalize([]byte(`{"c":{"heads":1}}`), remote)
		assert.ErrorIs(t, err, ErrUnrecognized)
	})

	t.Run("double encoded payload", func(t *testing.T) {
		r, err := Normalize([]byte(`"{\"0\": 3, \"1\": 1}"`), remote)
		require.NoError(t, err)
		assert.Equal(t, 4, r.Shots())
	})

	for _, body := range []string{"", "  ", "null", `""`, "{}"} {
		t.Run("blank body "+body, func(t *testing.T) {
			r, err := Normalize([]byte(body), remote)
			require.NoError(t, err)
			assert.True(t, r.IsEmpty())
		})
	}

	t.Run("garbage", func(t *testing.T) {
		r, err := Normalize([]byte("<html>502</html>"), remote)
		assert.ErrorIs(t, err, ErrUnrecognized)
		assert.True(t, r.IsEmpty())
	})

	t.Run("non bit-string keys", func(t *testing.T) {
		r, err := Normalize([]byte(`{"error": "boom"}`), remote)
		assert.ErrorIs(t, err, ErrUnrecognized)
		assert.True(t, r.IsEmpty())
	})

	t.Run("truncated json", func(t *testing.T) {
		r, err := Normalize([]byte(`{"00": 1,`), remote)
		assert.Error(t, err)
		assert.True(t, r.IsEmpty())
	})
}

func TestNormalize_ContractProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	shotGen := gen.SliceOfN(3, gen.IntRange(0, 1))

	properties.Property("shots are conserved and every key is populated", prop.ForAll(
		func(shots [][]int) bool {
			body, err := json.Marshal(shots)
			if err != nil {
				return false
			}
			r, err := Normalize(body, remote)
			if err != nil {
				return false
			}
			if len(shots) == 0 {
				return r.IsEmpty()
			}
			return r.Shots() == len(shots) &&
				len(r.Mapping) == 3 &&
				r.Mode != "" &&
				r.Origin != "" &&
				r.Timestamp != 0
		},
		gen.SliceOf(shotGen),
	))

	properties.TestingRun(t)
}
