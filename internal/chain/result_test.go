package chain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncResult_ZeroValueIsLoading(t *testing.T) {
	var r AsyncResult[int]
	assert.True(t, r.IsLoading())
	assert.Equal(t, StatusLoading, r.Status())
	_, ok := r.Value()
	assert.False(t, ok)
	assert.NoError(t, r.Err())
}

func TestAsyncResult_States(t *testing.T) {
	ok := Ok(7)
	v, has := ok.Value()
	assert.True(t, has)
	assert.Equal(t, 7, v)
	assert.True(t, ok.IsOk())

	cause := errors.New("boom")
	failed := Failed[int](cause)
	assert.True(t, failed.IsError())
	assert.ErrorIs(t, failed.Err(), cause)
	_, has = failed.Value()
	assert.False(t, has, "error result exposes no value")
}

func TestFromFetch(t *testing.T) {
	n := 3
	assert.True(t, FromFetch(&n, nil).IsOk())
	assert.True(t, FromFetch[int](nil, errors.New("x")).IsError())

	empty := FromFetch[int](nil, nil)
	assert.True(t, empty.IsError(), "no value and no error is not a zero value")
	assert.ErrorIs(t, empty.Err(), ErrEmptyResponse)
	_, has := empty.Value()
	assert.False(t, has)
}

func TestAsyncResult_JSON(t *testing.T) {
	cases := []struct {
		name string
		in   AsyncResult[int]
		want string
	}{
		{"loading", Loading[int](), `{"status":"loading"}`},
		{"ok", Ok(5), `{"status":"ok","value":5}`},
		{"error", Failed[int](errors.New("rpc down")), `{"status":"error","error":"rpc down"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.in)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(b))
		})
	}
}
