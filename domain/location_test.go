package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mingle/errors"
)

func Test_ParseCoordinate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Coordinate
		ok    bool
		err   error
	}{
		{name: "literal pair", input: "37.7749, -122.4194", want: Coordinate{37.7749, -122.4194}, ok: true},
		{name: "no spaces", input: "32.0853,34.7818", want: Coordinate{32.0853, 34.7818}, ok: true},
		{name: "single number falls through", input: "37.7749", ok: false},
		{name: "plain text falls through", input: "Tel Aviv", ok: false},
		{name: "text with comma falls through", input: "Tel Aviv, Israel", ok: false},
		{name: "three parts fall through", input: "1, 2, 3", ok: false},
		{name: "latitude out of range", input: "91, 0", err: errors.ErrInvalidCoordinate},
		{name: "longitude out of range", input: "0, 181", err: errors.ErrInvalidCoordinate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			coord, ok, err := ParseCoordinate(tt.input)
			if tt.err != nil {
				req.ErrorIs(err, tt.err)
				return
			}
			req.NoError(err)
			req.Equal(tt.ok, ok)
			if tt.ok {
				req.Equal(tt.want, coord)
			}
		})
	}
}
