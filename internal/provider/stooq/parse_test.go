package stooq

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseClose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{
			name: "header and data line",
			body: "Symbol,Date,Time,Open,Close,Volume\nAAPL.US,2024-05-10,22:00:09,184.9,183.05,50759496\n",
			want: "183.05",
			ok:   true,
		},
		{
			name: "data line without header is rejected",
			body: "AAPL.US,2024-05-10,22:00:09,184.9,183.05,50759496",
		},
		{
			name: "no data",
			body: "Symbol,Date,Time,Open,Close,Volume\nZZZ.US,N/D,N/D,N/D,N/D,N/D\n",
		},
		{
			name: "N/A close",
			body: "Symbol,Date,Time,Open,Close\nX,2024-05-10,22:00:09,1,N/A\n",
		},
		{
			name: "short line",
			body: "Symbol,Date\nX,2024-05-10\n",
		},
		{
			name: "zero close",
			body: "Symbol,Date,Time,Open,Close\nX,2024-05-10,22:00:09,1,0\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseClose(tt.body)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
			}
		})
	}
}
