package source

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeTableLookup(t *testing.T) {
	t.Parallel()

	table := CodeTable{
		Entries: []Code{
			{Name: "北京", Value: "010"},
			{Name: "上海", Value: "020"},
			{Name: "1-3年", Value: "1$3"},
		},
		Default: "410",
	}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "exact", in: "上海", want: "020"},
		{name: "query contains entry", in: "北京市", want: "010"},
		{name: "entry contains query", in: "1-3", want: "1$3"},
		{name: "unknown", in: "拉萨", want: "410"},
		{name: "empty", in: "  ", want: "410"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, table.Lookup(tt.in))
		})
	}
	require.Equal(t, []string{"北京", "上海", "1-3年"}, table.Names())
}

func TestCodeTableExactBeatsEarlierFuzzy(t *testing.T) {
	t.Parallel()

	table := CodeTable{Entries: []Code{
		{Name: "高中/中专/中技", Value: "02"},
		{Name: "中专", Value: "99"},
	}}
	require.Equal(t, "99", table.Lookup("中专"))
	require.Equal(t, "02", table.Lookup("中技"))
}
