package crawler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryWithDefaults(t *testing.T) {
	t.Parallel()

	q := Query{Position: "  Go开发 ", Duration: " 3个月 ", DaysPerWeek: "4天 ", Sources: []string{"Boss", "liepin", "boss", " "}}.WithDefaults()

	require.Equal(t, "Go开发", q.Position)
	require.Equal(t, DefaultPage, q.Page)
	require.Equal(t, DefaultPageSize, q.PageSize)
	require.Equal(t, []string{"boss", "liepin"}, q.Sources)
	require.Equal(t, "3个月", q.Duration)
	require.Equal(t, "4天", q.DaysPerWeek)
}

func TestQueryValidate(t *testing.T) {
	t.Parallel()

	cases := map[string]Query{
		"empty position":   {Position: " ", Page: 1, PageSize: 20},
		"zero page":        {Position: "java", Page: 0, PageSize: 20},
		"negative size":    {Position: "java", Page: 1, PageSize: -3},
		"position only ws": {Position: "\t", City: "北京", Page: 2, PageSize: 10},
	}
	for name, q := range cases {
		q := q
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := q.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidQuery))
		})
	}

	require.NoError(t, Query{Position: "java", Page: 1, PageSize: 1}.Validate())
}

func TestQueryWindow(t *testing.T) {
	t.Parallel()

	start, end := Query{Page: 3, PageSize: 20}.Window()
	require.Equal(t, 40, start)
	require.Equal(t, 60, end)
}
