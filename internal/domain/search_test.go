package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFoldStripsVietnameseMarks(t *testing.T) {
	require.Equal(t, "sua vinamilk", Fold("Sữa  Vinamilk"))
	require.Equal(t, "do uong", Fold("Đồ uống"))
	require.Equal(t, "mi hao hao", Fold("Mì Hảo Hảo"))
}

func TestMatchesQuery(t *testing.T) {
	key := ProductSearchKey(Product{ProductCode: "SP0003", Name: "Mì Hảo Hảo"})
	require.True(t, MatchesQuery(key, "hao"))
	require.True(t, MatchesQuery(key, "HẢO HẢO"))
	require.True(t, MatchesQuery(key, "sp0003"))
	require.True(t, MatchesQuery(key, ""))
	require.False(t, MatchesQuery(key, "coca"))
}
