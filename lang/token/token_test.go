package token_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidsql/corvid/lang/token"
)

func TestLookupIdentKeyword(t *testing.T) {
	require.Equal(t, token.SELECT, token.LookupIdent("SELECT"))
	require.Equal(t, token.PRIMARY, token.LookupIdent("PRIMARY"))
}

func TestLookupIdentNonKeywordIsIdent(t *testing.T) {
	require.Equal(t, token.IDENT, token.LookupIdent("MYCOLUMN"))
}

func TestLookupIdentMapsTypeNamesToTypeKeywords(t *testing.T) {
	require.Equal(t, token.INT_TYPE, token.LookupIdent("INT"))
	require.Equal(t, token.FLOAT_TYPE, token.LookupIdent("FLOAT"))
}

func TestTypeStringKnownAndUnknown(t *testing.T) {
	require.Equal(t, "SELECT", token.SELECT.String())
	require.Equal(t, "=", token.EQ.String())
	require.Equal(t, "UNKNOWN", token.Type(9999).String())
}
