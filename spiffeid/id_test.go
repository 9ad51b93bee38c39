package spiffeid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgemesh/spiffekit/spiffeid"
)

func TestFromStringValid(t *testing.T) {
	id, err := spiffeid.FromString("spiffe://example.org/workload-server")
	require.NoError(t, err)
	assert.Equal(t, "example.org", id.TrustDomain().Name())
	assert.Equal(t, "/workload-server", id.Path())
	assert.Equal(t, "spiffe://example.org/workload-server", id.String())
}

func TestFromStringNoPath(t *testing.T) {
	id, err := spiffeid.FromString("spiffe://example.org")
	require.NoError(t, err)
	assert.Equal(t, "", id.Path())
	assert.Equal(t, "spiffe://example.org", id.String())
}

func TestFromStringRejectsWrongScheme(t *testing.T) {
	_, err := spiffeid.FromString("https://example.org/workload")
	require.Error(t, err)
}

func TestFromStringRejectsPort(t *testing.T) {
	_, err := spiffeid.FromString("spiffe://example.org:8443/workload")
	require.Error(t, err)
}

func TestFromStringRejectsUserInfo(t *testing.T) {
	_, err := spiffeid.FromString("spiffe://user@example.org/workload")
	require.Error(t, err)
}

func TestFromStringRejectsEmptyPathSegment(t *testing.T) {
	_, err := spiffeid.FromString("spiffe://example.org//workload")
	require.Error(t, err)
}

func TestFromStringRejectsEmptyTrustDomain(t *testing.T) {
	_, err := spiffeid.FromString("spiffe:///workload")
	require.Error(t, err)
}

func TestFromStringLowercasesHost(t *testing.T) {
	id, err := spiffeid.FromString("spiffe://EXAMPLE.ORG/workload")
	require.NoError(t, err)
	assert.Equal(t, "example.org", id.TrustDomain().Name())
}

func TestMemberOf(t *testing.T) {
	td := spiffeid.RequireTrustDomainFromString("example.org")
	id := spiffeid.RequireFromString("spiffe://example.org/workload")
	assert.True(t, id.MemberOf(td))

	other := spiffeid.RequireTrustDomainFromString("other.org")
	assert.False(t, id.MemberOf(other))
}

func TestMatchers(t *testing.T) {
	td := spiffeid.RequireTrustDomainFromString("example.org")
	id := spiffeid.RequireFromString("spiffe://example.org/workload")

	assert.True(t, spiffeid.MatchAny()(id))
	assert.True(t, spiffeid.MatchMemberOf(td)(id))
	assert.True(t, spiffeid.MatchID(id)(id))
	assert.False(t, spiffeid.MatchID(spiffeid.RequireFromString("spiffe://example.org/other"))(id))
	assert.True(t, spiffeid.MatchOneOf(id)(id))
}

func TestParseAcceptList(t *testing.T) {
	ids, err := spiffeid.ParseAcceptList("spiffe://example.org/a|spiffe://example.org/b,spiffe://other.org/c")
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, "spiffe://example.org/a", ids[0].String())
	assert.Equal(t, "spiffe://other.org/c", ids[2].String())
}

func TestParseAcceptListEmpty(t *testing.T) {
	ids, err := spiffeid.ParseAcceptList("")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
