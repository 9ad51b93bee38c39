package spiffeid

// Matcher is an acceptance predicate for a SPIFFE ID, used by
// x509svid.VerifyPredicate to decide whether a verified leaf's ID is
// authorized.
type Matcher func(ID) bool

// MatchID accepts exactly the given ID.
func MatchID(expected ID) Matcher {
	return func(actual ID) bool {
		return actual == expected
	}
}

// MatchAny accepts every ID.
func MatchAny() Matcher {
	return func(ID) bool { return true }
}

// MatchMemberOf accepts any ID belonging to td.
func MatchMemberOf(td TrustDomain) Matcher {
	return func(actual ID) bool {
		return actual.MemberOf(td)
	}
}

// MatchOneOf accepts any ID present in ids.
func MatchOneOf(ids ...ID) Matcher {
	set := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(actual ID) bool {
		_, ok := set[actual]
		return ok
	}
}
