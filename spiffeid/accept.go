package spiffeid

import "strings"

// ParseAcceptList parses the pipe- or comma-separated list of SPIFFE IDs
// carried by the ssl.spiffe.accept system property. The core does not
// consume this itself; it is a helper for the out-of-scope TLS-adapter
// collaborator that enforces an accept list against a peer's ID.
func ParseAcceptList(list string) ([]ID, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}

	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == '|' || r == ','
	})

	ids := make([]ID, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		id, err := FromString(f)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
