package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
)

// Matches reports whether role is responsible for targetPath, per spec.md
// §3: a glob in Paths matching targetPath, or the hex SHA-256 of
// targetPath starting with one of PathHashPrefixes. Exactly one of the two
// predicates is expected to be populated on the wire; if both are present,
// either matching is sufficient.
func (role *DelegatedRole) Matches(targetPath string) bool {
	for _, prefix := range role.PathHashPrefixes {
		if pathHashPrefixMatches(targetPath, prefix) {
			return true
		}
	}
	for _, pattern := range role.Paths {
		if globMatch(pattern, targetPath) {
			return true
		}
	}
	return false
}

func pathHashPrefixMatches(targetPath, prefix string) bool {
	sum := sha256.Sum256([]byte(targetPath))
	digest := hex.EncodeToString(sum[:])
	if len(prefix) > len(digest) {
		return false
	}
	return digest[:len(prefix)] == prefix
}

// globMatch implements TUF's path-matching glob semantics: '*' matches
// zero or more characters but never crosses a '/' boundary. Target paths
// are POSIX-style regardless of host OS, so this uses "path".Match rather
// than the OS-dependent "path/filepath".Match.
func globMatch(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	if err != nil {
		return false
	}
	return ok
}

// RolesForTarget returns, in declared order, the delegated roles
// responsible for targetPath.
func (d *Delegations) RolesForTarget(targetPath string) []DelegatedRole {
	var matches []DelegatedRole
	for _, r := range d.Roles {
		if r.Matches(targetPath) {
			matches = append(matches, r)
		}
	}
	return matches
}
