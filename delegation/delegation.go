// Package delegation implements the preorder depth-first walk that
// resolves a target path to the Targets role authoritative for it,
// following delegations from the top-level targets role down.
package delegation

import (
	"context"

	"github.com/tuf-go/coretuf/metadata"
	"github.com/tuf-go/coretuf/trustedset"
)

// Loader lazily produces the Targets metadata for a delegated role,
// consulting a local cache before fetching remotely. Implementations
// commit the result into the TrustedSet they were built against.
type Loader interface {
	Load(ctx context.Context, roleName, parentName string) (*metadata.Metadata[metadata.TargetsType], error)
}

type visit struct {
	role   string
	parent string
}

// FindTarget walks the delegation graph rooted at the top-level targets
// role looking for targetPath, honoring cycle guards, the maxDelegations
// visit budget, and terminating-role short-circuit semantics. It returns
// the matching TargetFiles and the name of the role that declared it, or
// (nil, "", nil) if no role claims the path.
func FindTarget(ctx context.Context, trusted *trustedset.TrustedSet, loader Loader, targetPath string, maxDelegations int) (*metadata.TargetFiles, string, error) {
	toVisit := []visit{{role: metadata.TARGETS, parent: metadata.ROOT}}
	visited := map[string]bool{}

	for len(toVisit) > 0 && len(visited) <= maxDelegations {
		top := toVisit[len(toVisit)-1]
		toVisit = toVisit[:len(toVisit)-1]

		if visited[top.role] {
			continue
		}

		targets, err := loadRole(ctx, trusted, loader, top.role, top.parent)
		if err != nil {
			return nil, "", err
		}

		if tf, ok := targets.Signed.Targets[targetPath]; ok {
			tf.Path = targetPath
			return &tf, top.role, nil
		}

		visited[top.role] = true

		if targets.Signed.Delegations == nil {
			continue
		}

		matches := targets.Signed.Delegations.RolesForTarget(targetPath)
		if len(matches) == 0 {
			continue
		}

		terminatingIdx := -1
		for i, m := range matches {
			if m.Terminating {
				terminatingIdx = i
				break
			}
		}
		if terminatingIdx >= 0 {
			// a terminating match forecloses every sibling subtree queued
			// before it, and every match after it from this same parent.
			toVisit = nil
			matches = matches[:terminatingIdx+1]
		}

		for i := len(matches) - 1; i >= 0; i-- {
			toVisit = append(toVisit, visit{role: matches[i].Name, parent: top.role})
		}
	}

	return nil, "", nil
}

// loadRole consults the TrustedSet's cache before delegating to loader,
// which is expected to commit whatever it fetches back into the
// TrustedSet (via UpdateDelegatedTargets) so later visits in the same
// walk, or a later walk, hit the cache instead of re-fetching.
func loadRole(ctx context.Context, trusted *trustedset.TrustedSet, loader Loader, role, parent string) (*metadata.Metadata[metadata.TargetsType], error) {
	if cached, ok := trusted.Targets[role]; ok {
		return cached, nil
	}
	return loader.Load(ctx, role, parent)
}
