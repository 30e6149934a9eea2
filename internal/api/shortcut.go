package api

import "net/http"

// ShortcutGroups is the fixed set of group names the router exposes at
// top-level shortcut paths, each resolving to a fixed upstream raw-file
// URL at which the corresponding group artifact is published.
var ShortcutGroups = []string{"HK", "US", "SG", "TW", "JP", "Others"}

// ShortcutURLTemplate formats a GitHub raw-file URL for a shortcut group
// name, given the upstream repo slug (e.g. "someuser/somerepo").
func ShortcutURLTemplate(repoSlug, groupName string) string {
	return githubRawBase + repoSlug + "/main/output/groups/" + groupName + ".txt"
}

// HandleShortcut redirects GET /{name} (for name in ShortcutGroups) to the
// published raw-file mirror, so clients can add a short, memorable
// subscription URL instead of this server's own /groups/:name route.
func HandleShortcut(repoSlug, groupName string) http.HandlerFunc {
	target := ShortcutURLTemplate(repoSlug, groupName)
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}
