package group

// DefaultMetaGroupDefs returns the declarative meta-group table:
// a single top-level selector whose members are the union of every
// regional group plus Others, leaving per-service selection to the
// service groups themselves. regionKeys is the concrete set of regional
// group keys produced for this run's node set, so the umbrella always
// references exactly the regions that exist.
func DefaultMetaGroupDefs(regionKeys []string) []MetaGroupDef {
	return []MetaGroupDef{
		{
			Name:          "🚀 节点选择",
			IncludeGroups: append(append([]string{}, regionKeys...), othersGroupName),
			IncludeDirect: true,
		},
	}
}
