package credential

// Deduplicate collapses credentials sharing a (hash, source path) pair. The
// highest confidence entry of each group survives; on a tie the first one
// inserted wins. Group order follows first appearance.
func Deduplicate(keys []DiscoveredCredential) []DiscoveredCredential {
	if len(keys) == 0 {
		return keys
	}

	index := make(map[string]int, len(keys))
	out := make([]DiscoveredCredential, 0, len(keys))
	for _, k := range keys {
		dk := k.DedupKey()
		pos, seen := index[dk]
		if !seen {
			index[dk] = len(out)
			out = append(out, k)
			continue
		}
		if k.Confidence > out[pos].Confidence {
			out[pos] = k
		}
	}
	return out
}
