package controller

import "trading-platform-client/internal/dto"

// FilterSymbols applies the instrument whitelist to a symbol fetch. A default
// token that the whitelist would drop is re-inserted iff it exists in the
// unfiltered fetch, so a previously selected instrument stays selectable.
func FilterSymbols(all []dto.SymbolEntry, defaultToken string) []dto.SymbolEntry {
	filtered := make([]dto.SymbolEntry, 0, len(all))
	defaultKept := false
	var defaultEntry *dto.SymbolEntry

	for i, s := range all {
		if s.Allowed() {
			filtered = append(filtered, s)
			if s.Token == defaultToken {
				defaultKept = true
			}
			continue
		}
		if s.Token == defaultToken {
			defaultEntry = &all[i]
		}
	}

	if defaultToken != "" && !defaultKept && defaultEntry != nil {
		filtered = append(filtered, *defaultEntry)
	}
	return filtered
}
