package core

import "github.com/smartystreets/keg/contracts"

func Filter(original []contracts.InstalledRecord, filter []string) (filtered []contracts.InstalledRecord) {
	if len(filter) == 0 {
		return original
	}
	for _, record := range original {
		if contains(filter, record.Identifier) {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

func contains(haystack []string, needle string) bool {
	for _, straw := range haystack {
		if straw == needle {
			return true
		}
	}
	return false
}
