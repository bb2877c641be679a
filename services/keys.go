package services

// KeyPrefix namespaces every key the campus writes, as the browser demo did.
const KeyPrefix = "gca_virtual_"

func BadgesKey(scope string) string {
	return KeyPrefix + "badges:" + scope
}

// BadgesResetKey holds the catalog version the record was last reset to.
func BadgesResetKey(scope string) string {
	return KeyPrefix + "badges_reset:" + scope
}

func UserKey(token string) string {
	return KeyPrefix + "user:" + token
}

func UnlockFeedKey(scope string) string {
	return KeyPrefix + "unlock_feed:" + scope
}
