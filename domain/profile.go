package domain

// Profile is the canonical shape of a user profile record.
type Profile struct {
	UserID    string
	Name      string
	Age       int
	Location  string
	AvatarURL string
	About     string
	Interests []string
	Photos    []string
}

// NormalizeProfile resolves legacy and alternate field names into the
// canonical record once, at the store boundary. Older documents carry
// "homeLocation" instead of "location" and "photoURL" instead of
// "avatar"; call sites never see those names.
func NormalizeProfile(userID string, doc map[string]any) Profile {
	p := Profile{
		UserID:    userID,
		Name:      firstNonEmpty(str(doc, "name"), str(doc, "displayName")),
		Age:       integer(doc, "age"),
		About:     str(doc, "about"),
		Interests: strSlice(doc, "interests"),
		Photos:    strSlice(doc, "photos"),
	}
	p.Location = firstNonEmpty(str(doc, "location"), str(doc, "homeLocation"))
	p.AvatarURL = firstNonEmpty(str(doc, "avatar"), str(doc, "photoURL"))
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func str(doc map[string]any, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func integer(doc map[string]any, key string) int {
	switch v := doc[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func strSlice(doc map[string]any, key string) []string {
	switch v := doc[key].(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
