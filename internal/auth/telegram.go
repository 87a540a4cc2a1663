// ABOUTME: Telegram initData verification for WebApp and Login Widget payloads
// ABOUTME: Parses query/JSON/base64 encodings and checks the HMAC-SHA256 signature

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultInitDataMaxAge is how old an auth_date may be before rejection.
	DefaultInitDataMaxAge = 10 * time.Minute

	// MinInitDataMaxAge is the enforced floor for the configurable max age.
	MinInitDataMaxAge = time.Minute
)

// initData sources. WebApp and the legacy Login Widget derive the HMAC secret
// key differently, so the verifier must tell them apart.
const (
	sourceWebApp = "webapp"
	sourceWidget = "widget"
)

// TelegramVerifier validates Telegram initData payloads against the bot token.
type TelegramVerifier struct {
	botToken   string
	maxAge     time.Duration
	allowedIDs map[string]struct{}
	now        func() time.Time
}

// NewTelegramVerifier creates a verifier for the given bot token. A non-empty
// allowedIDs list restricts which Telegram user ids may authenticate; an empty
// list admits everyone the signature admits. maxAge below the floor (or zero)
// is clamped.
func NewTelegramVerifier(botToken string, maxAge time.Duration, allowedIDs []string) *TelegramVerifier {
	if maxAge <= 0 {
		maxAge = DefaultInitDataMaxAge
	}
	if maxAge < MinInitDataMaxAge {
		maxAge = MinInitDataMaxAge
	}
	var allowed map[string]struct{}
	if len(allowedIDs) > 0 {
		allowed = make(map[string]struct{}, len(allowedIDs))
		for _, id := range allowedIDs {
			id = strings.TrimSpace(id)
			if id != "" {
				allowed[id] = struct{}{}
			}
		}
	}
	return &TelegramVerifier{
		botToken:   botToken,
		maxAge:     maxAge,
		allowedIDs: allowed,
		now:        time.Now,
	}
}

// Verify checks the initData signature and freshness and returns the
// normalized user identity plus the payload's auth_date.
func (v *TelegramVerifier) Verify(raw string) (*Identity, int64, error) {
	fields, err := parseInitData(raw)
	if err != nil {
		return nil, 0, err
	}

	providedHash, ok := fields["hash"]
	if !ok || providedHash == "" {
		return nil, 0, ErrInitDataNoHash
	}
	delete(fields, "hash")

	// Data-check-string: all remaining fields as key=value, sorted by key,
	// joined with newlines.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	dataCheckString := strings.Join(parts, "\n")

	identity, source, err := extractUser(fields)
	if err != nil {
		return nil, 0, err
	}

	mac := hmac.New(sha256.New, v.secretKey(source))
	mac.Write([]byte(dataCheckString))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !ConstantTimeEqual(expected, strings.ToLower(providedHash)) {
		return nil, 0, ErrInitDataBadHash
	}

	authDate, err := strconv.ParseInt(fields["auth_date"], 10, 64)
	if err != nil || authDate <= 0 {
		return nil, 0, ErrInitDataBadDate
	}
	if age := v.now().Unix() - authDate; age > int64(v.maxAge.Seconds()) {
		return nil, 0, fmt.Errorf("%w: age %ds exceeds %s", ErrInitDataExpired, age, v.maxAge)
	}

	if v.allowedIDs != nil {
		if _, ok := v.allowedIDs[identity.ID]; !ok {
			return nil, 0, ErrNotAllowed
		}
	}

	return identity, authDate, nil
}

// secretKey derives the HMAC key for the given auth source.
// Widget: SHA256(botToken). WebApp: HMAC-SHA256 of the bot token keyed with
// the literal string "WebAppData".
func (v *TelegramVerifier) secretKey(source string) []byte {
	if source == sourceWidget {
		sum := sha256.Sum256([]byte(v.botToken))
		return sum[:]
	}
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(v.botToken))
	return mac.Sum(nil)
}

// extractUser resolves the authenticated user from the parsed fields.
// A "user" field (JSON-encoded Telegram user) marks a WebApp payload; a bare
// top-level "id" marks a legacy Login Widget payload whose user object is
// synthesized from the discrete fields.
func extractUser(fields map[string]string) (*Identity, string, error) {
	if rawUser, ok := fields["user"]; ok {
		var obj map[string]any
		dec := json.NewDecoder(strings.NewReader(rawUser))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return nil, "", fmt.Errorf("%w: user field: %v", ErrInitDataMalformed, err)
		}
		id := coerceString(obj["id"])
		if id == "" {
			return nil, "", ErrInitDataNoUser
		}
		return &Identity{
			ID:        id,
			FirstName: coerceString(obj["first_name"]),
			LastName:  coerceString(obj["last_name"]),
			Username:  coerceString(obj["username"]),
			PhotoURL:  coerceString(obj["photo_url"]),
		}, sourceWebApp, nil
	}

	if id, ok := fields["id"]; ok && id != "" {
		return &Identity{
			ID:        id,
			FirstName: fields["first_name"],
			LastName:  fields["last_name"],
			Username:  fields["username"],
			PhotoURL:  fields["photo_url"],
		}, sourceWidget, nil
	}

	return nil, "", ErrInitDataNoUser
}

// parseInitData normalizes raw initData into key/value fields. Decode priority:
// query string, percent-encoded JSON object, then base64 of either.
func parseInitData(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInitDataMalformed
	}

	if fields, ok := parseQueryInitData(raw); ok {
		return fields, nil
	}
	if fields, ok := parseJSONInitData(raw); ok {
		return fields, nil
	}

	for _, decode := range []func(string) ([]byte, error){
		base64.StdEncoding.DecodeString,
		base64.RawStdEncoding.DecodeString,
		Base64URLDecode,
	} {
		decoded, err := decode(raw)
		if err != nil {
			continue
		}
		inner := strings.TrimSpace(string(decoded))
		if fields, ok := parseQueryInitData(inner); ok {
			return fields, nil
		}
		if fields, ok := parseJSONInitData(inner); ok {
			return fields, nil
		}
	}

	return nil, ErrInitDataMalformed
}

// parseQueryInitData accepts raw only when it parses as a query string that
// actually looks like initData (carries a hash field among others). This keeps
// JSON payloads from being swallowed as a single degenerate key.
func parseQueryInitData(raw string) (map[string]string, bool) {
	if !strings.Contains(raw, "=") {
		return nil, false
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, false
	}
	if len(values) < 2 || values.Get("hash") == "" {
		return nil, false
	}
	fields := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return fields, true
}

// parseJSONInitData accepts a JSON object, optionally percent-encoded.
// Nested values are stringified into query-style fields: objects and arrays
// re-serialize compactly, scalars render as their literal text.
func parseJSONInitData(raw string) (map[string]string, bool) {
	candidate := raw
	if unescaped, err := url.QueryUnescape(raw); err == nil {
		candidate = unescaped
	}
	candidate = strings.TrimSpace(candidate)
	if !strings.HasPrefix(candidate, "{") {
		return nil, false
	}

	var obj map[string]any
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}

	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		fields[k] = stringifyField(v)
	}
	return fields, true
}

// stringifyField renders a decoded JSON value the way it would appear as a
// query-string field value.
func stringifyField(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// coerceString renders a JSON scalar as a string, normalizing numeric ids.
func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
