package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Sign returns the hex HMAC-SHA256 of msg under the checksum key.
func Sign(checksumKey, msg string) string {
	mac := hmac.New(sha256.New, []byte(checksumKey))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyData checks a webhook data object against its signature.  The
// gateway signs the data fields serialized as "k1=v1&k2=v2&..." with
// keys in alphabetical order; null values serialize as empty strings
// and numbers without an exponent.  Comparison uses hmac.Equal to
// stay constant-time.
func VerifyData(checksumKey string, data json.RawMessage, signature string) (bool, error) {
	signing, err := canonicalize(data)
	if err != nil {
		return false, err
	}
	expected := Sign(checksumKey, signing)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))), nil
}

// canonicalize flattens a JSON object into the gateway's signing
// string.  Decoding with json.Number preserves integer order codes
// that would otherwise lose precision as float64.
func canonicalize(data json.RawMessage) (string, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return "", fmt.Errorf("decode data object: %w", err)
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+stringify(obj[k]))
	}
	return strings.Join(parts, "&"), nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		// Nested arrays/objects are rare in webhook payloads; fall back
		// to their compact JSON form.
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
