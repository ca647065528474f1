package flomo

import "testing"

func TestSignSortsKeys(t *testing.T) {
	got := Sign(map[string]any{
		"timestamp": 1700000000,
		"api_key":   "flomo_web",
		"limit":     "10",
	})
	want := "090815d2ff9110f5d0a987f3b8e519a9"
	if got != want {
		t.Fatalf("Sign() = %s, want %s", got, want)
	}
}

func TestSignExpandsSliceValues(t *testing.T) {
	got := Sign(map[string]any{
		"api_key":   "flomo_web",
		"timestamp": 1700000000,
		"tags":      []string{"daily", "blog"},
	})
	want := "f52f834608144483e897605c950f4fdc"
	if got != want {
		t.Fatalf("Sign() = %s, want %s", got, want)
	}
}

func TestSignSkipsEmptyKeepsZero(t *testing.T) {
	got := Sign(map[string]any{
		"count": 0,
		"limit": "200",
		"empty": "",
		"nope":  nil,
	})
	// count=0 must be kept, empty string and nil skipped.
	want := "fc01e145cd299c83d5d29e67101f3397"
	if got != want {
		t.Fatalf("Sign() = %s, want %s", got, want)
	}
}

func TestSignEmptyParams(t *testing.T) {
	got := Sign(nil)
	// MD5 of the bare secret.
	want := "cf28c923a37753b1b2d53ca14c6b4f96"
	if got != want {
		t.Fatalf("Sign() = %s, want %s", got, want)
	}
}

func TestSignFullParamSet(t *testing.T) {
	got := Sign(map[string]any{
		"api_key":           "flomo_web",
		"app_version":       "4.0",
		"platform":          "web",
		"webp":              "1",
		"tz":                "8:0",
		"timestamp":         1700000000,
		"limit":             "200",
		"latest_updated_at": "0",
	})
	want := "dfdf753ca550e232e1cd718fd0405b65"
	if got != want {
		t.Fatalf("Sign() = %s, want %s", got, want)
	}
}
